// Package roles holds the role vocabulary and the two flavours of role checks.
//
// Has treats admin as a superset of every role. HasStrict does not, and is used
// where an action must be performed by a real holder of the role (procurement
// ordering and receiving, for example).
package roles

import (
	"fmt"
	"sort"
	"strings"
)

const (
	Employee    = "employee"
	Approver    = "approver"
	Procurement = "procurement"
	Admin       = "admin"
)

// Allowed lists every role a profile may carry. Employee is implicit.
var Allowed = []string{Employee, Approver, Procurement, Admin}

func isAllowed(role string) bool {
	for _, r := range Allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Normalize lowercases and validates roles, drops employee and returns a
// sorted, de-duplicated list suitable for storage.
func Normalize(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		role := strings.ToLower(strings.TrimSpace(raw))
		if role == "" {
			continue
		}
		if !isAllowed(role) {
			return nil, fmt.Errorf("unknown role %q", raw)
		}
		if role == Employee {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Strings(out)
	return out, nil
}

// UserRoles returns the effective role set of a user.
func UserRoles(isSuperuser bool, profileRoles []string) []string {
	seen := make(map[string]struct{}, len(profileRoles)+1)
	out := make([]string, 0, len(profileRoles)+1)
	add := func(r string) {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if isSuperuser {
		add(Admin)
	}
	for _, r := range profileRoles {
		add(r)
	}
	sort.Strings(out)
	return out
}

func contains(held []string, role string) bool {
	for _, r := range held {
		if r == role {
			return true
		}
	}
	return false
}

// Has reports whether held satisfies role. Admin satisfies everything.
func Has(held []string, role string) bool {
	role = strings.ToLower(role)
	if role == Employee {
		return true
	}
	return contains(held, role) || contains(held, Admin)
}

// HasStrict reports whether held contains role itself.
func HasStrict(held []string, role string) bool {
	role = strings.ToLower(role)
	if role == Employee {
		return true
	}
	return contains(held, role)
}
