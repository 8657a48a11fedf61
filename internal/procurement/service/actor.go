package service

import "github.com/uthejd-slx/procura-backend/internal/shared/roles"

// Actor the authenticated user performing an operation.
type Actor struct {
	ID    string
	Email string
	Roles []string
}

func (a Actor) Has(role string) bool {
	return roles.Has(a.Roles, role)
}

func (a Actor) HasStrict(role string) bool {
	return roles.HasStrict(a.Roles, role)
}

func (a Actor) IsAdmin() bool {
	return roles.Has(a.Roles, roles.Admin)
}

// SeesAll admins and procurement staff see every record of most lists.
func (a Actor) SeesAll() bool {
	return a.IsAdmin() || a.Has(roles.Procurement)
}

// visibleTo returns "" when the actor sees everything, otherwise its own id.
func (a Actor) visibleTo() string {
	if a.SeesAll() {
		return ""
	}
	return a.ID
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
