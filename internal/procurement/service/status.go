package service

import "github.com/uthejd-slx/procura-backend/internal/procurement/entity"

// DeriveBomStatus computes a BOM's status from its items and its latest
// procurement approval request. latest may be nil.
func DeriveBomStatus(current string, items []entity.BomItem, latest *entity.ProcurementApprovalRequest) string {
	if current == entity.BomStatusCanceled || current == entity.BomStatusCompleted {
		return current
	}

	for i := range items {
		if items[i].SignoffStatus == entity.SignoffRequested {
			return entity.BomStatusSignoffPending
		}
	}

	if latest != nil {
		switch latest.Status {
		case entity.ApprovalRequestPending:
			return entity.BomStatusApprovalPending
		case entity.ApprovalRequestNeedsChanges:
			return entity.BomStatusNeedsChanges
		case entity.ApprovalRequestApproved:
			return approvedProgress(items)
		}
	}

	return entity.BomStatusDraft
}

// approvedProgress refines APPROVED by ordering and receiving progress.
func approvedProgress(items []entity.BomItem) string {
	if len(items) == 0 {
		return entity.BomStatusApproved
	}
	allReceived, anyReceived, anyOrdered := true, false, false
	for i := range items {
		if !items[i].IsFullyReceived() {
			allReceived = false
		}
		if items[i].ReceivedQuantity > 0 {
			anyReceived = true
		}
		if items[i].OrderedAt != nil {
			anyOrdered = true
		}
	}
	switch {
	case allReceived:
		return entity.BomStatusCompleted
	case anyReceived:
		return entity.BomStatusReceiving
	case anyOrdered:
		return entity.BomStatusOrdered
	default:
		return entity.BomStatusApproved
	}
}

// DerivePOStatus computes a PO status from its items. ok is false when the
// status should be left unchanged.
func DerivePOStatus(current string, items []entity.PurchaseOrderItem) (status string, ok bool) {
	if current == entity.POStatusCanceled || len(items) == 0 {
		return current, false
	}
	allReceived, anyReceived := true, false
	for i := range items {
		if !items[i].IsFullyReceived() {
			allReceived = false
		}
		if items[i].ReceivedQuantity > 0 {
			anyReceived = true
		}
	}
	switch {
	case allReceived:
		return entity.POStatusReceived, true
	case anyReceived:
		return entity.POStatusPartial, true
	default:
		return current, false
	}
}
