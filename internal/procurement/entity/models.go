package entity

// All lists every model for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&BomTemplate{},
		&Bom{},
		&BomItem{},
		&BomCollaborator{},
		&BomEvent{},
		&ProcurementApprovalRequest{},
		&ProcurementApproval{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&Asset{},
		&PartnerCompany{},
		&Transfer{},
		&TransferItem{},
		&Notification{},
		&Attachment{},
		&CatalogItem{},
		&SearchHistory{},
		&Feedback{},
		&Bill{},
	}
}
