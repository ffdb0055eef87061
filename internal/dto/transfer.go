package dto

// BatchTransferRequest moves a set of students from one class to another in
// a single operation.
type BatchTransferRequest struct {
	SourceClassID      string   `json:"source_class_id" validate:"required"`
	DestinationClassID string   `json:"destination_class_id" validate:"required"`
	StudentIDs         []string `json:"student_ids" validate:"required,min=1"`
}

// UndoTransferRequest reverses a previously completed transfer. The acting
// user comes from the validated token, not the payload.
type UndoTransferRequest struct {
	TransferID string `json:"transfer_id" validate:"required"`
}

// ExportQuery selects the rendering for a transfer-history download.
type ExportQuery struct {
	Format string `form:"format"`
}
