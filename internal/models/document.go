package models

import "time"

// DocumentStatus records OCR collaborator activity on a document. Documents
// are passive and have no cancellation path.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is a file record attached to exactly one case.
type Document struct {
	ID        string         `db:"id" json:"document_id"`
	CaseID    string         `db:"case_id" json:"case_id"`
	Filename  string         `db:"filename" json:"filename"`
	Status    DocumentStatus `db:"status" json:"status"`
	SourceURL *string        `db:"source_url" json:"url,omitempty"`
	Metadata  Metadata       `db:"metadata" json:"metadata"`
	OCRResult Metadata       `db:"ocr_result" json:"ocr_result,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
