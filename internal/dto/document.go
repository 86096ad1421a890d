package dto

import "github.com/noah-isme/caseflow-api/internal/models"

// CreateDocumentRequest attaches a document to a case. URL accepts any source
// locator, including file:// schemes, and is opaque to the coordinator.
type CreateDocumentRequest struct {
	Filename string          `json:"filename" binding:"required" validate:"required"`
	URL      *string         `json:"url,omitempty"`
	Metadata models.Metadata `json:"metadata,omitempty"`
}

// DocumentResultRequest records the OCR collaborator's outcome for a document.
type DocumentResultRequest struct {
	Status    models.DocumentStatus `json:"status" binding:"required" validate:"required,oneof=processing completed failed"`
	OCRResult models.Metadata       `json:"ocr_result,omitempty"`
}
