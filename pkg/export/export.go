// Package export renders case listings as downloadable CSV or PDF reports
// for operator tooling.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/caseflow-api/internal/models"
)

var caseHeader = []string{"case_id", "name", "status", "extraction_status", "priority", "lease_holder", "lease_expires_at", "created_at", "updated_at"}

// CasesCSV renders the cases as a CSV document.
func CasesCSV(cases []models.Case) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(caseHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range cases {
		if err := w.Write(caseRow(c)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// CasesPDF renders the cases as a landscape PDF table.
func CasesPDF(cases []models.Case, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Case Report", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Case Report")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s — %d cases", generatedAt.Format(time.RFC3339), len(cases)))
	pdf.Ln(10)

	widths := []float64{52, 48, 32, 30, 16, 40, 30, 30}
	headers := []string{"Case ID", "Name", "Status", "Extraction", "Prio", "Lease Holder", "Expires", "Created"}

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, c := range cases {
		row := []string{
			c.ID,
			truncate(c.Name, 30),
			string(c.Status),
			string(c.ExtractionStatus),
			strconv.Itoa(c.Priority),
			deref(c.LeaseHolder),
			shortTime(c.LeaseExpiresAt),
			c.CreatedAt.Format("2006-01-02 15:04"),
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func caseRow(c models.Case) []string {
	return []string{
		c.ID,
		c.Name,
		string(c.Status),
		string(c.ExtractionStatus),
		strconv.Itoa(c.Priority),
		deref(c.LeaseHolder),
		fullTime(c.LeaseExpiresAt),
		c.CreatedAt.Format(time.RFC3339),
		c.UpdatedAt.Format(time.RFC3339),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fullTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func shortTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
