package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/xuri/excelize/v2"
)

// Export formats
const (
	ExportPDF  = "pdf"
	ExportCSV  = "csv"
	ExportJSON = "json"
	ExportXLSX = "xlsx"
)

// ExportFile rendered export ready to be streamed.
type ExportFile struct {
	FileName    string
	ContentType string
	Body        []byte
}

var bomExportHeaders = []string{
	"bom_id", "bom_title", "bom_project", "bom_status", "bom_owner_email",
	"bom_created_at", "bom_updated_at", "bom_data",
	"item_id", "item_name", "item_description", "item_quantity", "item_unit",
	"item_currency", "item_unit_price", "item_tax_percent", "item_vendor",
	"item_category", "item_link", "item_notes", "item_data",
	"item_signoff_status", "item_signoff_assignee_email", "item_ordered_at",
	"item_eta_date", "item_received_quantity", "item_received_at",
}

// Export renders a visible BOM. An empty format means pdf.
func (s *BomService) Export(ctx context.Context, actor Actor, bomID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportPDF
	}
	bom, err := s.visibleBom(ctx, actor, bomID)
	if err != nil {
		return nil, err
	}

	base := "bom-" + bom.ID
	switch format {
	case ExportCSV:
		body, err := exportCSV(bom)
		if err != nil {
			return nil, err
		}
		return &ExportFile{FileName: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case ExportJSON:
		body, err := json.MarshalIndent(bom, "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportFile{FileName: base + ".json", ContentType: "application/json", Body: body}, nil
	case ExportXLSX:
		body, err := exportXLSX(bom)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			FileName:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	case ExportPDF:
		body, err := exportPDF(bom)
		if err != nil {
			return nil, err
		}
		return &ExportFile{FileName: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	}
	return nil, invalid("unsupported export format %q", format)
}

func isoTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func decimal(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func jsonText(data entity.JSONB) string {
	if data == nil {
		return "{}"
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func ownerEmail(bom *entity.Bom) string {
	if bom.Owner == nil {
		return ""
	}
	return bom.Owner.Email
}

// exportRows one row per item, or a single BOM-only row when there are none.
func exportRows(bom *entity.Bom) [][]string {
	head := []string{
		bom.ID, bom.Title, bom.Project, bom.Status, ownerEmail(bom),
		isoTime(&bom.CreatedAt), isoTime(&bom.UpdatedAt), jsonText(bom.Data),
	}
	if len(bom.Items) == 0 {
		row := make([]string, len(bomExportHeaders))
		copy(row, head)
		return [][]string{row}
	}

	rows := make([][]string, 0, len(bom.Items))
	for i := range bom.Items {
		it := &bom.Items[i]
		assignee := ""
		if it.SignoffAssignee != nil {
			assignee = it.SignoffAssignee.Email
		}
		qty, received := it.Quantity, it.ReceivedQuantity
		row := append(append([]string{}, head...),
			it.ID, it.Name, it.Description, decimal(&qty), it.Unit,
			it.Currency, decimal(it.UnitPrice), decimal(it.TaxPercent), it.Vendor,
			it.Category, it.Link, it.Notes, jsonText(it.Data),
			it.SignoffStatus, assignee, isoTime(it.OrderedAt),
			isoDate(it.ETADate), decimal(&received), isoTime(it.ReceivedAt),
		)
		rows = append(rows, row)
	}
	return rows
}

func exportCSV(bom *entity.Bom) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(bomExportHeaders); err != nil {
		return nil, err
	}
	if err := w.WriteAll(exportRows(bom)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportXLSX(bom *entity.Bom) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "BOM"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range bomExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r, row := range exportRows(bom) {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// cleanText flattens whitespace and clips to max runes with an ellipsis.
func cleanText(v string, max int) string {
	v = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(v))
	r := []rune(v)
	if max > 3 && len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return v
}

func exportPDF(bom *entity.Bom) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	line := func(h float64, text string) {
		pdf.CellFormat(0, h, tr(text), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 14)
	line(8, cleanText(fmt.Sprintf("BOM %s - %s", bom.ID, bom.Title), 120))

	dash := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}
	pdf.SetFont("Helvetica", "", 10)
	line(6, cleanText("Project: "+dash(bom.Project), 0))
	line(6, "Status: "+bom.Status)
	line(6, cleanText("Owner: "+dash(ownerEmail(bom)), 0))
	line(6, "Created: "+isoTime(&bom.CreatedAt))
	line(6, "Updated: "+isoTime(&bom.UpdatedAt))

	if len(bom.Data) > 0 {
		keys := make([]string, 0, len(bom.Data))
		for k := range bom.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 11)
		line(6, "BOM Data")
		pdf.SetFont("Helvetica", "", 9)
		for _, k := range keys {
			pdf.MultiCell(0, 5, tr(cleanText(fmt.Sprintf("%s: %v", k, bom.Data[k]), 200)), "", "L", false)
		}
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	line(6, "Items")

	columns := []struct {
		title string
		width float64
		max   int
	}{
		{"Item", 40, 24}, {"Qty", 12, 8}, {"Unit", 12, 6}, {"Currency", 14, 8},
		{"Unit Price", 18, 12}, {"Tax %", 10, 6}, {"Vendor", 28, 16},
		{"Category", 24, 14}, {"Link", 50, 32}, {"Data", 60, 40},
	}
	pdf.SetFont("Helvetica", "B", 8)
	for _, c := range columns {
		pdf.CellFormat(c.width, 6, c.title, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for i := range bom.Items {
		it := &bom.Items[i]
		qty := it.Quantity
		values := []string{
			it.Name, decimal(&qty), it.Unit, it.Currency, decimal(it.UnitPrice),
			decimal(it.TaxPercent), it.Vendor, it.Category, it.Link, jsonText(it.Data),
		}
		for j, c := range columns {
			pdf.CellFormat(c.width, 6, tr(cleanText(values[j], c.max)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
