package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ImportResult outcome of a CSV item import.
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// decodeText returns a UTF-8 reader for raw. A byte-order mark selects
// UTF-8 or UTF-16; otherwise the input is UTF-8 when valid, else Windows-1252.
func decodeText(raw []byte) io.Reader {
	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	if !utf8.Valid(raw) {
		fallback = charmap.Windows1252.NewDecoder()
	}
	return transform.NewReader(bytes.NewReader(raw), unicode.BOMOverride(fallback))
}

func readCSV(raw []byte) ([][]string, error) {
	r := csv.NewReader(decodeText(raw))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, invalid("could not parse CSV: %s", err.Error())
	}
	return rows, nil
}

func readXLSX(raw []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, invalid("could not parse spreadsheet: %s", err.Error())
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, invalid("spreadsheet has no sheets")
	}
	return f.GetRows(sheets[0])
}

func parseOptionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	if !finite(v) {
		return nil, fmt.Errorf("%q is not a finite number", raw)
	}
	return &v, nil
}

// Import adds items from an uploaded CSV (or xlsx) file to an editable BOM.
// Rows without a name are skipped; invalid rows are reported and skipped.
func (s *BomService) Import(ctx context.Context, actor Actor, bomID, fileName string, body io.Reader) (*ImportResult, error) {
	bom, err := s.editableBom(ctx, actor, bomID)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	var rows [][]string
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		rows, err = readXLSX(raw)
	} else {
		rows, err = readCSV(raw)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, invalid("file is empty")
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, invalid("missing required column: name")
	}
	get := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	result := &ImportResult{Errors: []string{}}
	var items []entity.BomItem
	for n, row := range rows[1:] {
		line := n + 2
		if get(row, "name") == "" {
			result.Skipped++
			continue
		}
		in := BomItemInput{
			Name:        get(row, "name"),
			Description: get(row, "description"),
			Unit:        get(row, "unit"),
			Currency:    get(row, "currency"),
			Vendor:      get(row, "vendor"),
			Category:    get(row, "category"),
			Link:        get(row, "link"),
			Notes:       get(row, "notes"),
		}
		var perr error
		if in.Quantity, perr = parseOptionalFloat(get(row, "quantity")); perr != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid quantity", line))
			continue
		}
		if in.UnitPrice, perr = parseOptionalFloat(get(row, "unit_price")); perr != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid unit_price", line))
			continue
		}
		if in.TaxPercent, perr = parseOptionalFloat(get(row, "tax_percent")); perr != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid tax_percent", line))
			continue
		}
		item, err := in.build(bom.ID)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %s", line, err.Error()))
			continue
		}
		items = append(items, *item)
	}

	if len(items) > 0 {
		err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := tx.Bom.CreateItems(ctx, items); err != nil {
				return err
			}
			if err := logEvent(ctx, tx, bom.ID, actor, EventBomItemsImported, fileName, entity.JSONB{
				"created": len(items),
				"skipped": result.Skipped,
			}); err != nil {
				return err
			}
			_, err := recomputeBom(ctx, tx, bom.ID)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	result.Created = len(items)
	return result, nil
}
