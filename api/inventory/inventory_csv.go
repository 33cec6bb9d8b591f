package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lattice/infrastructure/apperr"
	"lattice/models"
)

var inboundDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

var exportHeader = []string{
	"id", "stockNumber", "inboundOrderNumber", "description", "quantity", "location", "status",
	"inboundDate", "inboundReference", "storageCostPerWeek", "rhdIn", "rhdOut", "customerName",
}

// ParseCSV reads an inventory spreadsheet export. mapping picks the CSV
// header for each app field; unmapped fields use a header of the same name.
// Blank or unparsable cells fall back to the stored defaults.
func ParseCSV(r io.Reader, mapping Mapping, now time.Time) ([]models.InventoryItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperr.Validation("read CSV header: %v", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	column := func(field string) (int, bool) {
		name := field
		if mapped, ok := mapping[field]; ok && strings.TrimSpace(mapped) != "" {
			name = strings.TrimSpace(mapped)
		}
		i, ok := index[name]
		return i, ok
	}

	var items []models.InventoryItem
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Validation("line %d: %v", line, err)
		}
		cell := func(field string) string {
			i, ok := column(field)
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if isBlank(record) {
			continue
		}

		item := models.InventoryItem{
			StockNumber:        orDefault(cell("stockNumber"), DefaultText),
			Description:        orDefault(cell("description"), DefaultText),
			Quantity:           atoiOrZero(cell("quantity")),
			Location:           orDefault(cell("location"), DefaultText),
			Status:             orDefault(cell("status"), DefaultStatus),
			InboundReference:   orDefault(cell("inboundReference"), DefaultText),
			StorageCostPerWeek: decimalOrZero(cell("storageCostPerWeek")),
			RhdIn:              decimalOrZero(cell("rhdIn")),
			RhdOut:             decimalOrZero(cell("rhdOut")),
		}
		if v := cell("inboundOrderNumber"); v != "" {
			item.InboundOrderNumber = &v
		}
		item.InboundDate, err = inboundDate(cell("inboundDate"), now)
		if err != nil {
			return nil, apperr.Validation("line %d: %v", line, err)
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, apperr.Validation("CSV contains no rows")
	}
	return items, nil
}

// WriteCSV writes items with a header row.
func WriteCSV(w io.Writer, items []models.InventoryItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, it := range items {
		orderNumber := ""
		if it.InboundOrderNumber != nil {
			orderNumber = *it.InboundOrderNumber
		}
		if err := cw.Write([]string{
			it.ID,
			it.StockNumber,
			orderNumber,
			it.Description,
			strconv.Itoa(it.Quantity),
			it.Location,
			it.Status,
			it.InboundDate,
			it.InboundReference,
			it.StorageCostPerWeek.String(),
			it.RhdIn.String(),
			it.RhdOut.String(),
			it.CustomerName,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func inboundDate(v string, now time.Time) (string, error) {
	if v == "" {
		return now.UTC().Format(time.RFC3339), nil
	}
	for _, layout := range inboundDateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("invalid inbound date %q", v)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func atoiOrZero(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func decimalOrZero(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
