package csvimport

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
)

// TemplateHeaders are the columns of the downloadable CSV template
var TemplateHeaders = []string{
	"title", "description", "brand", "category_name", "subcategory_name", "sku",
	"price", "currency", "media_urls", "qty_available", "safety_stock", "warehouse", "stock_mode",
}

// TemplateRows returns the example rows shared by both template formats
func TemplateRows() []map[string]any {
	return []map[string]any{
		{
			"title":            "Widget A",
			"description":      "Example",
			"brand":            "ACME",
			"category_name":    "Gadgets",
			"subcategory_name": "Widgets",
			"sku":              "A-001",
			"price":            "19.99",
			"currency":         "USD",
			"media_urls":       []string{"https://example.com/image-a.jpg"},
			"qty_available":    20,
			"safety_stock":     2,
			"warehouse":        "Main",
			"stock_mode":       "set",
		},
	}
}

// TemplateJSON renders the template as an indented JSON array
func TemplateJSON() ([]byte, error) {
	return json.MarshalIndent(TemplateRows(), "", "  ")
}

// TemplateCSV renders the template as CSV. media_urls is written as a JSON
// array in a single cell.
func TemplateCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(TemplateHeaders); err != nil {
		return nil, err
	}
	for _, row := range TemplateRows() {
		record := make([]string, 0, len(TemplateHeaders))
		for _, h := range TemplateHeaders {
			v := row[h]
			if list, ok := v.([]string); ok {
				blob, err := json.Marshal(list)
				if err != nil {
					return nil, err
				}
				record = append(record, string(blob))
				continue
			}
			record = append(record, cellText(v))
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
