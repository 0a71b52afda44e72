package csvimport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/catalog"
)

// ApplyMapping remaps supplier headers to normalized field names.
// mapping is {normalized_field: supplier_header}; blank headers are ignored.
// Keys that already carry a normalized name pass through unless mapped.
func ApplyMapping(raw map[string]any, mapping map[string]string) map[string]any {
	if len(mapping) == 0 {
		return raw
	}
	out := make(map[string]any, len(mapping))
	for field, header := range mapping {
		if header = strings.TrimSpace(header); header != "" {
			out[field] = raw[header]
		}
	}
	for _, field := range bulk.NormalizedFields {
		if _, mapped := out[field]; mapped {
			continue
		}
		if v, ok := raw[field]; ok {
			out[field] = v
		}
	}
	return out
}

// Normalize maps a raw row onto the fixed import schema, accepting the
// common aliases (name, desc, category, subcategory, SKU, price_base,
// amount, images). Structured fields arriving as text are decoded from JSON.
func Normalize(raw map[string]any) bulk.NormalizedRow {
	if raw == nil {
		raw = map[string]any{}
	}

	row := bulk.NormalizedRow{
		Title:           first(raw, "title", "name"),
		Description:     first(raw, "description", "desc"),
		Brand:           first(raw, "brand"),
		CategoryName:    first(raw, "category_name", "category"),
		SubcategoryName: first(raw, "subcategory_name", "subcategory"),
		SKU:             first(raw, "sku", "SKU"),
		Price:           first(raw, "price", "price_base", "amount"),
		Currency:        strings.ToUpper(first(raw, "currency")),
		Weight:          first(raw, "weight"),
		QtyAvailable:    first(raw, "qty_available"),
		SafetyStock:     first(raw, "safety_stock"),
		Warehouse:       first(raw, "warehouse"),
		StockMode:       bulk.StockMode(strings.ToLower(first(raw, "stock_mode"))),
		ProductKey:      first(raw, "product_key"),
		ProductSKU:      first(raw, "product_productSku"),
		VID:             first(raw, "vid"),
		VariantKey:      first(raw, "variant_key"),
	}
	if row.Currency == "" {
		row.Currency = string(catalog.DefaultCurrency)
	}
	if row.StockMode == "" {
		row.StockMode = bulk.StockModeSet
	}

	row.Dims, row.InvalidDims = objectField(raw["dims"])
	row.Attributes, row.InvalidAttributes = objectField(raw["attributes"])

	media := raw["media_urls"]
	if isBlank(media) {
		media = raw["images"]
	}
	row.MediaURLs = urlList(media)

	return row
}

// first returns the first non-blank value among keys, as trimmed text
func first(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := cellText(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

// cellText renders a decoded cell as trimmed text. JSON null is "".
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		blob, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(blob)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	}
	return false
}

// objectField decodes a structured field. Absent or blank values give an
// empty object; anything that is not an object is returned as invalid text.
func objectField(v any) (map[string]any, string) {
	switch t := v.(type) {
	case nil:
		return map[string]any{}, ""
	case map[string]any:
		return t, ""
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "{}" {
			return map[string]any{}, ""
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil || m == nil {
			return map[string]any{}, s
		}
		return m, ""
	}
	return map[string]any{}, cellText(v)
}

// urlList accepts a JSON array, a JSON array encoded as text, or a
// "|"-separated list
func urlList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			parts = append(parts, cellText(e))
		}
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "[") {
			var decoded []any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return urlList(decoded)
			}
		}
		parts = strings.Split(s, "|")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
