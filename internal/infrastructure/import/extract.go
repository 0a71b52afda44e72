package csvimport

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/infrastructure/dropship/variantkey"
)

// ErrUnsupportedDump is returned when a dump is neither an object nor a list
var ErrUnsupportedDump = errors.New("import: unsupported JSON structure, expected object or list")

// MinimalProduct is the per-product digest of a raw CJ dump
type MinimalProduct struct {
	PID        string           `json:"pid"`
	ProductSKU string           `json:"productSku"`
	Title      string           `json:"title"`
	Category   string           `json:"category"`
	Axes       []string         `json:"axes"`
	Images     []string         `json:"images"`
	Variants   []MinimalVariant `json:"variants"`
}

// MinimalVariant is one variant of a MinimalProduct. Dimensions are in mm
// under the keys long, width and height; unparseable values are nil.
type MinimalVariant struct {
	VID        string              `json:"vid"`
	VariantSKU string              `json:"variantSku"`
	VariantKey string              `json:"variantKey"`
	Attributes map[string]string   `json:"attributes"`
	Price      any                 `json:"price"`
	WeightG    any                 `json:"weight_g"`
	DimsMM     map[string]*float64 `json:"dims_mm"`
	Image      string              `json:"image"`
}

// MinimalCSVHeaders are the columns written by MinimalToCSV
var MinimalCSVHeaders = []string{
	"pid", "title", "category", "axes", "vid", "variantSku", "variantKey",
	"attributes", "price", "weight_g", "long", "width", "height", "image",
}

// ExtractMinimal digests a raw dump: an {"items": [...]} envelope, a list of
// products or a single product object. Entries that are not objects are
// skipped.
func ExtractMinimal(data any) ([]MinimalProduct, error) {
	var products []any
	switch t := data.(type) {
	case map[string]any:
		if items, ok := t["items"].([]any); ok {
			products = items
		} else {
			products = []any{t}
		}
	case []any:
		products = t
	default:
		return nil, ErrUnsupportedDump
	}

	out := make([]MinimalProduct, 0, len(products))
	for _, p := range products {
		obj, ok := p.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, minimalProduct(obj))
	}
	return out, nil
}

func minimalProduct(p map[string]any) MinimalProduct {
	axes := parseAxes(cellText(p["productKeyEn"]))
	item := MinimalProduct{
		PID:        cellText(p["pid"]),
		ProductSKU: cellText(p["productSku"]),
		Title:      cellText(p["productNameEn"]),
		Category:   cellText(p["categoryName"]),
		Axes:       axes,
		Images:     stringSlice(p["productImageSet"]),
		Variants:   []MinimalVariant{},
	}
	variants, _ := p["variants"].([]any)
	for _, raw := range variants {
		v, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		key := cellText(v["variantKey"])
		item.Variants = append(item.Variants, MinimalVariant{
			VID:        cellText(v["vid"]),
			VariantSKU: cellText(v["variantSku"]),
			VariantKey: key,
			Attributes: splitVariantKey(key, axes),
			Price:      v["variantSellPrice"],
			WeightG:    v["variantWeight"],
			DimsMM:     parseStandard(cellText(v["variantStandard"])),
			Image:      cellText(v["variantImage"]),
		})
	}
	return item
}

// parseAxes splits an axis label such as "Color-Size"
func parseAxes(s string) []string {
	axes := []string{}
	for _, a := range strings.Split(variantkey.NormalizeDashes(s), "-") {
		if a = strings.TrimSpace(a); a != "" {
			axes = append(axes, a)
		}
	}
	return axes
}

// splitVariantKey maps the parts of key onto axes in order. A count
// mismatch keeps the raw key under "_raw".
func splitVariantKey(key string, axes []string) map[string]string {
	out := map[string]string{}
	if key == "" || len(axes) == 0 {
		return out
	}
	parts := strings.Split(key, "-")
	if len(parts) != len(axes) {
		out["_raw"] = key
		return out
	}
	for i, axis := range axes {
		out[axis] = strings.TrimSpace(parts[i])
	}
	return out
}

// parseStandard reads "long=220,width=50,height=270"
func parseStandard(standard string) map[string]*float64 {
	dims := map[string]*float64{"long": nil, "width": nil, "height": nil}
	for _, kv := range strings.Split(standard, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			dims[k] = &f
		} else {
			dims[k] = nil
		}
	}
	return dims
}

// MinimalToCSV flattens products to one row per variant. A product without
// variants still yields one row so the gap is visible in a spreadsheet.
func MinimalToCSV(products []MinimalProduct) ([]string, [][]string) {
	var rows [][]string
	for _, p := range products {
		axes := p.Axes
		if axes == nil {
			axes = []string{}
		}
		axesJSON, _ := json.Marshal(axes)

		if len(p.Variants) == 0 {
			rows = append(rows, []string{
				p.PID, p.Title, p.Category, string(axesJSON),
				"", "", "", "{}", "", "", "", "", "", "",
			})
			continue
		}
		for _, v := range p.Variants {
			attrs := v.Attributes
			if attrs == nil {
				attrs = map[string]string{}
			}
			attrsJSON, _ := json.Marshal(attrs)
			rows = append(rows, []string{
				p.PID, p.Title, p.Category, string(axesJSON),
				v.VID, v.VariantSKU, v.VariantKey, string(attrsJSON),
				cellText(v.Price), cellText(v.WeightG),
				floatText(v.DimsMM["long"]), floatText(v.DimsMM["width"]), floatText(v.DimsMM["height"]),
				v.Image,
			})
		}
	}
	return MinimalCSVHeaders, rows
}

// WriteMinimalCSV writes the flattened digest with a UTF-8 BOM so
// spreadsheet tools detect the encoding.
func WriteMinimalCSV(w io.Writer, products []MinimalProduct) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	headers, rows := MinimalToCSV(products)
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func floatText(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// ---------------------------------------------------------------------------
// Minimal dump -> normalized rows
// ---------------------------------------------------------------------------

// axisAliases hints how supplier axis names map to attribute keys
var axisAliases = map[string]string{
	"specification":  variantkey.KeySize,
	"specifications": variantkey.KeySize,
	"style":          variantkey.KeySize,
	"capacity":       variantkey.KeySize,
	"model":          variantkey.KeySize,
	"size":           variantkey.KeySize,
	"color":          variantkey.KeyColor,
	"colour":         variantkey.KeyColor,
	"light color":    variantkey.KeyColor,
}

// IsMinimalDump reports whether list looks like a minimal per-product dump:
// its first entry is an object carrying "variants".
func IsMinimalDump(list []any) bool {
	if len(list) == 0 {
		return false
	}
	head, ok := list[0].(map[string]any)
	if !ok {
		return false
	}
	_, ok = head["variants"]
	return ok
}

// FlattenMinimal turns minimal (or raw CJ) product entries into one
// normalized row per variant. Grams become kg, mm become cm and color/size
// are derived from the variant key. Entries that are not objects are dropped.
func FlattenMinimal(list []any) []any {
	var rows []any
	for _, entry := range list {
		p, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		title := first(p, "title", "productNameEn")
		category := first(p, "category", "categoryName")
		images := stringSlice(p["images"])
		if len(images) == 0 {
			images = stringSlice(p["productImageSet"])
		}
		mainImage := ""
		if len(images) > 0 {
			mainImage = images[0]
		}

		productKey := first(p, "pid", "productSku", "title")
		if productKey == "" {
			productKey = title
		}

		variants, _ := p["variants"].([]any)
		for _, raw := range variants {
			v, ok := raw.(map[string]any)
			if !ok {
				continue
			}

			media := []any{}
			if img := first(v, "image", "variantImage"); img != "" {
				media = append(media, img)
			} else if mainImage != "" {
				media = append(media, mainImage)
			}

			variantKey := first(v, "variantKey")
			rows = append(rows, map[string]any{
				"product_key":        productKey,
				"product_productSku": first(p, "productSku"),
				"title":              title,
				"description":        "",
				"brand":              "",
				"category_name":      category,
				"subcategory_name":   "",
				"sku":                first(v, "variantSku"),
				"price":              first(v, "price", "variantSellPrice"),
				"currency":           string(catalog.DefaultCurrency),
				"weight":             kgFromGrams(first(v, "weight_g", "variantWeight")),
				"dims":               dimsFromMM(v),
				"media_urls":         media,
				"vid":                first(v, "vid"),
				"variant_key":        variantKey,
				"attributes":         variantAttributes(variantKey, v["attributes"]),
				"stock_mode":         string(bulk.StockModeSet),
			})
		}
	}
	return rows
}

func kgFromGrams(g string) string {
	f, err := strconv.ParseFloat(g, 64)
	if err != nil {
		return ""
	}
	return strconv.FormatFloat(f/1000.0, 'f', 3, 64)
}

// dimsFromMM reads dims_mm (or a raw variantStandard) and converts to cm.
// An empty object is returned when no dimension is known.
func dimsFromMM(v map[string]any) map[string]any {
	mm := map[string]any{}
	switch t := v["dims_mm"].(type) {
	case map[string]any:
		mm = t
	default:
		if s := first(v, "variantStandard"); s != "" {
			for k, f := range parseStandard(s) {
				if f != nil {
					mm[k] = *f
				}
			}
		}
	}

	out := map[string]any{}
	for src, dst := range map[string]string{"long": "l", "width": "w", "height": "h"} {
		f, err := strconv.ParseFloat(cellText(mm[src]), 64)
		if err != nil {
			continue
		}
		out[dst] = f / 10.0
	}
	if len(out) == 0 {
		return out
	}
	out["unit"] = "cm"
	return out
}

// variantAttributes derives color and size from the variant key, then fills
// gaps from the supplier's own axis attributes
func variantAttributes(key string, supplierAttrs any) map[string]any {
	out := map[string]any{}
	for k, v := range variantkey.Parse(key) {
		out[k] = v
	}
	attrs, _ := supplierAttrs.(map[string]any)
	for k, v := range attrs {
		val := cellText(v)
		if val == "" || k == "_raw" {
			continue
		}
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, ok := out[variantkey.KeyColor]; !ok && (strings.Contains(lk, variantkey.KeyColor) || axisAliases[lk] == variantkey.KeyColor) {
			out[variantkey.KeyColor] = val
			continue
		}
		if _, ok := out[variantkey.KeySize]; !ok && axisAliases[lk] == variantkey.KeySize {
			out[variantkey.KeySize] = val
		}
	}
	return out
}

func stringSlice(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s := cellText(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}
