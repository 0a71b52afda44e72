package dropship

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/domain/supplier"
	"github.com/supplysync/backend/internal/infrastructure/dropship/variantkey"
)

// cjCurrency is the currency CJ quotes prices in
const cjCurrency = catalog.CurrencyUSD

var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)

// MapToInternal turns a CJ product detail into the normalized record.
// It fails only when the payload has no product id.
func (a *CJAdapter) MapToInternal(raw supplier.RawItem) (*supplier.NormalizedProduct, error) {
	return MapCJProduct(raw)
}

// MapCJProduct is the pure mapping behind CJAdapter.MapToInternal
func MapCJProduct(raw supplier.RawItem) (*supplier.NormalizedProduct, error) {
	externalID := raw.String("pid")
	if externalID == "" {
		return nil, fmt.Errorf("%w: product without pid", supplier.ErrInvalidResponse)
	}

	description := raw.String("description")
	path := SplitCategoryPath(raw.String("categoryName"))

	product := supplier.ProductFields{
		Title:              cjTitle(raw),
		Description:        description,
		CategoryID:         raw.String("categoryId"),
		CategoryPath:       path,
		CategoryBreadcrumb: strings.Join(path, " > "),
		IsActive:           true,
	}
	if len(path) > 0 {
		product.CategoryRoot = path[0]
		product.CategoryLeaf = path[len(path)-1]
		product.Category = product.CategoryLeaf
	}

	images := stringList(raw["productImageSet"])
	if len(images) == 0 {
		images = JSONList(raw["productImage"])
	}
	images = append(images, ExtractImagesFromHTML(description)...)

	var media []supplier.MediaRef
	seen := make(map[string]struct{}, len(images))
	for _, u := range images {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		media = append(media, supplier.MediaRef{URL: u, Kind: catalog.MediaKindExternal})
	}

	var variants []supplier.VariantRecord
	if list, ok := raw["variants"].([]any); ok {
		for _, e := range list {
			v, ok := e.(map[string]any)
			if !ok {
				continue
			}
			variants = append(variants, mapCJVariant(supplier.RawItem(v)))
		}
	}

	return &supplier.NormalizedProduct{
		External: supplier.ExternalIdentity{ProviderCode: CJProviderCode, ExternalID: externalID},
		Product:  product,
		Variants: variants,
		Media:    media,
		Raw:      raw,
	}, nil
}

func mapCJVariant(v supplier.RawItem) supplier.VariantRecord {
	key := v.String("variantKey")

	attrs := make(map[string]any)
	name := v.String("variantNameEn")
	if name == "" {
		name = v.String("variantName")
	}
	if name != "" {
		attrs["name"] = name
	}
	if key != "" {
		attrs["key"] = key
	}
	if unit := v.String("variantUnit"); unit != "" {
		attrs["unit"] = unit
	}
	for k, val := range variantkey.Parse(key) {
		attrs[k] = val
	}

	rec := supplier.VariantRecord{
		ExternalVariantID: v.String("vid"),
		SKU:               v.String("variantSku"),
		Price:             toDecimal(v["variantSellPrice"]),
		Currency:          cjCurrency,
		Attributes:        attrs,
		Dims: map[string]any{
			"length": toDecimal(v["variantLength"]).InexactFloat64(),
			"width":  toDecimal(v["variantWidth"]).InexactFloat64(),
			"height": toDecimal(v["variantHeight"]).InexactFloat64(),
		},
		ImageURL: v.String("variantImage"),
		IsActive: true,
	}
	if w := v.String("variantWeight"); w != "" {
		weight := toDecimal(v["variantWeight"])
		rec.Weight = &weight
	}
	return rec
}

// cjTitle applies the title fallbacks: English name, first of the name set,
// first of the JSON-encoded name list, then "Untitled"
func cjTitle(raw supplier.RawItem) string {
	if t := raw.String("productNameEn"); t != "" {
		return t
	}
	names := stringList(raw["productNameSet"])
	if len(names) == 0 {
		names = JSONList(raw["productName"])
	}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			return n
		}
	}
	return "Untitled"
}

// SplitCategoryPath splits "A > B > C" into its non-empty parts
func SplitCategoryPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ">") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// ExtractImagesFromHTML returns the src of every <img> tag in html
func ExtractImagesFromHTML(html string) []string {
	var urls []string
	for _, m := range imgSrcPattern.FindAllStringSubmatch(html, -1) {
		urls = append(urls, m[1])
	}
	return urls
}

// JSONList decodes a JSON array held in a string ("[\"a\",\"b\"]"). A plain
// string becomes a one-element list.
func JSONList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return stringList(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			var parsed []any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return nil
			}
			return stringList(parsed)
		}
		return []string{t}
	}
	return nil
}

// stringList renders a JSON array (or a single value) as strings
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := supplier.ScalarString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	default:
		if s := supplier.ScalarString(t); s != "" {
			return []string{s}
		}
	}
	return nil
}

// toDecimal parses a JSON number or numeric string, defaulting to zero
func toDecimal(v any) decimal.Decimal {
	s := supplier.ScalarString(v)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
