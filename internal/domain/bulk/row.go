package bulk

// RowAction is the classification of one import row
type RowAction string

const (
	RowActionCreate RowAction = "create"
	RowActionUpdate RowAction = "update"
	RowActionSkip   RowAction = "skip"
	RowActionError  RowAction = "error"
)

// StockMode controls how an inventory quantity is applied
type StockMode string

const (
	// StockModeSet replaces the quantity
	StockModeSet StockMode = "set"
	// StockModeIncrement adds to the existing quantity
	StockModeIncrement StockMode = "increment"
)

// IsValid checks if the stock mode is valid
func (m StockMode) IsValid() bool {
	return m == StockModeSet || m == StockModeIncrement
}

// NormalizedFields lists the field names accepted after header mapping
var NormalizedFields = []string{
	"title",
	"description",
	"brand",
	"category_name",
	"subcategory_name",
	"sku",
	"price",
	"currency",
	"weight",
	"dims",
	"media_urls",
	"qty_available",
	"safety_stock",
	"warehouse",
	"stock_mode",
	"product_key",
	"product_productSku",
	"attributes",
	"vid",
	"variant_key",
}

// NormalizedRow is one import row in the fixed schema. Numeric fields keep
// their source text so validation can report unparseable values.
type NormalizedRow struct {
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Brand           string         `json:"brand"`
	CategoryName    string         `json:"category_name"`
	SubcategoryName string         `json:"subcategory_name"`
	SKU             string         `json:"sku"`
	Price           string         `json:"price"`
	Currency        string         `json:"currency"`
	Weight          string         `json:"weight"`
	Dims            map[string]any `json:"dims"`
	MediaURLs       []string       `json:"media_urls"`
	QtyAvailable    string         `json:"qty_available"`
	SafetyStock     string         `json:"safety_stock"`
	Warehouse       string         `json:"warehouse"`
	StockMode       StockMode      `json:"stock_mode"`
	ProductKey      string         `json:"product_key"`
	ProductSKU      string         `json:"product_productSku"`
	Attributes      map[string]any `json:"attributes"`
	VID             string         `json:"vid"`
	VariantKey      string         `json:"variant_key"`

	// Raw text of structured fields that could not be decoded as objects
	InvalidDims       string `json:"-"`
	InvalidAttributes string `json:"-"`
}

// HasInventory reports whether the row touches the inventory record
func (r *NormalizedRow) HasInventory() bool {
	return r.QtyAvailable != "" || r.SafetyStock != "" || r.Warehouse != ""
}

// PreviewRow is a normalized row with its validation errors and action
type PreviewRow struct {
	NormalizedRow
	RowIndex int       `json:"row_index"`
	Errors   []string  `json:"errors"`
	Action   RowAction `json:"action"`
}

// PreviewStats aggregates preview actions
type PreviewStats struct {
	Total    int `json:"total"`
	ToCreate int `json:"to_create"`
	ToUpdate int `json:"to_update"`
	ToSkip   int `json:"to_skip"`
	Errors   int `json:"errors"`
}

// Count tallies one action
func (s *PreviewStats) Count(action RowAction) {
	s.Total++
	switch action {
	case RowActionCreate:
		s.ToCreate++
	case RowActionUpdate:
		s.ToUpdate++
	case RowActionSkip:
		s.ToSkip++
	case RowActionError:
		s.Errors++
	}
}

// Classify decides the action for a validated row from SKU existence
func Classify(hasErrors, exists, upsert bool) RowAction {
	switch {
	case hasErrors:
		return RowActionError
	case exists && upsert:
		return RowActionUpdate
	case exists:
		return RowActionSkip
	default:
		return RowActionCreate
	}
}
