package csvimport

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/catalog"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
)

// FieldRule defines validation rules for a field
type FieldRule struct {
	Column     string
	Type       FieldType
	Required   bool
	MaxLength  int
	CustomFunc func(value string) error
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{
		rule: FieldRule{
			Column: column,
			Type:   TypeString,
		},
	}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Int sets the field type to integer
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// MaxLength sets the maximum length in characters
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Custom sets a custom validation function; its error text is the message
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build returns the built field rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator checks text values against an ordered rule list
type FieldValidator struct {
	rules []FieldRule
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules []FieldRule) *FieldValidator {
	return &FieldValidator{rules: rules}
}

// ValidateFields returns one error per failing column, in rule order
func (v *FieldValidator) ValidateFields(line int, values map[string]string) []RowError {
	var errs []RowError
	for _, rule := range v.rules {
		value := values[rule.Column]

		if value == "" {
			if rule.Required {
				errs = append(errs, NewRowError(line, rule.Column, ErrCodeImportRequiredField,
					fmt.Sprintf("Missing required field: %s", rule.Column)))
			}
			continue
		}

		if err := validateType(value, rule.Type); err != nil {
			errs = append(errs, NewRowErrorWithValue(line, rule.Column, ErrCodeImportInvalidType,
				typeMessage(rule.Column, rule.Type), value))
			continue
		}

		if rule.MaxLength > 0 && len([]rune(value)) > rule.MaxLength {
			errs = append(errs, NewRowErrorWithValue(line, rule.Column, ErrCodeImportInvalidLength,
				fmt.Sprintf("%s must be at most %d characters.", rule.Column, rule.MaxLength), value))
			continue
		}

		if rule.CustomFunc != nil {
			if err := rule.CustomFunc(value); err != nil {
				errs = append(errs, NewRowErrorWithValue(line, rule.Column, ErrCodeImportInvalidChoice, err.Error(), value))
			}
		}
	}
	return errs
}

func validateType(value string, fieldType FieldType) error {
	switch fieldType {
	case TypeInt:
		_, err := ParseInt(value)
		return err
	case TypeDecimal:
		_, err := decimal.NewFromString(value)
		return err
	}
	return nil
}

func typeMessage(column string, fieldType FieldType) string {
	switch fieldType {
	case TypeInt:
		return fmt.Sprintf("%s must be integer.", column)
	case TypeDecimal:
		return fmt.Sprintf("%s must be a valid number (Decimal).", column)
	}
	return fmt.Sprintf("%s is invalid.", column)
}

// ParseInt accepts integers and integral decimals such as "20.0" that fit
// the INTEGER stock columns. Exponent forms are rejected.
func ParseInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if strings.ContainsAny(value, "eE") {
		return 0, errors.New("not an integer")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, errors.New("not an integer")
	}
	if d.LessThan(minStockInt) || d.GreaterThan(maxStockInt) {
		return 0, errors.New("integer out of range")
	}
	return int(d.IntPart()), nil
}

var (
	minStockInt = decimal.NewFromInt(math.MinInt32)
	maxStockInt = decimal.NewFromInt(math.MaxInt32)
)

// ---------------------------------------------------------------------------
// Row validation
// ---------------------------------------------------------------------------

var rowValidator = NewFieldValidator([]FieldRule{
	Field("title").Required().MaxLength(255).Build(),
	Field("sku").Required().MaxLength(catalog.MaxSKULength).Build(),
	Field("price").Required().Decimal().Build(),
	Field("currency").Custom(validateCurrency).Build(),
	Field("weight").Decimal().Build(),
	Field("qty_available").Int().Build(),
	Field("safety_stock").Int().Build(),
	Field("stock_mode").Custom(validateStockMode).Build(),
})

// Validate checks a normalized row. line is the 1-based row number used in
// the returned errors; an empty result means the row is valid.
func Validate(row *bulk.NormalizedRow, line int) []RowError {
	errs := rowValidator.ValidateFields(line, map[string]string{
		"title":         row.Title,
		"sku":           row.SKU,
		"price":         row.Price,
		"currency":      row.Currency,
		"weight":        row.Weight,
		"qty_available": row.QtyAvailable,
		"safety_stock":  row.SafetyStock,
		"stock_mode":    string(row.StockMode),
	})

	if row.InvalidDims != "" {
		errs = append(errs, NewRowErrorWithValue(line, "dims", ErrCodeImportInvalidType,
			"dims must be an object like {'l':10,'w':5,'h':3,'unit':'cm'}.", row.InvalidDims))
	}
	if row.InvalidAttributes != "" {
		errs = append(errs, NewRowErrorWithValue(line, "attributes", ErrCodeImportInvalidType,
			"attributes must be an object (e.g., {'color':'Black','size':'M'}).", row.InvalidAttributes))
	}
	return errs
}

func validateCurrency(value string) error {
	if !catalog.Currency(strings.ToUpper(value)).IsValid() {
		return fmt.Errorf("currency '%s' must be one of: %s",
			strings.ToUpper(value), strings.Join(catalog.SupportedCurrencyCodes(), ", "))
	}
	return nil
}

func validateStockMode(value string) error {
	if !bulk.StockMode(value).IsValid() {
		return errors.New("stock_mode must be 'set' or 'increment'.")
	}
	return nil
}
