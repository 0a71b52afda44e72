package catalog

import (
	"fmt"
	"strings"

	"github.com/supplysync/backend/internal/domain/shared"
)

// Currency is an ISO 4217 code supported by the catalog
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyNGN Currency = "NGN"
)

// DefaultCurrency is used when a source omits the currency
const DefaultCurrency = CurrencyUSD

// SupportedCurrencies returns the supported currencies in sorted order
func SupportedCurrencies() []Currency {
	return []Currency{CurrencyEUR, CurrencyGBP, CurrencyNGN, CurrencyUSD}
}

// SupportedCurrencyCodes returns the supported codes as strings, sorted
func SupportedCurrencyCodes() []string {
	codes := make([]string, 0, 4)
	for _, c := range SupportedCurrencies() {
		codes = append(codes, string(c))
	}
	return codes
}

// IsValid checks if the currency is supported
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyNGN:
		return true
	}
	return false
}

// ParseCurrency upper-cases and validates a currency code.
// An empty value resolves to DefaultCurrency.
func ParseCurrency(value string) (Currency, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return DefaultCurrency, nil
	}
	c := Currency(v)
	if !c.IsValid() {
		return "", shared.NewDomainError("INVALID_CURRENCY",
			fmt.Sprintf("currency '%s' must be one of: %s", v, strings.Join(SupportedCurrencyCodes(), ", ")))
	}
	return c, nil
}
