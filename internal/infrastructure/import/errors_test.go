package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError(t *testing.T) {
	t.Run("Error with column", func(t *testing.T) {
		err := NewRowError(5, "price", ErrCodeImportInvalidType, "price must be a valid number (Decimal).")
		assert.Equal(t, "row 5, column 'price': price must be a valid number (Decimal).", err.Error())
	})

	t.Run("Error without column", func(t *testing.T) {
		err := NewRowError(10, "", ErrCodeImportCSVParsing, "malformed row")
		assert.Equal(t, "row 10: malformed row", err.Error())
	})

	t.Run("Error with value", func(t *testing.T) {
		err := NewRowErrorWithValue(3, "currency", ErrCodeImportInvalidChoice, "bad currency", "ZZZ")
		assert.Equal(t, "ZZZ", err.Value)
		assert.Equal(t, 3, err.Row)
	})
}

func TestMessages(t *testing.T) {
	errs := []RowError{
		NewRowError(1, "title", ErrCodeImportRequiredField, "Missing required field: title"),
		NewRowError(1, "sku", ErrCodeImportRequiredField, "Missing required field: sku"),
	}

	assert.Equal(t, []string{"Missing required field: title", "Missing required field: sku"}, Messages(errs))
	assert.Empty(t, Messages(nil))
}

func TestErrorCollection(t *testing.T) {
	t.Run("Add errors within limit", func(t *testing.T) {
		ec := NewErrorCollection(10)

		ec.AddAll([]RowError{
			NewRowError(1, "col1", ErrCodeImportValidation, "error 1"),
			NewRowError(2, "col2", ErrCodeImportValidation, "error 2"),
		})
		ec.Add(NewRowError(3, "col3", ErrCodeImportValidation, "error 3"))

		assert.Equal(t, 3, ec.Count())
		assert.Equal(t, 3, ec.TotalCount())
		assert.True(t, ec.HasErrors())
		assert.False(t, ec.IsTruncated())
	})

	t.Run("Add errors exceeding limit", func(t *testing.T) {
		ec := NewErrorCollection(3)

		for i := 1; i <= 5; i++ {
			ec.Add(NewRowError(i, "col", ErrCodeImportValidation, "error"))
		}

		assert.Equal(t, 3, ec.Count())
		assert.Equal(t, 5, ec.TotalCount())
		assert.True(t, ec.IsTruncated())
		assert.Contains(t, ec.String(), "(showing first 3)")
	})

	t.Run("Default limit", func(t *testing.T) {
		ec := NewErrorCollection(0)
		for i := 0; i < 1001; i++ {
			ec.Add(NewRowError(i, "", ErrCodeImportValidation, "e"))
		}
		assert.Equal(t, 1000, ec.Count())
	})

	t.Run("Error summary", func(t *testing.T) {
		ec := NewErrorCollection(10)

		ec.Add(NewRowError(1, "col", ErrCodeImportValidation, "err1"))
		ec.Add(NewRowError(2, "col", ErrCodeImportValidation, "err2"))
		ec.Add(NewRowError(3, "col", ErrCodeImportRequiredField, "err3"))

		summary := ec.ErrorSummary()
		assert.Equal(t, 2, summary[ErrCodeImportValidation])
		assert.Equal(t, 1, summary[ErrCodeImportRequiredField])
	})

	t.Run("String representation", func(t *testing.T) {
		ec := NewErrorCollection(10)
		assert.Equal(t, "no errors", ec.String())

		ec.Add(NewRowError(1, "title", ErrCodeImportRequiredField, "Missing required field: title"))
		ec.Add(NewRowError(2, "sku", ErrCodeImportInvalidLength, "too long"))

		s := ec.String()
		assert.Contains(t, s, "2 error(s) found")
		assert.Contains(t, s, "row 1, column 'title'")
		assert.Contains(t, s, "row 2, column 'sku'")
	})
}
