package csvimport

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("products.csv"))
	assert.True(t, IsSupportedFile("DUMP.JSON"))
	assert.False(t, IsSupportedFile("products.xlsx"))
	assert.False(t, IsSupportedFile("noext"))
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("products.xlsx", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestLoadCSV(t *testing.T) {
	csv := "title,sku,price\nWidget A,A-001,19.99\n,,\nWidget B,B-001,5"

	doc, err := Load("upload.csv", strings.NewReader(csv))

	require.NoError(t, err)
	assert.Equal(t, []string{"title", "sku", "price"}, doc.Headers)
	require.Len(t, doc.Rows, 2)
	assert.Equal(t, "A-001", doc.Rows[0]["sku"])
	assert.Equal(t, "5", doc.Rows[1]["price"])
}

func TestLoadJSON(t *testing.T) {
	t.Run("bare list", func(t *testing.T) {
		doc, err := LoadJSON(strings.NewReader(`[{"title":"A","price":19.99},{"sku":"B"}]`))

		require.NoError(t, err)
		require.Len(t, doc.Rows, 2)
		assert.Equal(t, []string{"price", "sku", "title"}, doc.Headers)
		assert.Equal(t, json.Number("19.99"), doc.Rows[0]["price"])
	})

	t.Run("items envelope", func(t *testing.T) {
		doc, err := LoadJSON(strings.NewReader(`{"items":[{"title":"A"}]}`))

		require.NoError(t, err)
		require.Len(t, doc.Rows, 1)
	})

	t.Run("non-object entries become empty rows", func(t *testing.T) {
		doc, err := LoadJSON(strings.NewReader(`[{"title":"A"}, 5, "x"]`))

		require.NoError(t, err)
		require.Len(t, doc.Rows, 3)
		assert.Empty(t, doc.Rows[1])
		assert.Empty(t, doc.Rows[2])
	})

	t.Run("object without items", func(t *testing.T) {
		_, err := LoadJSON(strings.NewReader(`{"title":"A"}`))
		assert.ErrorIs(t, err, ErrInvalidJSONShape)
	})

	t.Run("scalar payload", func(t *testing.T) {
		_, err := LoadJSON(strings.NewReader(`42`))
		assert.ErrorIs(t, err, ErrInvalidJSONShape)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := LoadJSON(strings.NewReader(`[{"title":`))
		assert.ErrorIs(t, err, ErrInvalidJSONShape)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := LoadJSON(strings.NewReader("   "))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("minimal dump is flattened", func(t *testing.T) {
		dump := `[{"pid":"P1","title":"Mug","category":"Kitchen","images":["https://img/p.jpg"],
			"variants":[{"vid":"V1","variantSku":"MUG-R","price":4.5,"variantKey":"Red"},
			            {"vid":"V2","variantSku":"MUG-B","price":4.5,"variantKey":"Blue"}]}]`

		doc, err := LoadJSON(strings.NewReader(dump))

		require.NoError(t, err)
		require.Len(t, doc.Rows, 2)
		assert.Equal(t, "MUG-R", doc.Rows[0]["sku"])
		assert.Equal(t, "P1", doc.Rows[1]["product_key"])
		assert.Contains(t, doc.Headers, "variant_key")
	})
}
