package csvimport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateJSON(t *testing.T) {
	blob, err := TemplateJSON()
	require.NoError(t, err)

	doc, err := LoadJSON(bytes.NewReader(blob))
	require.NoError(t, err)
	require.Len(t, doc.Rows, 1)

	row := Normalize(doc.Rows[0])
	assert.Empty(t, Validate(&row, 1))
	assert.Equal(t, "Widget A", row.Title)
	assert.Equal(t, "20", row.QtyAvailable)
	assert.Equal(t, []string{"https://example.com/image-a.jpg"}, row.MediaURLs)
}

func TestTemplateCSV(t *testing.T) {
	blob, err := TemplateCSV()
	require.NoError(t, err)

	assert.Equal(t,
		"title,description,brand,category_name,subcategory_name,sku,price,currency,media_urls,qty_available,safety_stock,warehouse,stock_mode\n"+
			`Widget A,Example,ACME,Gadgets,Widgets,A-001,19.99,USD,"[""https://example.com/image-a.jpg""]",20,2,Main,set`+"\n",
		string(blob))

	doc, err := LoadCSV(bytes.NewReader(blob))
	require.NoError(t, err)
	require.Len(t, doc.Rows, 1)

	row := Normalize(doc.Rows[0])
	assert.Empty(t, Validate(&row, 1))
	assert.Equal(t, "2", row.SafetyStock)
	assert.Equal(t, []string{"https://example.com/image-a.jpg"}, row.MediaURLs)
}
