package variantkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeSize(t *testing.T) {
	sizes := []string{"L", "xl", "XXL", "3XL", "Large Size", "No. 10", "No 7", "2.5 Inch", "3 inches", "5cm", "12oz", "95g", "12.5 cm"}
	for _, s := range sizes {
		assert.True(t, LooksLikeSize(s), s)
	}

	notSizes := []string{"", "Black", "Rose Gold", "Bean Green", "10", "Cork", "g", "oz"}
	for _, s := range notSizes {
		assert.False(t, LooksLikeSize(s), s)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"Black-L", []string{"Black", "L"}},
		{"Black – L", []string{"Black", "L"}},
		{"Black—L", []string{"Black", "L"}},
		{"Red/M", []string{"Red", "M"}},
		{"Red|M", []string{"Red", "M"}},
		{"Red, M", []string{"Red", "M"}},
		{"Red-M/Cotton", []string{"Red", "M/Cotton"}},
		{"--Blue--", []string{"Blue"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.key))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want map[string]string
	}{
		{"empty", "", map[string]string{}},
		{"color then size", "Black-L", map[string]string{"color": "Black", "size": "L"}},
		{"size then color", "32oz-Bean Green", map[string]string{"size": "32oz", "color": "Bean Green"}},
		{"ring size", "Rose Gold-No 10", map[string]string{"color": "Rose Gold", "size": "No 10"}},
		{"single with leading size", "95g Cork", map[string]string{"size": "95g", "color": "Cork"}},
		{"single with two-token size", "3 Inch Walnut", map[string]string{"size": "3 Inch", "color": "Walnut"}},
		{"single size only", "XL", map[string]string{"size": "XL"}},
		{"single unclassified", "Red", map[string]string{"option1": "Red"}},
		{"ambiguous pair", "Red-Blue", map[string]string{"option1": "Red", "option2": "Blue"}},
		{"two sizes", "S-M", map[string]string{"option1": "S", "option2": "M"}},
		{"trailing size glued to second part", "Walnut-Dark 3 Inch", map[string]string{"size": "3 Inch", "option1": "Walnut", "option2": "Dark"}},
		{"extra parts", "Black-L-Cotton-Slim", map[string]string{"color": "Black", "size": "L", "option3": "Cotton", "option4": "Slim"}},
		{"slash separator", "Navy/XXL", map[string]string{"color": "Navy", "size": "XXL"}},
		{"em dash", "White—S", map[string]string{"color": "White", "size": "S"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.key))
		})
	}
}
