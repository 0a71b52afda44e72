// Package variantkey splits a supplier's composite variant key such as
// "Black-XL" or "32oz-Bean Green" into color and size attributes.
//
// The split is a best-effort heuristic. Callers must treat the result as
// display metadata only: it never fails, and anything it cannot classify
// lands in generic option1, option2, ... keys.
package variantkey

import (
	"regexp"
	"strconv"
	"strings"
)

// Attribute keys produced by Parse
const (
	KeyColor = "color"
	KeySize  = "size"
)

// Separators are tried in order; the first one present in the key wins
var Separators = []string{"-", "/", "|", ","}

var dashReplacer = strings.NewReplacer("–", "-", "—", "-", "−", "-")

var letterSizes = map[string]struct{}{
	"XXXS": {}, "XXS": {}, "XS": {}, "S": {}, "M": {}, "L": {}, "XL": {}, "XXL": {}, "XXXL": {},
	"1XL": {}, "2XL": {}, "3XL": {}, "4XL": {}, "5XL": {},
	"SMALL": {}, "MEDIUM": {}, "LARGE": {}, "LARGE SIZE": {},
}

var sizePatterns = []*regexp.Regexp{
	// ring sizes: "No. 10"
	regexp.MustCompile(`(?i)^no\.?\s*\d+$`),
	regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*inch(es)?$`),
	regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*cm$`),
	regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*oz$`),
	regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*g$`),
}

// NormalizeDashes maps en, em and minus dashes to "-"
func NormalizeDashes(s string) string {
	return dashReplacer.Replace(s)
}

// LooksLikeSize reports whether token is a recognised size token
func LooksLikeSize(token string) bool {
	t := strings.TrimSpace(token)
	if t == "" {
		return false
	}
	if _, ok := letterSizes[strings.ToUpper(t)]; ok {
		return true
	}
	for _, re := range sizePatterns {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// Split breaks key on the first separator it contains, trimming and
// dropping empty parts.
func Split(key string) []string {
	key = strings.TrimSpace(NormalizeDashes(key))
	if key == "" {
		return nil
	}
	sep := ""
	for _, s := range Separators {
		if strings.Contains(key, s) {
			sep = s
			break
		}
	}
	raw := []string{key}
	if sep != "" {
		raw = strings.Split(key, sep)
	}
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Parse classifies the parts of key. Examples:
//
//	"Black-L"          -> color=Black size=L
//	"32oz-Bean Green"  -> size=32oz color=Bean Green
//	"95g Cork"         -> size=95g color=Cork
//	"Red-Blue"         -> option1=Red option2=Blue
func Parse(key string) map[string]string {
	out := make(map[string]string)
	parts := Split(key)

	switch len(parts) {
	case 0:
		return out
	case 1:
		parseSingle(parts[0], out)
		return out
	}

	a, b := parts[0], parts[1]

	// a trailing size may be glued to the second part: "Rose Gold 3 Inch"
	if size, rest := trailingSize(b); size != "" && rest != "" {
		out[KeySize] = size
		b = rest
	}

	aSize, bSize := LooksLikeSize(a), LooksLikeSize(b)
	sizeTaken := out[KeySize] != ""
	switch {
	case !sizeTaken && !aSize && bSize:
		out[KeyColor] = a
		out[KeySize] = b
	case !sizeTaken && aSize && !bSize:
		out[KeySize] = a
		out[KeyColor] = b
	default:
		out["option1"] = a
		out["option2"] = b
	}

	for i, extra := range parts[2:] {
		out["option"+strconv.Itoa(i+3)] = extra
	}
	return out
}

// parseSingle handles a key without separators, e.g. "95g Cork" or "Red"
func parseSingle(part string, out map[string]string) {
	tokens := strings.Fields(part)
	for n := min(2, len(tokens)); n >= 1; n-- {
		head := strings.Join(tokens[:n], " ")
		if LooksLikeSize(head) {
			out[KeySize] = head
			if rest := strings.Join(tokens[n:], " "); rest != "" {
				out[KeyColor] = rest
			}
			return
		}
	}
	out["option1"] = part
}

// trailingSize splits a trailing size phrase of one or two tokens off s
func trailingSize(s string) (size, rest string) {
	tokens := strings.Fields(s)
	for n := min(2, len(tokens)-1); n >= 1; n-- {
		tail := strings.Join(tokens[len(tokens)-n:], " ")
		if LooksLikeSize(tail) {
			return tail, strings.Join(tokens[:len(tokens)-n], " ")
		}
	}
	return "", s
}
