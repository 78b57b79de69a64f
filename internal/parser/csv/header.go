package csv

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// NormalizeHeader turns a published column title into a snake_case field
// name: accents are stripped, letters lowercased and every run of other
// characters becomes one underscore.
//
//	"Utility ID (FERC1)" -> "utility_id_ferc1"
//	"Année"              -> "annee"
func NormalizeHeader(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.TrimSpace(h))
	if err != nil {
		s = strings.TrimSpace(h)
	}
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// headerNames maps raw header cells to column names. headerMap is checked
// with the trimmed raw title first, then with the normalized name. Blank
// titles become col_<index>.
func headerNames(raw []string, headerMap map[string]string) ([]string, error) {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name, ok := headerMap[h]
		if !ok {
			name = NormalizeHeader(h)
			if m, mapped := headerMap[name]; mapped {
				name = m
			}
		}
		if name == "" {
			name = fmt.Sprintf("col_%d", i)
		}
		if j, dup := seen[name]; dup {
			return nil, fmt.Errorf("csv: header columns %d and %d both map to %q", j, i, name)
		}
		seen[name] = i
		out[i] = name
	}
	return out, nil
}
