package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/enrich-cli/internal/model"
)

// fieldMap pairs a canonical field with the raw key it is read from.
type fieldMap struct {
	canonical string
	raw       string
}

// copyFields copies every present, non-nil raw key onto its canonical name.
func copyFields(out model.NormalizedResult, raw model.RawResult, fields []fieldMap) {
	for _, f := range fields {
		if v, ok := raw[f.raw]; ok && v != nil {
			out[f.canonical] = v
		}
	}
}

// rawJSON returns raw serialized as JSON, or "" if it cannot be encoded.
func rawJSON(raw model.RawResult) string {
	b, err := json.Marshal(raw)
	if err != nil {
		return ""
	}
	return string(b)
}

// toInt reads counts that may arrive as numbers or strings such as "500+".
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, t)
		if digits == "" {
			return 0, false
		}
		n, err := strconv.Atoi(digits)
		return n, err == nil
	default:
		return 0, false
	}
}

// toStrings flattens a list of strings or of objects carrying a name.
func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			for _, k := range []string{"name", "title", "language"} {
				if s, ok := t[k].(string); ok && s != "" {
					out = append(out, s)
					break
				}
			}
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out
}

// listLen returns the length of a list value, or -1 if v is not a list.
func listLen(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case []map[string]any:
		return len(t)
	case []string:
		return len(t)
	default:
		return -1
	}
}

// normalizeName applies NFC normalization so composed and decomposed forms
// of the same name produce identical requests.
func normalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
