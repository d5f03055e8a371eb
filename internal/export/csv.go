package export

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Flatten turns a JSON array of objects into a header row and string rows.
// The header is the first record's keys in their order; keys that only later
// records carry are not exported. Nested objects and arrays become their JSON
// text and null or missing values become an empty cell.
func Flatten(raw []byte) (headers []string, rows [][]string) {
	records := gjson.ParseBytes(raw).Array()
	for _, rec := range records {
		if !rec.IsObject() {
			continue
		}
		if headers == nil {
			rec.ForEach(func(key, _ gjson.Result) bool {
				headers = append(headers, key.String())
				return true
			})
		}
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = cellText(rec.Get(gjson.Escape(h)))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func cellText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Number:
		return v.Raw
	}
	if !v.Exists() {
		return ""
	}
	return v.Raw
}

// Escape quotes a field when it holds a comma, quote, CR or LF, doubling
// embedded quotes.
func Escape(field string) string {
	if !strings.ContainsAny(field, ",\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Encode renders headers and rows as CSV lines joined by "\n".
func Encode(headers []string, rows [][]string) string {
	var b strings.Builder
	writeLine(&b, headers)
	for _, row := range rows {
		b.WriteByte('\n')
		writeLine(&b, row)
	}
	return b.String()
}

func writeLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(Escape(f))
	}
}
