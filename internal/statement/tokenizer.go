// Package statement turns delimited bank and card exports into normalized transactions.
package statement

import "strings"

// SplitLine splits one statement line into trimmed fields.
//
// A double quote toggles quoted mode; inside quotes the delimiter is literal text.
// Quote characters are never part of a field. Empty trailing fields are kept.
// An unbalanced quote swallows the rest of the line.
func SplitLine(line string, delim rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(field.String()))

	return fields
}
