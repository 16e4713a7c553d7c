package catalog

import "strings"

// Column positions in an import row. Files carry no header.
const (
	ColModelName = iota
	ColCompatibility
	ColPresentation
)

// MinRowFields is the number of fields a row needs to be considered.
const MinRowFields = 2

// NormalizeRow converts one raw row into a Record.
// Rows with fewer than two fields, or with an empty model name or
// compatibility text, are rejected with ErrMalformedRow.
func NormalizeRow(fields []string) (Record, error) {
	if len(fields) < MinRowFields {
		return Record{}, malformed("expected at least %d fields, got %d", MinRowFields, len(fields))
	}

	modelName := CleanCell(fields[ColModelName])
	if modelName == "" {
		return Record{}, malformed("empty model name")
	}

	compat := CleanCell(fields[ColCompatibility])
	if compat == "" {
		return Record{}, malformed("empty compatibility text for %q", modelName)
	}

	tokens := Tokenize(compat)

	rec := Record{
		ModelName:        modelName,
		CompatibleModels: tokens.Models,
		IsVIP:            tokens.VIP,
		IsCompatible:     !tokens.VIP && len(tokens.Models) > 0,
	}

	if len(fields) > ColPresentation {
		rec.PresentationContent = strings.TrimSpace(fields[ColPresentation])
	}

	return rec, nil
}

// CleanCell trims whitespace and the quoting spreadsheet exports leave
// around cells.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Excel text escape: ="value"
	if len(s) >= 3 && strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	return strings.TrimSpace(s)
}
