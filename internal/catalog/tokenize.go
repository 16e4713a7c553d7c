package catalog

import (
	"html"
	"regexp"
	"strings"
)

// Interactive spans are removed together with their label text.
// RE2 has no backreferences, so each element gets its own pattern.
var interactiveSpans = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<button\b[^>]*>.*?</button\s*>`),
	regexp.MustCompile(`(?is)<a\b[^>]*>.*?</a\s*>`),
}

var (
	anyTag          = regexp.MustCompile(`(?s)<[^<>]*>`)
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)

	// vipToken matches the sentinel on word boundaries, so "Vipera" is not VIP.
	vipToken = regexp.MustCompile(`(?i)(^|[^\pL\pN])vip([^\pL\pN]|$)`)

	// vipPhrase matches the availability notices used by the source sheets.
	// It runs on folded text, so accents are already gone.
	vipPhrase = regexp.MustCompile(`(disponivel\s+(na|em)\s+tabela\s+vip|available\s+in\s+(the\s+)?vip)`)
)

// Separators are applied in order; every fragment produced by one is split
// again by the next, so a field mixing "a / b/c" still yields three names.
var Separators = []string{" / ", " /", "/ ", "/", "\n"}

// Tokens is the result of tokenizing a compatibility field.
type Tokens struct {
	Models []string
	VIP    bool
}

// Tokenize extracts compatible model names from free text.
// Fragments are returned in source order and are not deduplicated.
func Tokenize(raw string) Tokens {
	text := StripMarkup(raw)

	if IsVIPText(text) {
		return Tokens{Models: []string{}, VIP: true}
	}

	fragments := []string{text}
	for _, sep := range Separators {
		var next []string
		for _, frag := range fragments {
			next = append(next, strings.Split(frag, sep)...)
		}
		fragments = next
	}

	models := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		frag = strings.TrimSpace(frag)
		if frag == "" || IsVIPText(frag) {
			continue
		}
		models = append(models, frag)
	}

	return Tokens{Models: models}
}

// StripMarkup removes buttons and links with their labels, then any other
// tag (keeping its enclosed text), decodes entities and collapses
// horizontal whitespace. Line breaks are preserved.
func StripMarkup(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	for _, re := range interactiveSpans {
		text = re.ReplaceAllString(text, "")
	}
	text = anyTag.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = horizontalSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// IsVIPText reports whether text carries the VIP sentinel.
func IsVIPText(text string) bool {
	return vipToken.MatchString(text) || vipPhrase.MatchString(Fold(text))
}
