package locator

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	pageKey  = "page"
	quoteKey = "q"
)

// Locator identifies a page and, optionally, a passage on that page.
// A zero Page means the fragment carried no usable page; an empty Quote means
// no passage.
type Locator struct {
	Page  int
	Quote string
}

// HasPage reports whether the locator names a page.
func (l Locator) HasPage() bool { return l.Page > 0 }

// HasQuote reports whether the locator carries a passage to highlight.
func (l Locator) HasQuote() bool { return l.Quote != "" }

// String returns the fragment form of the locator.
func (l Locator) String() string {
	return Encode(l.Page, l.Quote)
}

// Encode renders page and quote as "page=<N>[&q=<token>]".
func Encode(page int, quote string) string {
	var b strings.Builder
	b.WriteString(pageKey)
	b.WriteByte('=')
	b.WriteString(strconv.Itoa(page))
	if quote != "" {
		b.WriteString("&" + quoteKey + "=")
		b.WriteString(EncodeQuote(quote))
	}
	return b.String()
}

// Decode parses a fragment. Fields may appear in any order, unknown fields are
// ignored, and malformed values leave the corresponding field empty.
func Decode(fragment string) Locator {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	var loc Locator
	if fragment == "" {
		return loc
	}
	for _, pair := range strings.Split(fragment, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		switch key {
		case pageKey:
			if page, ok := parsePage(value); ok {
				loc.Page = page
			}
		case quoteKey:
			if quote, ok := DecodeQuote(value); ok {
				loc.Quote = quote
			}
		}
	}
	return loc
}

func parsePage(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, false
		}
	}
	page, err := strconv.Atoi(value)
	if err != nil || page <= 0 {
		return 0, false
	}
	return page, true
}

// EncodeQuote applies the text-safe transform: UTF-8 bytes to standard base64,
// then percent-escaping of the "+", "/" and "=" characters base64 can emit.
func EncodeQuote(quote string) string {
	return url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(quote)))
}

// DecodeQuote reverses EncodeQuote. It accepts the escaped and unescaped forms
// as well as the URL-safe alphabet; anything else, including payloads that are
// not valid UTF-8, is rejected.
func DecodeQuote(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	unescaped, err := url.PathUnescape(token)
	if err != nil {
		return "", false
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding} {
		raw, err := enc.DecodeString(unescaped)
		if err != nil {
			continue
		}
		if len(raw) == 0 || !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	}
	return "", false
}
