package locator

import (
	"fmt"
	"path"
	"strings"
)

// DisplayName is the short name used in link labels: the base name of the
// document identity without its extension.
func DisplayName(id string) string {
	base := path.Base(strings.ReplaceAll(id, "\\", "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// FormatLink builds "[[<id>#<fragment>|<name> (page <N>)]]".
func FormatLink(id string, loc Locator) string {
	return fmt.Sprintf("[[%s#%s|%s (page %d)]]", id, loc.String(), DisplayName(id), loc.Page)
}

// ParseLink accepts "[[id#fragment|label]]", "[[id#fragment]]", "[[id]]" and
// the bare "id#fragment" form.
func ParseLink(link string) (string, Locator, bool) {
	link = strings.TrimSpace(link)
	if strings.HasPrefix(link, "[[") {
		if !strings.HasSuffix(link, "]]") {
			return "", Locator{}, false
		}
		link = link[2 : len(link)-2]
		if target, _, ok := strings.Cut(link, "|"); ok {
			link = target
		}
	}
	id, fragment, _ := strings.Cut(link, "#")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", Locator{}, false
	}
	return id, Decode(fragment), true
}
