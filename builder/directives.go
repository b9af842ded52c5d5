package builder

import (
	"regexp"
	"strings"
)

var (
	denoTypesDirective = regexp.MustCompile(`(?im)^[ \t]*//[ \t]*@deno-types[ \t]*=.*$`)
	referenceDirective = regexp.MustCompile(`(?im)^[ \t]*///[ \t]*<reference\s[^>]*?(?:types|path)\s*=\s*["']([^"']*)["'][^>]*/>[ \t]*$`)
	referenceLibDeno   = regexp.MustCompile(`(?im)^[ \t]*///[ \t]*<reference\s[^>]*?lib\s*=\s*["']deno\.[^"']*["'][^>]*/>[ \t]*$`)
)

// stripDirectives removes the Deno specific comment directives and a leading
// hashbang line. Line breaks are kept so positions of the remaining code do
// not move to other lines.
func stripDirectives(text string) string {
	if strings.HasPrefix(text, "#!") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i:]
		} else {
			text = ""
		}
	}
	text = denoTypesDirective.ReplaceAllString(text, "")
	text = referenceLibDeno.ReplaceAllString(text, "")
	text = referenceDirective.ReplaceAllStringFunc(text, func(line string) string {
		m := referenceDirective.FindStringSubmatch(line)
		target := strings.ToLower(m[1])
		for _, prefix := range []string{"./", "../", "/", "http://", "https://", "file:"} {
			if strings.HasPrefix(target, prefix) {
				return ""
			}
		}
		return line
	})
	return text
}
