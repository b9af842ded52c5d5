package importmap

import (
	"sort"
	"strings"
)

// scopesOf returns the scope prefixes that apply to the referrer, the most
// specific first.
func scopesOf(scopes map[string]map[string]string, referrer string) []string {
	var prefixes []string
	for prefix := range scopes {
		if prefix == referrer || (strings.HasSuffix(prefix, "/") && strings.HasPrefix(referrer, prefix)) {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] > prefixes[j]
	})
	return prefixes
}
