// Package pathutil provides path matching helpers shared by middleware.
package pathutil

import "strings"

// NewPathMatcher returns a func reporting whether a path equals one of paths
// or starts with one of prefixes. An empty configuration matches nothing.
func NewPathMatcher(paths, prefixes []string) func(path string) bool {
	exact := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p != "" {
			exact[p] = struct{}{}
		}
	}

	pfx := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p != "" {
			pfx = append(pfx, p)
		}
	}

	return func(path string) bool {
		if _, ok := exact[path]; ok {
			return true
		}
		for _, p := range pfx {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}
}
