package runner

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// resolveVars replaces {{name}} placeholders from vars, then from the OS
// environment. Unknown placeholders are left as written.
func resolveVars(input string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(input, func(match string) string {
		key := strings.TrimPrefix(strings.TrimSuffix(match, "}}"), "{{")
		if v, ok := vars[key]; ok {
			return v
		}
		if v := os.Getenv(key); v != "" {
			return v
		}
		return match
	})
}

// ParseVars turns "key=value" pairs into a map.
func ParseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid variable %q (want key=value)", p)
		}
		vars[strings.TrimSpace(k)] = v
	}
	return vars, nil
}
