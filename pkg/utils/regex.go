package utils

import (
	"regexp"
)

// CompileNamedPatterns compiles a map of name -> regex string.
// Empty patterns are skipped; the first invalid pattern aborts with ErrConfigValidation.
func CompileNamedPatterns(patterns map[string]string) (map[string]*regexp.Regexp, error) {
	compiled := make(map[string]*regexp.Regexp, len(patterns))
	for name, pattern := range patterns {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, WrapErrorf(ErrConfigValidation, "invalid regex pattern %s ('%s'): %v", name, pattern, err)
		}
		compiled[name] = re
	}
	return compiled, nil
}
