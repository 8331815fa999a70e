package utils

import (
	"slices"
	"strings"
)

func Capitalize(str string) string {
	if len(str) == 0 {
		return ""
	}
	return strings.ToUpper(string([]rune(str)[0])) + string([]rune(str)[1:])
}

// SplitScopes splits a space delimited scope string, dropping empty and duplicate entries.
func SplitScopes(scope string) []string {
	scopes := make([]string, 0)
	for _, part := range strings.Fields(scope) {
		if !slices.Contains(scopes, part) {
			scopes = append(scopes, part)
		}
	}
	return scopes
}

func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ScopesAllowed reports whether every requested scope is in allowed.
func ScopesAllowed(requested []string, allowed []string) bool {
	for _, scope := range requested {
		if !slices.Contains(allowed, scope) {
			return false
		}
	}
	return true
}
