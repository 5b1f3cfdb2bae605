package ormbase

import (
	"regexp"
	"strings"
)

var (
	firstCapRe = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	allCapRe   = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// ToUnderscore converts a CamelCase type name to lower_snake_case:
// UserAccount -> user_account, HTTPServer -> http_server, UserID -> user_id.
func ToUnderscore(name string) string {
	s := firstCapRe.ReplaceAllString(name, "${1}_${2}")
	return strings.ToLower(allCapRe.ReplaceAllString(s, "${1}_${2}"))
}
