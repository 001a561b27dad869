// Package urlcheck validates the image URLs found in uploaded CSVs.
package urlcheck

import "regexp"

// urlRegexp accepts http(s) and ftp(s) URLs with a domain name, localhost,
// an IPv4 address or a bracketed IPv6 address, an optional port, and an
// optional path with no whitespace.
var urlRegexp = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|` +
	`\[?[A-F0-9]*:[A-F0-9:]+\]?)` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// IsValid reports whether s looks like a fetchable image URL.
func IsValid(s string) bool {
	return urlRegexp.MatchString(s)
}
