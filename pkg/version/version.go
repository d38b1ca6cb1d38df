// Package version pulls version numbers out of server banners.
package version

import (
	"fmt"
	"regexp"
)

// dottedRegex needs at least one dot so that tokens such as x86_64 or a
// bare build number are not mistaken for a version.
var dottedRegex = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// Extract finds the first dotted version in banner, e.g. "16.2" in
// "PostgreSQL 16.2 on x86_64-pc-linux-gnu", as the server wrote it.
func Extract(banner string) (string, error) {
	v := dottedRegex.FindString(banner)
	if v == "" {
		return "", fmt.Errorf("no version found in: %q", banner)
	}
	return v, nil
}

// Describe formats banner for a report line: "Version: 16.2" when a version
// can be found, otherwise the banner cut to max characters.
func Describe(banner string, max int) string {
	if v, err := Extract(banner); err == nil {
		return "Version: " + v
	}
	if r := []rune(banner); max > 0 && len(r) > max {
		return string(r[:max]) + "..."
	}
	return banner
}
