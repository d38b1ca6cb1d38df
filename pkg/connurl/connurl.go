// Package connurl decomposes service connection strings.
//
// Parsing never fails: malformed input yields empty fields so callers can
// still display what they have. A reachability probe against an empty host
// fails on its own.
package connurl

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// defaultPorts maps schemes to the port used when the URL omits one.
var defaultPorts = map[string]int{
	"postgresql":  5432,
	"postgres":    5432,
	"mysql":       3306,
	"mongodb":     27017,
	"mongodb+srv": 27017,
	"redis":       6379,
	"rediss":      6379,
}

// Descriptor is a parsed connection URL.
type Descriptor struct {
	Scheme   string
	Username string
	Password string
	Host     string
	Port     int // 0 when absent and the scheme has no default
	Database string
	Params   url.Values
}

// DefaultPort returns the default port for scheme and whether one exists.
func DefaultPort(scheme string) (int, bool) {
	p, ok := defaultPorts[strings.ToLower(scheme)]
	return p, ok
}

// Parse decomposes raw into a Descriptor.
func Parse(raw string) Descriptor {
	d := Descriptor{Params: url.Values{}}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		// Best effort: keep whatever scheme is visible.
		if i := strings.Index(raw, "://"); i > 0 {
			d.Scheme = strings.ToLower(raw[:i])
		}
		d.Port, _ = DefaultPort(d.Scheme)
		return d
	}

	d.Scheme = strings.ToLower(u.Scheme)
	if u.User != nil {
		d.Username = u.User.Username()
		d.Password, _ = u.User.Password()
	}
	d.Host = u.Hostname()
	if p, err := strconv.Atoi(u.Port()); err == nil {
		d.Port = p
	} else {
		d.Port, _ = DefaultPort(d.Scheme)
	}
	d.Database = strings.TrimPrefix(u.Path, "/")
	if q, err := url.ParseQuery(u.RawQuery); err == nil {
		d.Params = q
	}
	return d
}

// Address returns host:port, or just the host when the port is unknown.
func (d Descriptor) Address() string {
	if d.Port == 0 {
		return d.Host
	}
	return d.Host + ":" + strconv.Itoa(d.Port)
}

// Param returns the first value of the first present key.
func (d Descriptor) Param(keys ...string) string {
	for _, k := range keys {
		if v := d.Params.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// Mask hides all but the first show characters of secret.
func Mask(secret string, show int) string {
	if secret == "" {
		return "<empty>"
	}
	r := []rune(secret)
	if len(r) <= show {
		return strings.Repeat("*", len(r))
	}
	return string(r[:show]) + strings.Repeat("*", len(r)-show)
}

var placeholderRe = regexp.MustCompile(`\$\{[^}]+\}`)

// Placeholders returns the unresolved ${...} bindable variables in s.
func Placeholders(s string) []string {
	return placeholderRe.FindAllString(s, -1)
}

// HasPlaceholder reports whether s still contains a ${...} placeholder.
func HasPlaceholder(s string) bool {
	return placeholderRe.MatchString(s)
}
