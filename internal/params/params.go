package params

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Keys lists the tracking parameters appended to every form URL, in the
// order they appear in the query string.
var Keys = []string{
	"utm_source",
	"utm_content",
	"utm_term",
	"utm_campaign",
	"utm_medium",
	"gclid",
	"ttclid",
	"yclid",
	"msclid",
	"dclid",
	"fbclid",
	"twclid",
}

// Param is a single tracking parameter.
type Param struct {
	Key   string
	Value string
}

// Set is an ordered list of tracking parameters. Every value in a Set built
// by Build is the same stamp.
type Set []Param

// Clock returns the current time. time.Now satisfies it.
type Clock func() time.Time

// Stamp returns the per-day marker, e.g. "March14test".
func Stamp(date time.Time) string {
	return fmt.Sprintf("%s%dtest", date.Month(), date.Day())
}

// Build returns the tracking parameters for the given date.
func Build(date time.Time) Set {
	stamp := Stamp(date)
	set := make(Set, len(Keys))
	for i, k := range Keys {
		set[i] = Param{Key: k, Value: stamp}
	}
	return set
}

// Today builds the parameters for the current date in loc.
// A nil loc means time.Local.
func Today(clock Clock, loc *time.Location) Set {
	if loc == nil {
		loc = time.Local
	}
	return Build(clock().In(loc))
}

// Value returns the value for key.
func (s Set) Value(key string) (string, bool) {
	for _, p := range s {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Encode renders the set as a query string, keeping the set's order.
func (s Set) Encode() string {
	var b strings.Builder
	for i, p := range s {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Apply appends the encoded set to rawURL, after any query it already has.
func (s Set) Apply(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	if len(s) == 0 {
		return u.String(), nil
	}
	if u.RawQuery == "" {
		u.RawQuery = s.Encode()
	} else {
		u.RawQuery += "&" + s.Encode()
	}
	return u.String(), nil
}
