package trainerroad

import (
	"strings"
)

// Cookie is a single name=value pair of a session bundle
type Cookie struct {
	Name  string
	Value string
}

// Bundle is the ordered set of cookies that make up one platform login.
// Bundles are treated as values: every function returns a new slice.
type Bundle []Cookie

// ParseSetCookies extracts name=value pairs from raw Set-Cookie header values,
// dropping attributes such as Path, HttpOnly or Max-Age
func ParseSetCookies(headerValues []string) Bundle {
	var incoming Bundle
	for _, header := range headerValues {
		// Only the part before the first ';' is the cookie itself
		pair, _, _ := strings.Cut(header, ";")
		if c, ok := parsePair(pair); ok {
			incoming = append(incoming, c)
		}
	}
	return Merge(nil, incoming)
}

// ParseBundle parses the serialized "name=value; name=value" form produced by Bundle.String
func ParseBundle(serialized string) Bundle {
	var incoming Bundle
	for _, pair := range strings.Split(serialized, ";") {
		if c, ok := parsePair(pair); ok {
			incoming = append(incoming, c)
		}
	}
	return Merge(nil, incoming)
}

// parsePair parses "name=value". Entries without '=' or with an empty name are skipped.
func parsePair(pair string) (Cookie, bool) {
	name, value, found := strings.Cut(strings.TrimSpace(pair), "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return Cookie{}, false
	}
	return Cookie{Name: name, Value: strings.TrimSpace(value)}, true
}

// Merge returns existing updated with incoming. A cookie with a known name
// replaces the value in place, new names are appended in arrival order.
func Merge(existing, incoming Bundle) Bundle {
	out := make(Bundle, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))
	for _, list := range []Bundle{existing, incoming} {
		for _, c := range list {
			if i, ok := index[c.Name]; ok {
				out[i].Value = c.Value
				continue
			}
			index[c.Name] = len(out)
			out = append(out, c)
		}
	}
	return out
}

// String serializes the bundle for use as a Cookie header value
func (b Bundle) String() string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = c.Name + "=" + c.Value
	}
	return strings.Join(parts, "; ")
}

// Pairs returns each cookie serialized as "name=value"
func (b Bundle) Pairs() []string {
	pairs := make([]string, len(b))
	for i, c := range b {
		pairs[i] = c.Name + "=" + c.Value
	}
	return pairs
}

// Has reports whether a cookie with the given name is present
func (b Bundle) Has(name string) bool {
	for _, c := range b {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Names returns the cookie names in order. Used for logging without leaking values.
func (b Bundle) Names() []string {
	names := make([]string, len(b))
	for i, c := range b {
		names[i] = c.Name
	}
	return names
}

// IsAuthenticated reports whether the bundle carries the marker cookie.
// The value is irrelevant; bundles without the marker are placeholders.
func IsAuthenticated(b Bundle, marker string) bool {
	return marker != "" && b.Has(marker)
}
