// Package object defines the identity model for management objects.
//
// An object name is composed of a domain and a set of key=value properties,
// e.g. "java.lang:type=Memory". Names containing wildcards ('*' or '?') in
// the domain or property values, or the property-list wildcard "*", are
// patterns and may only be used for search.
package object

import (
	"fmt"
	"sort"
	"strings"
)

// InvalidNameError indicates a string that cannot be parsed into an object name.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid object name %q: %s", e.Name, e.Reason)
}

// Name identifies a management object by domain and properties.
type Name struct {
	domain      string
	properties  map[string]string
	listPattern bool // property list ends in "*" (or is just "*")
}

// ParseName parses a "domain:key=value,..." string into a Name.
// A non-pattern name must carry at least one property.
func ParseName(s string) (Name, error) {
	idx := strings.Index(s, ":")
	if idx < 0 {
		return Name{}, &InvalidNameError{Name: s, Reason: "missing ':' separator"}
	}
	domain := s[:idx]
	propPart := s[idx+1:]
	if propPart == "" {
		return Name{}, &InvalidNameError{Name: s, Reason: "empty property list"}
	}

	name := Name{domain: domain, properties: map[string]string{}}
	for _, pair := range strings.Split(propPart, ",") {
		if pair == "*" {
			name.listPattern = true
			continue
		}
		eq := strings.Index(pair, "=")
		if eq <= 0 {
			return Name{}, &InvalidNameError{Name: s, Reason: fmt.Sprintf("property %q is not key=value", pair)}
		}
		key, value := pair[:eq], pair[eq+1:]
		if _, dup := name.properties[key]; dup {
			return Name{}, &InvalidNameError{Name: s, Reason: fmt.Sprintf("duplicate property key %q", key)}
		}
		name.properties[key] = value
	}

	if len(name.properties) == 0 && !name.listPattern {
		return Name{}, &InvalidNameError{Name: s, Reason: "no properties"}
	}
	return name, nil
}

// MustParseName parses s and panics on failure. For tests and fixed names.
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Domain returns the name's domain part.
func (n Name) Domain() string {
	return n.domain
}

// Property returns the value of a single property key.
func (n Name) Property(key string) (string, bool) {
	v, ok := n.properties[key]
	return v, ok
}

// Properties returns a copy of the property map.
func (n Name) Properties() map[string]string {
	props := make(map[string]string, len(n.properties))
	for k, v := range n.properties {
		props[k] = v
	}
	return props
}

// IsPattern reports whether the name contains wildcards and is therefore
// only usable for search.
func (n Name) IsPattern() bool {
	if n.listPattern || containsWildcard(n.domain) {
		return true
	}
	for k, v := range n.properties {
		if containsWildcard(k) || containsWildcard(v) {
			return true
		}
	}
	return false
}

// String renders the canonical form: domain followed by the properties in
// sorted key order. Two names identifying the same object render identically.
func (n Name) String() string {
	keys := make([]string, 0, len(n.properties))
	for k := range n.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		pairs = append(pairs, k+"="+n.properties[k])
	}
	if n.listPattern {
		pairs = append(pairs, "*")
	}
	return n.domain + ":" + strings.Join(pairs, ",")
}

// Equal reports whether two names identify the same object.
func (n Name) Equal(other Name) bool {
	return n.String() == other.String()
}

// Matches reports whether the candidate name matches this pattern.
// A non-pattern name matches only itself.
func (n Name) Matches(candidate Name) bool {
	if !n.IsPattern() {
		return n.Equal(candidate)
	}
	if !wildcardMatch(n.domain, candidate.domain) {
		return false
	}
	// Every property of the pattern must be present and match. Without a
	// trailing property-list wildcard, the candidate may not carry extras.
	for k, v := range n.properties {
		cv, ok := candidate.properties[k]
		if !ok || !wildcardMatch(v, cv) {
			return false
		}
	}
	if !n.listPattern && len(candidate.properties) != len(n.properties) {
		return false
	}
	return true
}

func containsWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// wildcardMatch matches s against a glob pattern supporting '*' and '?'.
func wildcardMatch(pattern, s string) bool {
	// Iterative glob match with single-star backtracking.
	var starIdx, matchIdx = -1, 0
	i, j := 0, 0
	for i < len(s) {
		switch {
		case j < len(pattern) && (pattern[j] == '?' || pattern[j] == s[i]):
			i++
			j++
		case j < len(pattern) && pattern[j] == '*':
			starIdx = j
			matchIdx = i
			j++
		case starIdx >= 0:
			j = starIdx + 1
			matchIdx++
			i = matchIdx
		default:
			return false
		}
	}
	for j < len(pattern) && pattern[j] == '*' {
		j++
	}
	return j == len(pattern)
}
