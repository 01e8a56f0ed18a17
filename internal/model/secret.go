package model

import (
	"strings"
)

// SecretRef points at a credential held outside the settings tree.
// Its textual form is scheme:locator.
type SecretRef string

const (
	SchemeCredentialsJSON = "credentialsJSON" // managed by the CI host
	SchemeEnv             = "env"
	SchemeRedis           = "redis"
	SchemeGCPSecret       = "gcpsm"
)

// SecretSchemes lists every scheme recognized as a reference
var SecretSchemes = []string{SchemeCredentialsJSON, SchemeEnv, SchemeRedis, SchemeGCPSecret}

// NewSecretRef joins a scheme and locator
func NewSecretRef(scheme, locator string) SecretRef {
	return SecretRef(scheme + ":" + locator)
}

// Parse splits the reference. ok is false for literal values.
func (r SecretRef) Parse() (scheme, locator string, ok bool) {
	s := string(r)
	idx := strings.Index(s, ":")
	if idx <= 0 {
		return "", "", false
	}
	scheme, locator = s[:idx], s[idx+1:]
	if locator == "" {
		return "", "", false
	}
	for _, known := range SecretSchemes {
		if scheme == known {
			return scheme, locator, true
		}
	}
	return "", "", false
}

// IsEmpty reports whether no credential is configured
func (r SecretRef) IsEmpty() bool {
	return strings.TrimSpace(string(r)) == ""
}

// IsReference reports whether r is a well-formed reference rather than a literal
func (r SecretRef) IsReference() bool {
	_, _, ok := r.Parse()
	return ok
}

// String never exposes anything beyond the reference itself
func (r SecretRef) String() string {
	if r.IsEmpty() || r.IsReference() {
		return string(r)
	}
	return "<literal redacted>"
}

// MarshalText makes every YAML and JSON encoding go through String, so a
// literal that slipped past validation is never written out
func (r SecretRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
