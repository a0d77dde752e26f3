package runtime

import (
	"strings"
)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NameGenerator issues monotone base-62 identifiers with an optional debug
// suffix derived from provenance, filtered against a forbidden-name set and
// tagged with a per-build unique suffix.
type NameGenerator struct {
	prefix    string
	uid       string
	counter   int
	forbidden map[string]bool
	debug     bool
}

// NewNameGenerator creates a generator. prefix starts every identifier; uid
// is the per-build unique suffix (may be empty for deterministic builds).
func NewNameGenerator(prefix, uid string) *NameGenerator {
	return &NameGenerator{
		prefix:    prefix,
		uid:       uid,
		forbidden: make(map[string]bool),
	}
}

// SetDebugNames enables provenance-derived suffixes.
func (g *NameGenerator) SetDebugNames(on bool) { g.debug = on }

// Forbid adds names that must never be issued (globals referenced by the
// residual program, reserved words).
func (g *NameGenerator) Forbid(names ...string) {
	for _, n := range names {
		g.forbidden[n] = true
	}
}

// Generate returns the next identifier. provenance, when debug names are
// enabled, is sanitized into a trailing hint.
func (g *NameGenerator) Generate(provenance string) string {
	for {
		name := "_" + g.prefix + base62(g.counter) + g.uid
		g.counter++
		if g.debug && provenance != "" {
			name += "_" + sanitizeIdentifier(provenance)
		}
		if !g.forbidden[name] {
			return name
		}
	}
}

func base62(n int) string {
	if n == 0 {
		return "0"
	}
	var sb []byte
	for n > 0 {
		sb = append([]byte{base62Alphabet[n%62]}, sb...)
		n /= 62
	}
	return string(sb)
}

// sanitizeIdentifier keeps the conservative ASCII identifier alphabet.
func sanitizeIdentifier(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s) && sb.Len() < 16; i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$' ||
			(sb.Len() > 0 && c >= '0' && c <= '9') {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
