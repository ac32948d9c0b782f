// Package cachekey derives deterministic, collision-resistant cache keys
// from operation parameters and raw payload text.
//
// Keys are namespaced (`llm:`, `rag:`, `healthcheck:`) so a pattern flush
// of one namespace never evicts another, and every parameter that changes
// the generated output must be included: omitting one produces stale
// cross-parameter cache hits.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Cache key namespaces. Disjoint by construction: the namespace prefix
// never contains ':' and the hash is hex-only.
const (
	NamespaceLLM    = "llm"
	NamespaceRAG    = "rag"
	NamespaceHealth = "healthcheck"
)

// Param is a named operation parameter that affects generated output
// (model, temperature, max_docs, min_score, ...). Order matters: callers
// pass a stable ordering so the rendering is canonical.
type Param struct {
	Name  string
	Value string
}

// Derive maps (namespace, parameters, payload) to a cache key string.
// Deterministic: identical inputs always produce the same key. The key is
// the namespace prefix plus a sha256 over a canonical rendering of the
// parameters concatenated with the payload.
func Derive(namespace string, params []Param, payload string) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value)
		b.WriteByte(';')
	}
	// NUL separates the parameter block from the payload so a payload
	// starting with "name=value;" cannot collide with a parameter.
	b.WriteByte(0)
	b.WriteString(payload)

	h := sha256.Sum256([]byte(b.String()))
	return namespace + ":" + hex.EncodeToString(h[:])
}

// Pattern returns the glob pattern matching every key in a namespace,
// for namespace-scoped cache flushes.
func Pattern(namespace string) string {
	return namespace + ":*"
}
