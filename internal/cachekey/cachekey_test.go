package cachekey

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func TestDerive_Deterministic(t *testing.T) {
	params := []Param{{"model", "llama3"}, {"temperature", "0.7"}}

	k1 := Derive(NamespaceLLM, params, "What is AI?")
	k2 := Derive(NamespaceLLM, params, "What is AI?")

	if k1 != k2 {
		t.Fatalf("identical inputs produced different keys: %q vs %q", k1, k2)
	}
}

func TestDerive_NamespacePrefix(t *testing.T) {
	tests := []struct {
		namespace string
		prefix    string
	}{
		{NamespaceLLM, "llm:"},
		{NamespaceRAG, "rag:"},
		{NamespaceHealth, "healthcheck:"},
	}
	for _, tc := range tests {
		key := Derive(tc.namespace, nil, "payload")
		if !strings.HasPrefix(key, tc.prefix) {
			t.Errorf("Derive(%q, ...) = %q, want prefix %q", tc.namespace, key, tc.prefix)
		}
	}
}

func TestDerive_NamespacesDisjoint(t *testing.T) {
	llm := Derive(NamespaceLLM, nil, "same payload")
	rag := Derive(NamespaceRAG, nil, "same payload")
	if llm == rag {
		t.Fatal("llm and rag namespaces produced the same key")
	}
	if strings.HasPrefix(llm, "rag:") || strings.HasPrefix(rag, "llm:") {
		t.Fatal("namespace prefixes overlap")
	}
}

func TestDerive_PayloadChangesKey(t *testing.T) {
	params := []Param{{"model", "llama3"}}
	if Derive(NamespaceLLM, params, "a") == Derive(NamespaceLLM, params, "b") {
		t.Fatal("different payloads produced the same key")
	}
}

// Perturbing any single parameter must change the key with overwhelming
// probability.
func TestDerive_ParameterPerturbation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	base := []Param{
		{"model", "llama3"},
		{"temperature", "0.7"},
		{"max_docs", "3"},
		{"min_score", "0.5"},
		{"include_scores", "true"},
		{"collection", "documents"},
	}
	payload := "What is AI?"
	baseKey := Derive(NamespaceRAG, base, payload)

	for trial := 0; trial < 200; trial++ {
		perturbed := make([]Param, len(base))
		copy(perturbed, base)
		i := rng.Intn(len(perturbed))
		perturbed[i].Value = fmt.Sprintf("%s-%d", perturbed[i].Value, rng.Int63())

		if got := Derive(NamespaceRAG, perturbed, payload); got == baseKey {
			t.Fatalf("trial %d: perturbing %q did not change the key", trial, perturbed[i].Name)
		}
	}
}

// A payload that mimics the canonical parameter rendering must not collide
// with the same text supplied as a parameter.
func TestDerive_ParamPayloadBoundary(t *testing.T) {
	k1 := Derive(NamespaceLLM, []Param{{"model", "llama3"}}, "")
	k2 := Derive(NamespaceLLM, nil, "model=llama3;")
	if k1 == k2 {
		t.Fatal("parameter block collided with payload text")
	}
}

func TestPattern(t *testing.T) {
	if got := Pattern(NamespaceLLM); got != "llm:*" {
		t.Errorf("Pattern(llm) = %q, want %q", got, "llm:*")
	}
}
