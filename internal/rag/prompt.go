package rag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragway/internal/domain"
)

const (
	promptPreamble = "Use the following context to answer the question. " +
		"If the context does not contain the answer, say so. " +
		"Cite the sources you rely on. " +
		"If sources conflict, point out the conflict."

	noContextNote = "Note: no context available; answering from the model's general knowledge."

	contextDelimiter = "---"
)

// buildAugmentedPrompt assembles the instruction preamble, one block per
// document and the original question, separated by a visible delimiter.
func buildAugmentedPrompt(question string, docs []domain.ScoredDocument) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)
	sb.WriteString("\n\n")

	for i, doc := range docs {
		source := doc.Source()
		if source == "" {
			source = strconv.Itoa(i)
		}
		fmt.Fprintf(&sb, "SOURCE: %s(%.2f)\n", source, doc.Score)
		sb.WriteString("CONTENT: ")
		sb.WriteString(doc.Content)
		sb.WriteString("\n\n")
	}

	sb.WriteString(contextDelimiter)
	sb.WriteString("\n")
	sb.WriteString(question)
	return sb.String()
}

// buildNoContextPrompt tags the question so the model knows retrieval
// produced nothing usable.
func buildNoContextPrompt(question string) string {
	return noContextNote + "\n\n" + question
}
