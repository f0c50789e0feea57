// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package assembler builds the bounded prompt context for one chat turn
// from web research snippets, retrieved document chunks and session
// history. Section ordering is fixed and deterministic: web research first,
// documents second, both after the persona directive.
package assembler

import (
	"fmt"
	"strings"

	"github.com/devassist-ai/devassist/services/orchestrator/datatypes"
	"github.com/devassist-ai/devassist/services/research"
)

// SystemPrompt is the persona directive prepended to every generation
// request. Treated as a constant external input.
const SystemPrompt = `You are DevAssist, an expert programming assistant. You help developers with coding questions, debugging, algorithms, system design, and software engineering concepts.

When the user provides context from uploaded documents, USE THAT INFORMATION to answer their questions. Reference the documentation directly and explain concepts based on what's in the provided context.

If asked about uploaded documentation:
- Summarize and explain what's in the documents
- Extract key information, functions, APIs, or concepts
- Answer questions based on the documentation content
- Quote relevant parts when helpful

For general programming questions without context, provide clear technical explanations with code examples when appropriate.

Always be concise, accurate, and helpful.`

// Section labels.
const (
	SectionWebResearch = "web_research"
	SectionDocuments   = "documents"
)

// DefaultBundleBudget bounds the total rendered character length of a
// bundle, persona directive included.
const DefaultBundleBudget = 24000

// Section is one labeled block of prompt context.
type Section struct {
	Label string
	Text  string
}

// ContextBundle is the assembled context for one turn. Built fresh per
// turn, never persisted.
type ContextBundle struct {
	Sections []Section
}

// Assemble builds the bundle for a turn.
//
// # Description
//
// Produces at most two sections in fixed order: web research (when
// snippets exist), then uploaded-document context (when chunks exist).
// Each section carries its own instruction directive telling the generator
// how to weigh the material. Empty inputs simply omit their section; an
// all-empty bundle renders to the bare persona directive.
func Assemble(webSnippets []research.Result, docChunks []string) ContextBundle {
	var bundle ContextBundle

	if len(webSnippets) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\n--- WEB RESEARCH RESULTS ---\n")
		for i, snippet := range webSnippets {
			sb.WriteString(fmt.Sprintf("\n[%d] %s\n", i+1, snippet.Title))
			sb.WriteString(fmt.Sprintf("URL: %s\n", snippet.URL))
			sb.WriteString(snippet.Snippet)
			sb.WriteString("\n")
		}
		sb.WriteString("\n--- END OF WEB RESEARCH ---\n\n")
		sb.WriteString("Prefer the cited web results above when they answer the user's question. Fall back to your general knowledge only when the results do not cover it.")
		bundle.Sections = append(bundle.Sections, Section{Label: SectionWebResearch, Text: sb.String()})
	}

	if len(docChunks) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\n--- CONTEXT FROM UPLOADED DOCUMENTS ---\n")
		for i, chunk := range docChunks {
			sb.WriteString(fmt.Sprintf("\n[Document Section %d]\n%s\n", i+1, chunk))
		}
		sb.WriteString("\n--- END OF CONTEXT ---\n\n")
		sb.WriteString("Use the above context to answer the user's question. Reference specific information from the documents when relevant.")
		bundle.Sections = append(bundle.Sections, Section{Label: SectionDocuments, Text: sb.String()})
	}

	return bundle
}

// Render concatenates the persona directive and every section, applying
// the budget.
//
// # Description
//
// Truncation is priority-based: the persona directive is never cut, the
// web section is cut only after the documents section is gone, and the
// documents section is trimmed from its tail first. The result never
// exceeds DefaultBundleBudget characters.
func (b ContextBundle) Render() string {
	return b.renderWithBudget(DefaultBundleBudget)
}

func (b ContextBundle) renderWithBudget(budget int) string {
	remaining := budget - len(SystemPrompt)
	if remaining <= 0 {
		return SystemPrompt
	}

	// Higher-priority sections claim budget first; web research outranks
	// document context because it was fetched for this specific query.
	texts := make([]string, len(b.Sections))
	for i, section := range b.Sections {
		if remaining <= 0 {
			break
		}
		text := section.Text
		if len(text) > remaining {
			text = text[:remaining]
		}
		texts[i] = text
		remaining -= len(text)
	}

	var sb strings.Builder
	sb.WriteString(SystemPrompt)
	for _, t := range texts {
		sb.WriteString(t)
	}
	return sb.String()
}

// BuildMessages lays out the full generation input: persona directive plus
// context sections as the system message, prior turns, then the current
// user message.
func BuildMessages(bundle ContextBundle, history []datatypes.Message, userMessage string) []datatypes.Message {
	messages := make([]datatypes.Message, 0, len(history)+2)
	messages = append(messages, datatypes.Message{
		Role:    datatypes.RoleSystem,
		Content: bundle.Render(),
	})
	for _, m := range history {
		messages = append(messages, datatypes.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, datatypes.Message{
		Role:    datatypes.RoleUser,
		Content: userMessage,
	})
	return messages
}

// SourcesFooter renders the deterministic footer appended after a web-
// research-assisted answer. Empty when there were no results.
func SourcesFooter(results []research.Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n**Sources:**\n")
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, r.Title, r.URL))
	}
	return sb.String()
}
