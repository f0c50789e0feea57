// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qwen

import (
	"regexp"
	"strings"
)

// The sidecar extracts innerText from a chat UI, so answers arrive with
// button labels, timestamps and flattened code blocks mixed in. These
// patterns strip the known UI noise. "Copy code" must precede "Copy".
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Qwen\d+-\w+`),
	regexp.MustCompile(`(?i)\d+:\d+\s*[AP]M`),
	regexp.MustCompile(`(?i)Image\s+Edit`),
	regexp.MustCompile(`(?i)Web\s+Dev`),
	regexp.MustCompile(`(?i)Image\s+Generation`),
	regexp.MustCompile(`(?i)Video\s+Generation`),
	regexp.MustCompile(`(?i)Artifacts`),
	regexp.MustCompile(`(?i)Thinking`),
	regexp.MustCompile(`(?i)Search`),
	regexp.MustCompile(`(?i)AI-generated content may not be accurate\.`),
	regexp.MustCompile(`(?i)Copy\s+code`),
	regexp.MustCompile(`(?i)Copy`),
	regexp.MustCompile(`(?i)Regenerate`),
	regexp.MustCompile(`(?i)Stop\s+generating`),
	regexp.MustCompile(`(?i)Share`),
}

// A bare language name on its own line marks where the UI flattened a code
// block. The fence is rebuilt from that marker.
var codeLanguages = map[string]bool{
	"kotlin": true, "dart": true, "python": true, "bash": true,
	"javascript": true, "java": true, "rust": true, "go": true,
	"cpp": true, "sql": true, "typescript": true, "swift": true,
	"ruby": true, "php": true, "html": true, "css": true,
	"json": true, "c": true,
}

var (
	sectionHeadingRe = regexp.MustCompile(`\n([A-Z][^:\n]{2,}:)\n`)
	excessNewlinesRe = regexp.MustCompile(`\n{3,}`)
)

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CleanResponse normalizes a raw alternate-provider answer into markdown.
//
// # Description
//
// Strips UI noise, rebuilds code fences from bare language-name markers,
// bolds section headings, bullets loose prose lines and collapses runs of
// blank lines. The result is stable markdown regardless of how messy the
// extracted text was.
//
// # Limitations
//
//   - Language detection is a fixed list. Code in an unlisted language
//     stays as plain lines.
func CleanResponse(raw string) string {
	cleaned := raw
	for _, re := range noisePatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	// Rebuild code fences. A fence closes on a blank line or a line ending
	// with ':', which is where the UI resumes prose.
	var resultLines []string
	var codeBlockLines []string
	inCodeBlock := false
	currentLang := ""

	flush := func() {
		if len(codeBlockLines) > 0 {
			resultLines = append(resultLines, "```"+currentLang)
			resultLines = append(resultLines, codeBlockLines...)
			resultLines = append(resultLines, "```", "")
		}
		inCodeBlock = false
		currentLang = ""
		codeBlockLines = nil
	}

	for _, line := range strings.Split(cleaned, "\n") {
		stripped := strings.TrimSpace(line)

		if isAllDigits(stripped) {
			continue
		}

		if !inCodeBlock && codeLanguages[strings.ToLower(stripped)] {
			currentLang = strings.ToLower(stripped)
			inCodeBlock = true
			codeBlockLines = nil
			continue
		}

		if inCodeBlock {
			if stripped == "" || strings.HasSuffix(stripped, ":") {
				flush()
				if stripped != "" {
					resultLines = append(resultLines, line)
				}
			} else {
				codeBlockLines = append(codeBlockLines, line)
			}
		} else if stripped != "" {
			resultLines = append(resultLines, line)
		}
	}
	if inCodeBlock && len(codeBlockLines) > 0 {
		resultLines = append(resultLines, "```"+currentLang)
		resultLines = append(resultLines, codeBlockLines...)
		resultLines = append(resultLines, "```")
	}

	cleaned = strings.Join(resultLines, "\n")

	cleaned = sectionHeadingRe.ReplaceAllString(cleaned, "\n\n**$1**\n")

	// Bullet loose prose lines. Lines inside rebuilt fences stay verbatim.
	var formattedLines []string
	inFence := false
	for _, line := range strings.Split(cleaned, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "```") {
			inFence = !inFence
			formattedLines = append(formattedLines, line)
			continue
		}
		if !inFence && stripped != "" &&
			!strings.HasPrefix(stripped, "-") &&
			!strings.HasPrefix(stripped, "*") &&
			!strings.HasPrefix(stripped, "1.") {
			formattedLines = append(formattedLines, "- "+stripped)
		} else {
			formattedLines = append(formattedLines, line)
		}
	}

	cleaned = strings.Join(formattedLines, "\n")
	cleaned = excessNewlinesRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
