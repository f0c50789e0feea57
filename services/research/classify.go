// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package research

import "strings"

var programmingKeywords = []string{
	"code", "python", "javascript", "java", "api", "function",
	"error", "debug", "programming", "algorithm", "database",
	"sql", "react", "vue", "django", "fastapi", "class", "method",
	"syntax", "compile", "runtime", "framework", "library", "rust",
	"go", "typescript", "flutter", "dart", "kotlin", "swift", "c++", "c#",
	"php", "ruby", "html", "css", "nodejs", "npm", "git", "docker",
	"kubernetes", "aws", "cloud", "backend", "frontend", "fullstack",
	"async", "websocket", "rest", "graphql", "tutorial", "guide",
	"documentation", "example", "how to", "features", "latest", "new",
	"best", "top", "implement", "simulation", "model",
	"script", "write", "app", "project",
}

var buildVerbs = []string{"implement", "simulate", "code", "build", "write"}

var scienceTerms = []string{
	"gravity", "quantum", "physics", "simulation", "math", "ai", "machine learning",
}

func containsAny(query string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(query, t) {
			return true
		}
	}
	return false
}

// IsProgrammingQuery reports whether a query is in-domain for the web
// research tool. Plain programming keywords match directly; scientific
// topics only match when paired with a build verb, so "explain gravity"
// stays out but "simulate gravity" gets through.
func IsProgrammingQuery(query string) bool {
	queryLower := strings.ToLower(query)
	if containsAny(queryLower, programmingKeywords) {
		return true
	}
	return containsAny(queryLower, buildVerbs) && containsAny(queryLower, scienceTerms)
}
