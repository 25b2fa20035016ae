package chunker

import (
	"encoding/json"
	"regexp"
	"strings"
)

// languageAliases maps fence info tags to canonical language names
var languageAliases = map[string]string{
	"golang":     "go",
	"py":         "python",
	"python3":    "python",
	"py3":        "python",
	"js":         "javascript",
	"node":       "javascript",
	"mjs":        "javascript",
	"jsx":        "javascript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"sh":         "bash",
	"shell":      "bash",
	"zsh":        "bash",
	"console":    "bash",
	"yml":        "yaml",
	"c++":        "cpp",
	"cc":         "cpp",
	"hpp":        "cpp",
	"rs":         "rust",
	"rb":         "ruby",
	"md":         "markdown",
	"ps1":        "powershell",
	"pwsh":       "powershell",
	"jsonc":      "json",
	"kt":         "kotlin",
	"cs":         "csharp",
	"c#":         "csharp",
	"postgresql": "sql",
	"psql":       "sql",
	"htm":        "html",
	"xhtml":      "html",
	"docker":     "dockerfile",
	"tf":         "hcl",
}

// NormalizeLanguage returns the canonical name for a fence info tag
func NormalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.Trim(tag, "{}.")
	if i := strings.IndexAny(tag, " \t,{"); i >= 0 {
		tag = tag[:i]
	}
	tag = strings.TrimPrefix(tag, "language-")
	if canonical, ok := languageAliases[tag]; ok {
		return canonical
	}
	return tag
}

// resolveLanguage prefers the fence info string and falls back to content
func resolveLanguage(info, code string) string {
	if lang := NormalizeLanguage(info); lang != "" {
		return lang
	}
	return DetectLanguage(code)
}

var (
	goPackage  = regexp.MustCompile(`(?m)^package \w+\s*$`)
	goFunc     = regexp.MustCompile(`(?m)^func (\(\w+ \*?\w+\) )?\w+\(`)
	pyDef      = regexp.MustCompile(`(?m)^\s*(def|class) \w+.*:\s*$`)
	pyImport   = regexp.MustCompile(`(?m)^(from [\w.]+ )?import [\w.]+(, [\w.]+)*\s*$`)
	jsDecl     = regexp.MustCompile(`(?m)^\s*(const|let|var) \w+ = |function \w*\(|=> \{|console\.log\(`)
	sqlStmt    = regexp.MustCompile(`(?im)^\s*(SELECT|INSERT INTO|UPDATE|DELETE FROM|CREATE TABLE|ALTER TABLE)\s`)
	shellLine  = regexp.MustCompile(`(?m)^(#!/bin/(ba|z)?sh|\$ \S)`)
	cInclude   = regexp.MustCompile(`(?m)^#include [<"]`)
	rustFn     = regexp.MustCompile(`(?m)^\s*(pub )?fn \w+\(|let mut `)
	htmlTag    = regexp.MustCompile(`(?i)^\s*<(!doctype|html|div|p|span|head|body)\b`)
	yamlKeyVal = regexp.MustCompile(`^\s*(- )?[\w.-]+:(\s|$)`)
)

// DetectLanguage guesses the language of an unlabeled code block. It returns
// an empty string when no heuristic matches.
func DetectLanguage(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}

	switch {
	case goPackage.MatchString(code) || goFunc.MatchString(code):
		return "go"
	case rustFn.MatchString(code):
		return "rust"
	case pyDef.MatchString(code) || pyImport.MatchString(code):
		return "python"
	case cInclude.MatchString(code):
		return "c"
	case sqlStmt.MatchString(code):
		return "sql"
	case shellLine.MatchString(code):
		return "bash"
	case jsDecl.MatchString(code):
		return "javascript"
	case htmlTag.MatchString(code):
		return "html"
	case (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid([]byte(trimmed)):
		return "json"
	case looksLikeYAML(trimmed):
		return "yaml"
	}
	return ""
}

func looksLikeYAML(code string) bool {
	lines := strings.Split(code, "\n")
	if len(lines) < 2 {
		return false
	}
	for _, l := range lines {
		if strings.TrimSpace(l) == "" || strings.HasPrefix(strings.TrimSpace(l), "#") {
			continue
		}
		if !yamlKeyVal.MatchString(l) && !strings.HasPrefix(strings.TrimSpace(l), "- ") {
			return false
		}
	}
	return true
}
