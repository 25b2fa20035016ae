package chunker

import "encoding/json"

// Verdict is the outcome of checking a code block against a language grammar
type Verdict int

const (
	// VerdictUnknown means no grammar is available for the language
	VerdictUnknown Verdict = iota
	// VerdictValid means the code parsed without errors
	VerdictValid
	// VerdictInvalid means the grammar rejected the code
	VerdictInvalid
)

// VerifyLanguage checks code against the grammar of lang. Grammar support
// depends on the build: with the treesitter tag go, python and javascript
// are parsed by tree-sitter; json is always checked.
func VerifyLanguage(lang, code string) Verdict {
	if lang == "" {
		return VerdictUnknown
	}
	if lang == "json" {
		return verifyJSON(code)
	}
	return verifyGrammar(lang, code)
}

func verifyJSON(code string) Verdict {
	if json.Valid([]byte(code)) {
		return VerdictValid
	}
	return VerdictInvalid
}
