package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"Go":                    "go",
		"golang":                "go",
		"python {.numberLines}": "python",
		"language-js":           "javascript",
		"yml":                   "yaml",
		"  ":                    "",
		"haskell":               "haskell",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeLanguage(in), "tag %q", in)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"go", "package main\n\nfunc main() {}\n", "go"},
		{"rust", "fn main() {\n    let mut x = 1;\n}\n", "rust"},
		{"python", "def hello():\n    return 1\n", "python"},
		{"c", "#include <stdio.h>\nint main() {}\n", "c"},
		{"sql", "SELECT * FROM users;\n", "sql"},
		{"bash", "$ go build ./...\n", "bash"},
		{"javascript", "const x = 1;\nconsole.log(x);\n", "javascript"},
		{"html", "<div>hi</div>\n", "html"},
		{"json", "{\"a\": 1}\n", "json"},
		{"yaml", "name: x\nversion: 1\n", "yaml"},
		{"unknown", "hello world\n", ""},
		{"empty", "  \n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.code))
		})
	}
}

func TestResolveLanguage_PrefersInfoString(t *testing.T) {
	assert.Equal(t, "python", resolveLanguage("py", "package main\n"))
	assert.Equal(t, "go", resolveLanguage("", "package main\n"))
}

func TestVerifyLanguage_JSON(t *testing.T) {
	assert.Equal(t, VerdictValid, VerifyLanguage("json", `{"a": [1, 2]}`))
	assert.Equal(t, VerdictInvalid, VerifyLanguage("json", `{"a": `))
	assert.Equal(t, VerdictUnknown, VerifyLanguage("", "anything"))
}
