//go:build treesitter

package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyLanguage_TreeSitter(t *testing.T) {
	assert.Equal(t, VerdictValid, VerifyLanguage("go", "package main\n\nfunc main() {}\n"))
	assert.Equal(t, VerdictInvalid, VerifyLanguage("go", "package main\n\nfunc main( {\n"))
	assert.Equal(t, VerdictValid, VerifyLanguage("python", "def f():\n    return 1\n"))
	assert.Equal(t, VerdictUnknown, VerifyLanguage("cobol", "DISPLAY 'HI'."))
}
