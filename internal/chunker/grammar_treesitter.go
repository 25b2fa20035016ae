//go:build treesitter

package chunker

// This file is compiled with the treesitter tag. It verifies code blocks
// against tree-sitter grammars (requires CGO).
//
// Build command:
//   CGO_ENABLED=1 go build -tags "treesitter" ./...

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

var grammars = map[string]*sitter.Language{
	"go":         golang.GetLanguage(),
	"python":     python.GetLanguage(),
	"javascript": javascript.GetLanguage(),
}

func verifyGrammar(lang, code string) Verdict {
	grammar, ok := grammars[lang]
	if !ok {
		return VerdictUnknown
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(code))
	if err != nil {
		return VerdictUnknown
	}
	defer tree.Close()

	if tree.RootNode().HasError() {
		return VerdictInvalid
	}
	return VerdictValid
}
