// Package chunker splits text documents into retrievable chunks.
//
// Chunking runs in two stages. Stage 1 scans markdown structure and
// partitions the text into segments: header sections (a heading and the
// prose under it), fenced code blocks, pipe tables, lists and paragraphs.
// Code blocks and tables are never split by Stage 1. Stage 2 refines any
// segment longer than the target size into overlapping windows that end on
// rune boundaries, preferring newlines and spaces.
//
// # Basic Usage
//
//	c := chunker.New(chunker.Config{TargetChunkSize: 800, OverlapSize: 80})
//	res, err := c.Chunk(rec.Document(), chunker.StrategyStructure)
//	if err != nil {
//	    return err
//	}
//	for _, w := range res.Warnings {
//	    log.Printf("warning: %v", w)
//	}
//
// # Strategies
//
//   - structure: Stage 1 then Stage 2
//   - fixed: the whole text is one paragraph refined by Stage 2
//   - auto: must be resolved by the strategy selector before chunking
//
// # Guarantees
//
//   - Empty or whitespace-only input yields no chunks
//   - Chunk indices are contiguous from zero
//   - Chunk ids are deterministic for identical input and configuration
//   - types.Reconstruct of the chunks returns the original text
//   - An unterminated fence is chunked as prose and reported as a warning
//
// # Language Detection
//
// Code blocks take their language from the fence info string, normalised
// through an alias table ("golang" is "go", "py" is "python"). Unlabeled
// blocks fall back to DetectLanguage heuristics. VerifyLanguage checks a
// block against a grammar; building with -tags treesitter enables
// tree-sitter grammars for go, python and javascript.
package chunker
