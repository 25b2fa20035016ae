// Package strategy chooses a chunking strategy per document.
//
// In auto mode the Selector counts structural signals in the document.
// Enough headings or code fences select the structure strategy, a document
// with no structure at all selects fixed windows, and anything in between
// is ambiguous: both strategies run and the Scorer decides.
//
// # Scoring
//
// The Scorer is stateless and rates a chunking on five components, each in
// [0,1]:
//
//   - header hierarchy preservation (weight 0.30)
//   - code block integrity (0.25)
//   - chunk size balance (0.20)
//   - metadata richness (0.15)
//   - language detection accuracy (0.10)
//
// The total is the weighted mean of the components. Scores do not depend on
// chunk order. Ties keep the structure strategy.
package strategy
