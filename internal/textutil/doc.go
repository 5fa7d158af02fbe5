// Package textutil provides title normalization and similarity scoring.
//
// The primary use cases are:
//   - Reducing titles from heterogeneous providers to canonical comparison
//     keys (compatibility normalization, diacritic folding, punctuation and
//     whitespace removal, CJK preserved)
//   - Scoring candidate titles against stored ones with Levenshtein edit
//     distance and token-vector cosine similarity, both on a 0-100 scale
//
// Normalized keys are comparison artifacts only; stored titles keep their
// original spelling.
package textutil
