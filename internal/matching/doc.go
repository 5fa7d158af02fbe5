// Package matching resolves incoming provider records to existing catalog
// entities by title. Identity matches on external ids happen before title
// matching and live in the reconciler; this package only answers "which
// entity does this title belong to".
package matching
