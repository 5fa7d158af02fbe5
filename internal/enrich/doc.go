// Package enrich runs the pausable, cancellable, rate-limited background
// job that walks the catalog, re-fetches provider records, and folds them
// back in through the reconciler. Exactly one run is active per process;
// control signals carry the run's token so signals from finished runs are
// no-ops.
package enrich
