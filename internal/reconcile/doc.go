// Package reconcile folds provider records into the catalog: matching
// them to existing entities, merging fields through the protection
// ledger, and back-filling inverse relation pointers.
package reconcile
