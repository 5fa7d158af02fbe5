// Command collate maintains a local catalog of creative works reconciled
// from multiple external metadata providers.
package main
