// Package providers defines the provider record shape, the adapter
// contract for fetching records by provider-native id, and the error
// taxonomy enrichment uses to decide between retry and skip.
package providers
