// Package risk scores feature rows with a binary classifier and buckets
// the positive class probability into Low, Medium and High tiers.
package risk
