// Package em provides the reference numerical kernel: a per-document
// expectation-maximisation sweep turning one batch and one probability
// snapshot into partial counts, theta rows and a log-likelihood
// contribution. Any other kernel satisfying the same pure-function contract
// can replace it.
package em
