// Package analytics turns survey response records into metrics.
//
// Every function is pure: inputs are never modified and nothing is kept
// between calls. Records are single answers; person level figures are built by
// grouping records on PersonID.
//
// Composite index weights are reproduced from the scoring sheet the survey was
// designed with. Their rationale was never documented, so treat them as
// provisional.
package analytics
