/*
log.go - Append-only mutation log views

PURPOSE:
  The mutation log is the audit trail: every balance change is recorded
  here and never edited or deleted. Storage keeps insertion order; the
  canonical display order (newest first) is applied at read time.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. Deleting an account leaves its
     mutations in place with the stale id.
  2. Every entry satisfies its kind's reference rules (Entry.Validate).

READS:
  History(id) is a lazy, finite, restartable sequence: ranging over it
  twice yields the same mutations. Sorting is the caller's job.

SEE ALSO:
  - entry.go: Per-kind validation
  - engine.go: The only writer
*/
package ledger

import (
	"iter"
	"slices"
)

// MutationLog is a read view of the log in insertion order.
type MutationLog []Mutation

// History yields the mutations that debit or credit the account, in
// insertion order.
func (l MutationLog) History(id AccountID) iter.Seq[Mutation] {
	return func(yield func(Mutation) bool) {
		for _, m := range l {
			if !m.Touches(id) {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

// Newest returns a copy ordered by descending timestamp. Mutations with the
// same timestamp keep reverse insertion order, so the latest append is first.
func Newest(seq iter.Seq[Mutation]) []Mutation {
	out := slices.Collect(seq)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Mutation) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// newestTransactions orders transactions newest first with the same tie rule.
func newestTransactions(txs []Transaction) []Transaction {
	out := slices.Clone(txs)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// validateEntry is the log's only refusal: a missing reference for the kind.
func validateEntry(e Entry) error {
	if e == nil {
		return ErrMissingEntry
	}
	return e.Validate()
}
