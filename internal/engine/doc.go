// Package engine implements the seqcheck sequence matcher.
//
// A Checker owns one compiled Sequence and folds an ordered message stream
// through it. Matching is single-pass, greedy and never backtracks: each
// message updates at most one step of at most one occurrence, although a
// failing step may close its occurrence and found the next one with the same
// message.
//
// ARCHITECTURE:
//
// Step is a closed union of four variants:
//   - LeafStep: a single message predicate
//   - SeqStep: a nested sequence whose child occurrences count as matches
//   - AltStep: alternatives tried in declaration order, the first to accept wins
//   - ParStep: branches matched in any order within a round
//
// Sequence evaluates its failure predicates, then offers the message to its
// steps in rotated order starting at the step that matched last.
//
// Occurrence holds the per-step results of one match attempt, keyed by
// stable step paths ("1", "2.1", "3.a2", "4.p1"), its failures, the shared
// context captured from named regex groups and the highest step ordinal
// reached so far.
//
// Matching faults (out of order, cardinality exceeded, context conflict,
// failure predicate) never abort processing; they are recorded on the
// occurrence and surface through its classification.
//
// A Checker is not safe for concurrent use. One Checker processes exactly
// one message stream.
package engine
