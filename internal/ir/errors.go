package ir

import "fmt"

// Invariant aborts with a diagnostic when cond is false. The middle end has
// no recoverable errors (§7): a broken invariant — a desynced use-list, a
// phi whose incoming-block set no longer matches its predecessors, an
// opcode a visitor didn't expect — is a programming bug, not a condition a
// caller can handle, so it panics rather than returning an error.
func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic("ir: invariant violated: " + fmt.Sprintf(format, args...))
	}
}

// Unreachable aborts unconditionally, for switch default cases over the
// closed Opcode/Type/Predicate variant sets that must not be reached.
func Unreachable(format string, args ...any) {
	panic("ir: unreachable: " + fmt.Sprintf(format, args...))
}
