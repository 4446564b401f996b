// Package wserrors provides the centralized error-code taxonomy and the
// structured Report type used by every compiler stage, grounded on the
// teacher's internal/errors package (codes.go, report.go).
package wserrors

// Error codes are distinguished by taxonomy, not Go type (spec.md §7): the
// lexer, parser, and AST builder all return the same *Report shape, with
// the Code field naming the phase-specific failure.
const (
	// Lexer errors (LEX###)

	// LEX001 is an unexpected character outside the identifier/operator set.
	LEX001 = "LEX001"
	// LEX002 is an unterminated string literal.
	LEX002 = "LEX002"
	// LEX003 is a malformed character literal (#\ with no valid form).
	LEX003 = "LEX003"
	// LEX004 is a malformed number literal (leading digit/dot that does not
	// parse as int or float).
	LEX004 = "LEX004"

	// Parser errors (PAR###)

	// PAR001 is an unbalanced parenthesis (missing close, or stray close).
	PAR001 = "PAR001"
	// PAR002 is a misplaced dot (outside a pair tail position).
	PAR002 = "PAR002"
	// PAR003 is an unexpected token where an s-expression was required.
	PAR003 = "PAR003"

	// AST builder errors (AST###)

	// AST001 is an invalid special-form shape (e.g. malformed `define`).
	AST001 = "AST001"
	// AST002 is a `define` encountered where defines are no longer legal
	// in the current scope (LocalUndefinable context).
	AST002 = "AST002"
	// AST003 is a reference to a letrec/let binding before it is
	// initialized.
	AST003 = "AST003"
	// AST004 is a `set!` of a variable that is not yet initialized.
	AST004 = "AST004"

	// IR errors (IR###) — internal invariant violations; these should be
	// unreachable in a correct compilation and are guarded by debug
	// assertions (SSA check, critical-edge check, dominance consistency).

	// IR001 indicates an SSA violation: a local was assigned more than once.
	IR001 = "IR001"
	// IR002 indicates a terminator referencing a nonexistent block.
	IR002 = "IR002"
	// IR003 indicates a critical edge present where phi elimination requires
	// none.
	IR003 = "IR003"
	// IR004 indicates an irreducible CFG reached the relooper.
	IR004 = "IR004"
	// IR005 indicates the IR generator was handed an AST node it cannot
	// lower (a phase-eliminated shape, an unresolved reference, or a
	// box_vars computation the generator's cell wiring disagrees with).
	IR005 = "IR005"
)
