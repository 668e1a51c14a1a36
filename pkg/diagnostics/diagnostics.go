// Package diagnostics defines lox diagnostic types for lex, parse and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/lox/pkg/ast"
)

// Diagnostic code constants.
const (
	// Lexing
	ELex                = "E_LEX"
	EUnterminatedString = "E_UNTERMINATED_STRING"
	EMalformedNumber    = "E_MALFORMED_NUMBER"
	EUnexpectedChar     = "E_UNEXPECTED_CHAR"

	// Parsing
	EParse             = "E_PARSE"
	EUndeclared        = "E_UNDECLARED"
	EAssignTarget      = "E_ASSIGN_TARGET"
	EUnterminatedBlock = "E_UNTERMINATED_BLOCK"

	// Evaluation
	EType         = "E_TYPE"
	EOperator     = "E_OPERATOR"
	ELogicOperand = "E_LOGIC_OPERAND"
	ECondition    = "E_CONDITION"
	EDivZero      = "E_DIV_ZERO"

	// Host
	EIO = "E_IO"
)

// Stage names the pipeline stage a diagnostic code belongs to: "lex",
// "parse", "eval" or "io".
func Stage(code string) string {
	switch code {
	case ELex, EUnterminatedString, EMalformedNumber, EUnexpectedChar:
		return "lex"
	case EParse, EUndeclared, EAssignTarget, EUnterminatedBlock:
		return "parse"
	case EIO:
		return "io"
	default:
		return "eval"
	}
}

// Diagnostic represents a lex, parse, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
