// Package runtime provides the top-level lox runtime orchestrator.
package runtime

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fortio.org/log"

	"github.com/thomasrohde/lox/pkg/ast"
	"github.com/thomasrohde/lox/pkg/diagnostics"
	"github.com/thomasrohde/lox/pkg/evaluator"
	"github.com/thomasrohde/lox/pkg/formatter"
	"github.com/thomasrohde/lox/pkg/lexer"
	"github.com/thomasrohde/lox/pkg/parser"
	"github.com/thomasrohde/lox/pkg/validator"
)

// Result holds the outcome of a program execution: one value per top-level
// statement that ran.
type Result struct {
	Values []evaluator.Value
}

// Runtime wires together all lox components for program execution.
type Runtime struct {
	stdout   io.Writer
	trace    func(event evaluator.TraceEvent)
	warnings func(diagnostics.Diagnostic)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdout sets the writer print statements write to.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithWarnings sets the callback for parser warnings.
func WithWarnings(fn func(diagnostics.Diagnostic)) Option {
	return func(rt *Runtime) {
		rt.warnings = fn
	}
}

// New creates a new Runtime with the given options.
// By default, output goes to os.Stdout and warnings are only logged.
func New(opts ...Option) *Runtime {
	rt := &Runtime{stdout: os.Stdout}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Runtime) newParser() *parser.Parser {
	var opts []parser.Option
	if rt.warnings != nil {
		opts = append(opts, parser.WithWarnings(rt.warnings))
	}
	return parser.New(opts...)
}

func (rt *Runtime) newEvaluator() *evaluator.Evaluator {
	opts := []evaluator.Option{evaluator.WithStdout(rt.stdout)}
	if rt.trace != nil {
		opts = append(opts, evaluator.WithTrace(rt.trace))
	}
	return evaluator.New(opts...)
}

func (rt *Runtime) parse(p *parser.Parser, source, filename string) ([]ast.Stmt, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{Diagnose(err)}, Err: err}
	}
	stmts, err := p.Parse(tokens)
	if err != nil {
		return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{Diagnose(err)}, Err: err}
	}
	return stmts, nil
}

// Run parses and executes a lox program. Lex and parse failures come back as
// a *DiagnosticError and nothing runs. An evaluation failure comes back as
// the *evaluator.EvalError together with the values of the statements that
// completed before it.
func (rt *Runtime) Run(source, filename string) (*Result, error) {
	stmts, err := rt.parse(rt.newParser(), source, filename)
	if err != nil {
		return nil, err
	}
	log.LogVf("running %s: %d statements", filename, len(stmts))

	values, err := rt.newEvaluator().Run(stmts)
	return &Result{Values: values}, err
}

// Check parses and statically checks a lox program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	stmts, err := rt.parse(rt.newParser(), source, filename)
	if err != nil {
		return Diagnostics(err)
	}
	return validator.Validate(stmts)
}

// Format parses and formats a lox program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	stmts, err := rt.parse(rt.newParser(), source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(stmts), nil
}

// Tokens lexes a lox program, whitespace tokens included.
func (rt *Runtime) Tokens(source, filename string) ([]lexer.Token, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{Diagnose(err)}, Err: err}
	}
	return tokens, nil
}

// AST parses a lox program and renders its tree one statement per line.
func (rt *Runtime) AST(source, filename string) (string, error) {
	stmts, err := rt.parse(rt.newParser(), source, filename)
	if err != nil {
		return "", err
	}
	return ast.Program(stmts), nil
}

// Session is a persistent parser and evaluator pair. Declarations made by
// one Eval are visible to the next.
type Session struct {
	rt     *Runtime
	parser *parser.Parser
	eval   *evaluator.Evaluator
	inputs int
}

// NewSession starts an interactive session.
func (rt *Runtime) NewSession() *Session {
	return &Session{
		rt:     rt,
		parser: rt.newParser(),
		eval:   rt.newEvaluator(),
	}
}

func (s *Session) filename() string {
	return fmt.Sprintf("<repl:%d>", s.inputs)
}

// Eval parses and runs one input. Nothing runs if the input fails to parse.
// When evaluation fails, declarations from statements that never completed
// are withdrawn from the parser so later inputs see the same names the
// evaluator holds.
func (s *Session) Eval(source string) ([]evaluator.Value, error) {
	s.inputs++
	stmts, err := s.rt.parse(s.parser, source, s.filename())
	if err != nil {
		return nil, err
	}
	values, err := s.eval.Run(stmts)
	if err != nil {
		s.forgetUnbound(stmts[len(values):])
	}
	return values, err
}

func (s *Session) forgetUnbound(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		v, ok := stmt.(*ast.Var)
		if !ok {
			continue
		}
		if _, bound := s.eval.Lookup(v.Name); !bound && s.parser.Forget(v.Name) {
			log.LogVf("withdrew declaration of %s after failed input", v.Name)
		}
	}
}

// Probe parses source against a copy of the session scope without running
// it or changing the session. Callers pass the error to parser.Incomplete to
// decide whether to read more input.
func (s *Session) Probe(source string) error {
	_, err := s.rt.parse(s.parser.Fork(), source, s.filename())
	return err
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
	Err         error
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns the lexer or parser error behind the diagnostics.
func (e *DiagnosticError) Unwrap() error {
	return e.Err
}

// Diagnose converts any error from this module into a Diagnostic.
func Diagnose(err error) diagnostics.Diagnostic {
	var (
		de *DiagnosticError
		le *lexer.LexError
		pe *parser.ParseError
		ee *evaluator.EvalError
	)
	switch {
	case errors.As(err, &de) && len(de.Diagnostics) > 0:
		return de.Diagnostics[0]
	case errors.As(err, &le):
		return le.Diag
	case errors.As(err, &pe):
		return pe.Diag
	case errors.As(err, &ee):
		return ee.Diag
	}
	return diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")
}

// Diagnostics is Diagnose for callers that want every diagnostic an error
// carries.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	return []diagnostics.Diagnostic{Diagnose(err)}
}

// ExitCode maps an error to the CLI exit status: 0 for nil, 2 for lex and
// parse failures, 4 for evaluation failures and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *evaluator.EvalError
	if errors.As(err, &ee) {
		return 4
	}
	switch diagnostics.Stage(Diagnose(err).Code) {
	case "lex", "parse":
		return 2
	case "eval":
		return 4
	}
	return 1
}
