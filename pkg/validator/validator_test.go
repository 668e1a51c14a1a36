package validator_test

import (
	"strings"
	"testing"

	"github.com/thomasrohde/lox/pkg/diagnostics"
	"github.com/thomasrohde/lox/pkg/parser"
	"github.com/thomasrohde/lox/pkg/validator"
)

// helper parses source and validates, returning diagnostics from validation only.
// It fatals on parse errors so test cases focus on validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	stmts, err := parser.ParseSource(source, "test.lox")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return validator.Validate(stmts)
}

// assertNoDiags asserts zero diagnostics were produced.
func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertDiagCount asserts the expected number of diagnostics.
func assertDiagCount(t *testing.T, diags []diagnostics.Diagnostic, expected int) {
	t.Helper()
	if len(diags) != expected {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected %d diagnostics, got %d:\n  %s", expected, len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertHasCode asserts that at least one diagnostic with the given code exists.
func assertHasCode(t *testing.T, diags []diagnostics.Diagnostic, code string) {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			return
		}
	}
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	t.Errorf("expected diagnostic code %s, got codes: %v", code, codes)
}

func TestValidProgramsHaveNoDiags(t *testing.T) {
	sources := []string{
		"print 1 + 2;",
		`print "a" + "b";`,
		`print "a" == "b";`,
		"print 1.5 * 2.0;",
		"print 1 / 2;",
		"print 1.0 / 0.0;",
		"var x = 1; print x + 1;",
		`var x = 1; print x + "a";`,
		"var x = true; if x print 1;",
		"if 1 < 2 print 1; else print 2;",
		"print true and false or !true;",
		"var b = true; print !b;",
		"var x; x = 1; print -x;",
		"{ var y = 2; print y * 3; }",
		"print (1 + 2) * 3;",
		"print 1 or true;",
		`print nil and "a" == "a";`,
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			assertNoDiags(t, mustParseAndValidate(t, src))
		})
	}
}

func TestStaticFailures(t *testing.T) {
	tests := []struct {
		source string
		code   string
	}{
		{`print "a" + 1;`, diagnostics.EType},
		{"print 1 + 2.0;", diagnostics.EType},
		{"print 1 == 1.0;", diagnostics.EType},
		{"print nil == false;", diagnostics.EType},
		{`print "a" - "b";`, diagnostics.EOperator},
		{`print "a" < "b";`, diagnostics.EOperator},
		{"print true == true;", diagnostics.EOperator},
		{"print nil == nil;", diagnostics.EOperator},
		{`print -"a";`, diagnostics.EOperator},
		{"print !1;", diagnostics.EOperator},
		{"print 1 / 0;", diagnostics.EDivZero},
		{"print 1 / (0);", diagnostics.EDivZero},
		{"print true or 1;", diagnostics.ELogicOperand},
		{"print 1 or nil;", diagnostics.ELogicOperand},
		{`print true and "x";`, diagnostics.ELogicOperand},
		{"if 1 print 1;", diagnostics.ECondition},
		{`if "yes" print 1;`, diagnostics.ECondition},
		{"if 1 + 1 print 1;", diagnostics.ECondition},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			diags := mustParseAndValidate(t, tt.source)
			assertDiagCount(t, diags, 1)
			assertHasCode(t, diags, tt.code)
			if len(diags) > 0 && diags[0].Span == nil {
				t.Error("expected a span")
			}
		})
	}
}

func TestKindsFlowThroughExpressions(t *testing.T) {
	tests := []struct {
		source string
		code   string
	}{
		{`print (1 + 2) + "a";`, diagnostics.EType},
		{"print (1 < 2) + 1;", diagnostics.EType},
		{"print -1.5 + 1;", diagnostics.EType},
		{`print ("a" + "b") - "c";`, diagnostics.EOperator},
		{"var x; print (x = 1) + 1.0;", diagnostics.EType},
		{"print (true or false) + 1;", diagnostics.EType},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			diags := mustParseAndValidate(t, tt.source)
			assertHasCode(t, diags, tt.code)
		})
	}
}

func TestReportsEveryProblem(t *testing.T) {
	diags := mustParseAndValidate(t, `print "a" + 1; { print 1 / 0; } if 1 print -true;`)
	assertDiagCount(t, diags, 4)
	want := []string{diagnostics.EType, diagnostics.EDivZero, diagnostics.ECondition, diagnostics.EOperator}
	for i, code := range want {
		if i < len(diags) && diags[i].Code != code {
			t.Errorf("diag %d = %s, want %s", i, diags[i].Code, code)
		}
	}
}

func TestFailureReportedOnce(t *testing.T) {
	// a failing operand makes the enclosing expression unknown
	diags := mustParseAndValidate(t, `print ("a" + 1) + 2 + 3;`)
	assertDiagCount(t, diags, 1)
}
