// Command lox is the lox interpreter CLI entry point.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"fortio.org/log"
	"github.com/peterh/liner"

	"github.com/thomasrohde/lox/pkg/diagnostics"
	"github.com/thomasrohde/lox/pkg/evaluator"
	"github.com/thomasrohde/lox/pkg/formatter"
	"github.com/thomasrohde/lox/pkg/help"
	"github.com/thomasrohde/lox/pkg/lexer"
	"github.com/thomasrohde/lox/pkg/parser"
	"github.com/thomasrohde/lox/pkg/runtime"
)

const (
	historyFile = ".lox_history"
	promptMain  = "lox> "
	promptCont  = "...  "
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: lox <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, tokens, ast, repl, help")
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "tokens":
		os.Exit(cmdTokens(os.Args[2:]))
	case "ast":
		os.Exit(cmdAST(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

// setLogLevel applies -v and -q.
func setLogLevel(verbose, quiet bool) {
	switch {
	case verbose:
		log.SetLogLevel(log.Verbose)
	case quiet:
		log.SetLogLevel(log.Error)
	}
}

func cmdRun(args []string) int {
	var file string
	pretty := false
	jsonOutput := false
	traceEnabled := false
	verbose, quiet := false, false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--json":
			jsonOutput = true
		case "--trace":
			traceEnabled = true
		case "-v":
			verbose = true
		case "-q":
			quiet = true
		case "-":
			file = "-"
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox run <file|-> [--pretty] [--json] [--trace] [-v|-q]")
		return 1
	}
	setLogLevel(verbose, quiet)

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	var opts []runtime.Option
	if traceEnabled {
		enc := json.NewEncoder(os.Stderr)
		opts = append(opts, runtime.WithTrace(func(ev evaluator.TraceEvent) {
			_ = enc.Encode(ev)
		}))
	}
	rt := runtime.New(opts...)

	result, execErr := rt.Run(source, filename)
	if execErr != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(execErr), pretty))
		return runtime.ExitCode(execErr)
	}

	if jsonOutput {
		jsonBytes, err := evaluator.ValuesToJSON(result.Values)
		if err != nil {
			log.Errf("error serializing result: %v", err)
			return 4
		}
		fmt.Println(string(jsonBytes))
	}
	return 0
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox check <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	// Valid program
	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox fmt <file> [--write]")
		return 1
	}

	source, filename, exitCode := readSource(file, false)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	formatted, fmtErr := rt.Format(source, filename)
	if fmtErr != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(fmtErr), false))
		return runtime.ExitCode(fmtErr)
	}

	// Warn about comments
	if formatter.HasComments(source) {
		log.Warnf("comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			log.Errf("error writing file: %v", err)
			return 1
		}
	} else {
		// Format already ends with a newline
		fmt.Print(formatted)
	}

	return 0
}

func cmdTokens(args []string) int {
	var file string
	all := false
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--all":
			all = true
		case "--pretty":
			pretty = true
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox tokens <file> [--all] [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	tokens, err := runtime.New().Tokens(source, filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), pretty))
		return runtime.ExitCode(err)
	}
	if !all {
		tokens = lexer.Significant(tokens)
	}
	for _, tok := range tokens {
		fmt.Printf("%d:%d\t%s\t%q\n", tok.Span.StartLine, tok.Span.StartCol, tok.Type, tok.Lexeme)
	}
	return 0
}

func cmdAST(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: lox ast <file> [--pretty]")
		return 1
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	tree, err := runtime.New().AST(source, filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), pretty))
		return runtime.ExitCode(err)
	}
	if tree != "" {
		fmt.Println(tree)
	}
	return 0
}

func cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Print(content)
	return 0
}

func cmdRepl(args []string) int {
	verbose, quiet := false, false
	for _, arg := range args {
		switch arg {
		case "-v":
			verbose = true
		case "-q":
			quiet = true
		}
	}
	setLogLevel(verbose, quiet)

	fmt.Println("lox repl. Type :quit to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	session := runtime.New().NewSession()

	for {
		code, ok := readByParseProbe(ln, session, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return 0
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}
		if trimmed == "" {
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		values, err := session.Eval(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(runtime.Diagnose(err), true))
			continue
		}
		if len(values) > 0 {
			fmt.Println("=> " + evaluator.ValueToJSONString(values[len(values)-1]))
		}
	}

	return 0
}

// readByParseProbe reads lines until they form an input that parses or fails
// for a reason other than running out of text.
func readByParseProbe(ln *liner.State, session *runtime.Session, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if perr := session.Probe(src); perr != nil && parser.Incomplete(perr) {
			continue
		}
		return src, true
	}
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		// Read from stdin
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Errf("error reading stdin: %v", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", "", 1
	}
	return string(source), file, 0
}
