// Package driver wires the pipeline together: parse → interpret →
// residualize → print. It owns option handling, the diagnostic funnel, and
// the fatal-abort boundary.
package driver

import (
	"fmt"
	"os"
	"time"

	"github.com/go-sourcemap/sourcemap"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"prebake/pkg/ast"
	"prebake/pkg/errors"
	"prebake/pkg/interpreter"
	"prebake/pkg/intrinsics"
	"prebake/pkg/parser"
	"prebake/pkg/printer"
	"prebake/pkg/residualizer"
	"prebake/pkg/runtime"
	"prebake/pkg/source"
)

// Options configure one Prebake run.
type Options struct {
	// Timeout bounds interpretation wall-clock time; zero disables it.
	Timeout time.Duration `yaml:"timeout"`
	// BuildSuffix tags generated identifiers; empty keeps output
	// deterministic across runs.
	BuildSuffix string `yaml:"buildSuffix"`
	// AbstractInterpretation enables speculative evaluation of branches on
	// abstract guards.
	AbstractInterpretation bool `yaml:"abstractInterpretation"`
	// DebugNames adds provenance hints to generated identifiers.
	DebugNames bool `yaml:"debugNames"`
	// UniqueSuffix derives a fresh per-build suffix when BuildSuffix is
	// empty; a non-empty BuildSuffix takes precedence. Mutually exclusive
	// with deterministic output.
	UniqueSuffix bool `yaml:"uniqueSuffix"`
	// InputSourceMap, when set, rewrites parsed positions so diagnostics
	// point at the author's sources.
	InputSourceMap []byte `yaml:"-"`
	// Logger receives engine trace output; the zero value disables it.
	Logger zerolog.Logger `yaml:"-"`
	// OnDiagnostic, when set, observes every diagnostic as it is reported.
	OnDiagnostic errors.DiagnosticHandler `yaml:"-"`
}

// DefaultOptions returns the options used by the CLI when no config is
// given.
func DefaultOptions() Options {
	return Options{
		AbstractInterpretation: true,
		Logger:                 zerolog.New(os.Stderr).Level(zerolog.Disabled),
	}
}

// Result is the outcome of a successful run.
type Result struct {
	Code        string
	Diagnostics []*errors.CompilerDiagnostic
	// Completion is the interpreted program's final completion.
	Completion *runtime.Completion
}

// Prebake partially evaluates the given sources and returns the residual
// program. Sources are interpreted in order against one shared realm, as
// the startup of a single program.
func Prebake(sources []*source.SourceFile, opts Options) (*Result, error) {
	result := &Result{}

	realm := runtime.NewRealm(opts.Logger)
	realm.AbstractInterpretation = opts.AbstractInterpretation
	realm.Handler = func(d *errors.CompilerDiagnostic) {
		result.Diagnostics = append(result.Diagnostics, d)
		if opts.OnDiagnostic != nil {
			opts.OnDiagnostic(d)
		}
	}

	if err := intrinsics.InitializeRealm(realm); err != nil {
		return nil, pkgerrors.Wrap(err, "installing intrinsics")
	}
	interpreter.Register(realm)

	if opts.Timeout > 0 {
		realm.Deadline = time.Now().Add(opts.Timeout)
	}

	// Parse every source before interpreting any of them.
	var programs []*ast.Program
	var parseErrs *multierror.Error
	for _, src := range sources {
		prog, errs := parser.Parse(src)
		if len(errs) > 0 {
			for _, e := range errs {
				parseErrs = multierror.Append(parseErrs, e)
			}
			continue
		}
		if opts.InputSourceMap != nil {
			rewritePositions(prog, src, opts.InputSourceMap, opts.Logger)
		}
		programs = append(programs, prog)
	}
	if err := parseErrs.ErrorOrNil(); err != nil {
		return nil, err
	}

	buildSuffix := opts.BuildSuffix
	if opts.UniqueSuffix && buildSuffix == "" {
		buildSuffix = "$" + uuid.NewString()[:8]
	}
	res := residualizer.New(realm, residualizer.Options{
		BuildSuffix: buildSuffix,
		DebugNames:  opts.DebugNames,
	})

	completion, err := interpretPrograms(realm, programs)
	if err != nil {
		return result, err
	}
	result.Completion = completion

	outProgram := res.Residualize(completion)
	result.Code = printer.Print(outProgram)
	return result, nil
}

// interpretPrograms drives the abstract interpreter over each parsed
// source, converting the fatal-abort sentinel back into an error at this
// boundary only.
func interpretPrograms(realm *runtime.Realm, programs []*ast.Program) (completion *runtime.Completion, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if abort, ok := rec.(*errors.FatalAbort); ok {
				err = abort
				return
			}
			panic(rec)
		}
	}()

	ctx := &runtime.ExecutionContext{
		LexicalEnv:  realm.GlobalEnv,
		VariableEnv: realm.GlobalEnv,
		ThisValue:   realm.GlobalObject.SelfValue(),
	}
	realm.EnterContext(ctx)
	defer realm.LeaveContext()

	completion = runtime.Normal(runtime.Undefined)
	for _, prog := range programs {
		completion = realm.EvaluateNode(prog, prog.Strict, realm.GlobalEnv)
		if completion.Type == runtime.ThrowCompletion {
			// A top-level throw ends startup; it is re-materialized in the
			// residual program.
			return completion, nil
		}
	}
	return completion, nil
}

// rewritePositions maps parsed positions through a consumed source map so
// diagnostics point at original files.
func rewritePositions(prog *ast.Program, src *source.SourceFile, mapData []byte, logger zerolog.Logger) {
	consumer, err := sourcemap.Parse(src.DisplayPath()+".map", mapData)
	if err != nil {
		logger.Warn().Err(err).Msg("input source map unusable; positions left as parsed")
		return
	}
	ast.Walk(prog, func(n ast.Node) {
		type locSetter interface {
			SetLoc(errors.Position)
		}
		setter, ok := n.(locSetter)
		if !ok {
			return
		}
		pos := n.Pos()
		if !pos.IsValid() {
			return
		}
		file, _, line, col, ok := consumer.Source(pos.Line, pos.Column)
		if !ok {
			return
		}
		pos.Line = line
		pos.Column = col
		if file != "" {
			pos.Source = source.NewSourceFile(file, file, "")
		}
		setter.SetLoc(pos)
	})
}

// FormatDiagnostics renders diagnostics for terminal output.
func FormatDiagnostics(diags []*errors.CompilerDiagnostic) string {
	out := ""
	for _, d := range diags {
		out += fmt.Sprintf("%s\n", d.Error())
	}
	return out
}
