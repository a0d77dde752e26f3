package driver

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prebake/pkg/errors"
	"prebake/pkg/runtime"
	"prebake/pkg/source"
)

func prebakeSource(t *testing.T, src string) (*Result, error) {
	t.Helper()
	return Prebake([]*source.SourceFile{source.NewEvalSource(src)}, DefaultOptions())
}

func mustPrebake(t *testing.T, src string) *Result {
	t.Helper()
	result, err := prebakeSource(t, src)
	require.NoError(t, err)
	return result
}

func TestConstantFolding(t *testing.T) {
	result := mustPrebake(t, "var x = 1 + 2; x;")
	assert.Contains(t, result.Code, "var x = 3;")
	assert.NotContains(t, result.Code, "1 + 2")
	// The program's completion value survives as a literal.
	assert.Contains(t, result.Code, "3;")
}

func TestRedundantWriteElimination(t *testing.T) {
	result := mustPrebake(t, "var a = {}; a.x = 1; a.x = 2;")
	assert.Contains(t, result.Code, "var a = {};")
	assert.Contains(t, result.Code, "a.x = 2;")
	assert.NotContains(t, result.Code, "a.x = 1;")
	assert.Equal(t, 1, strings.Count(result.Code, "a.x ="))
}

func TestForInOverNonSimpleAbstractObjectFails(t *testing.T) {
	result, err := prebakeSource(t, `var o = __abstract("object", "obj"); for (var k in o) {} ;`)
	require.Error(t, err)
	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, errors.CodeUnsupportedForIn, result.Diagnostics[0].Code)
	assert.Equal(t, errors.FatalError, result.Diagnostics[0].Severity)
}

func TestResidualForInCopyLoop(t *testing.T) {
	result := mustPrebake(t, `
var o = __abstract_simple_partial("src");
var t = {};
for (var k in o) { t[k] = o[k]; }`)
	assert.Contains(t, result.Code, "in src)")
	assert.Contains(t, result.Code, "= src[")
	assert.Contains(t, result.Code, "var t = {};")
}

func TestTopLevelThrowSurvives(t *testing.T) {
	result := mustPrebake(t, `throw new Error("boom");`)
	assert.Contains(t, result.Code, `throw new Error("boom");`)
	require.NotNil(t, result.Completion)
	assert.Equal(t, runtime.ThrowCompletion, result.Completion.Type)
}

func TestConsoleLogSurvives(t *testing.T) {
	result := mustPrebake(t, `console.log("hi");`)
	assert.Equal(t, 1, strings.Count(result.Code, `.log("hi")`))
}

func TestDeterminism(t *testing.T) {
	src := `
var o = __abstract_simple_partial("src");
var t = {};
for (var k in o) { t[k] = o[k]; }
var n = __abstract("number", "num") + 1;
console.log(n);`
	a := mustPrebake(t, src)
	b := mustPrebake(t, src)
	assert.Equal(t, a.Code, b.Code, "two runs over the same input must be byte-identical")
}

func TestIdempotence(t *testing.T) {
	first := mustPrebake(t, "var x = 1 + 2; var y = x * 2; y;")
	second := mustPrebake(t, first.Code)
	assert.Equal(t, first.Code, second.Code)
}

func TestPureDropSafety(t *testing.T) {
	// The derived sqrt value is never used; the declaration and its typeof
	// invariant guard must both vanish.
	result := mustPrebake(t, `
var c = __abstract("number", "n");
Math.sqrt(c);
var keep = 1;
keep;`)
	assert.NotContains(t, result.Code, "sqrt")
	assert.NotContains(t, result.Code, "typeof")
	assert.Contains(t, result.Code, "var keep = 1;")
}

func TestPureEntryKeptWhenReferenced(t *testing.T) {
	result := mustPrebake(t, `
var c = __abstract("number", "n");
var r = Math.sqrt(c);
console.log(r);`)
	assert.Contains(t, result.Code, "sqrt")
	// The derived declaration carries a runtime typeof guard.
	assert.Contains(t, result.Code, "typeof")
}

func TestStrictModeAssignmentResidualizesThrow(t *testing.T) {
	result := mustPrebake(t, `"use strict"; missing = 1;`)
	require.NotNil(t, result.Completion)
	assert.Equal(t, runtime.ThrowCompletion, result.Completion.Type)
	assert.Contains(t, result.Code, "throw new ReferenceError(")
}

func TestSloppyGlobalCreate(t *testing.T) {
	result := mustPrebake(t, `missing = 41; missing + 1;`)
	assert.Contains(t, result.Code, "var missing = 41;")
	assert.Contains(t, result.Code, "42;")
}

func TestAbstractConditionalEffects(t *testing.T) {
	result := mustPrebake(t, `
var cond = __abstract("boolean", "c");
if (cond) { console.log("yes"); } else { console.log("no"); }`)
	assert.Contains(t, result.Code, "if (")
	assert.Contains(t, result.Code, `"yes"`)
	assert.Contains(t, result.Code, `"no"`)
}

func TestAbstractGuardJoinsSameKindThrows(t *testing.T) {
	// Both branches throw the same error kind: the join succeeds and the
	// program's completion is the residual throw.
	result := mustPrebake(t, `
var cond = __abstract("boolean", "c");
if (cond) { throw new TypeError("a"); } else { throw new TypeError("b"); }`)
	require.NotNil(t, result.Completion)
	assert.Equal(t, runtime.ThrowCompletion, result.Completion.Type)
	assert.Contains(t, result.Code, "throw")
}

func TestAbstractGuardRejectsMixedKindThrows(t *testing.T) {
	result, err := prebakeSource(t, `
var cond = __abstract("boolean", "c");
if (cond) { throw new TypeError("a"); } else { throw new RangeError("b"); }`)
	require.Error(t, err)
	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, errors.CodeIncompatibleJoin, result.Diagnostics[0].Code)
}

func TestConsoleOrderingPreserved(t *testing.T) {
	result := mustPrebake(t, `
console.log("first");
console.log("second");
console.log("third");`)
	i1 := strings.Index(result.Code, `"first"`)
	i2 := strings.Index(result.Code, `"second"`)
	i3 := strings.Index(result.Code, `"third"`)
	require.True(t, i1 >= 0 && i2 >= 0 && i3 >= 0)
	assert.Less(t, i1, i2)
	assert.Less(t, i2, i3)
}

func TestFunctionSurvivesIntoOutput(t *testing.T) {
	result := mustPrebake(t, `
var f = function (a) { return a + 1; };
var unusedAtBuildTime = f;`)
	assert.Contains(t, result.Code, "function")
	assert.Contains(t, result.Code, "return a + 1;")
}

func TestDeadline(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = time.Nanosecond
	_, err := Prebake([]*source.SourceFile{source.NewEvalSource("var i = 0; while (i < 100000) { i++; }")}, opts)
	require.Error(t, err)
	abort, ok := err.(*errors.FatalAbort)
	require.True(t, ok, "deadline must surface as a fatal abort, got %T", err)
	assert.Equal(t, errors.CodeDeadlineExceeded, abort.Diagnostic.Code)
}

func TestParseErrorsAggregate(t *testing.T) {
	_, err := prebakeSource(t, "var = ;")
	require.Error(t, err)
}

func TestMultipleSources(t *testing.T) {
	result, err := Prebake([]*source.SourceFile{
		source.NewSourceFile("a.js", "", "var shared = 10;"),
		source.NewSourceFile("b.js", "", "var total = shared + 5; total;"),
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, result.Code, "var total = 15;")
}
