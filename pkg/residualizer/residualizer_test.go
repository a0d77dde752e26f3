package residualizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prebake/pkg/driver"
	"prebake/pkg/parser"
	"prebake/pkg/source"
)

func residualize(t *testing.T, src string) string {
	t.Helper()
	result, err := driver.Prebake([]*source.SourceFile{source.NewEvalSource(src)}, driver.DefaultOptions())
	require.NoError(t, err)
	return result.Code
}

// requireValidJS re-parses the output; every residual program must parse.
func requireValidJS(t *testing.T, code string) {
	t.Helper()
	_, errs := parser.Parse(source.NewEvalSource(code))
	require.Empty(t, errs, "residual program must parse:\n%s", code)
}

func TestCyclicObjectGraph(t *testing.T) {
	code := residualize(t, `
var a = {};
var b = { a: a };
a.b = b;`)
	requireValidJS(t, code)

	// Cycles are expressed via post-hoc property assignment: both shells
	// are declared before either cross reference.
	declA := strings.Index(code, "var a = {};")
	declB := strings.Index(code, "var b = {};")
	refAB := strings.Index(code, "a.b = b;")
	refBA := strings.Index(code, "b.a = a;")
	require.True(t, declA >= 0 && declB >= 0 && refAB >= 0 && refBA >= 0, "missing pieces:\n%s", code)
	assert.Less(t, declA, refBA)
	assert.Less(t, declB, refAB)
}

func TestSelfReference(t *testing.T) {
	code := residualize(t, "var s = {}; s.self = s;")
	requireValidJS(t, code)
	assert.Contains(t, code, "var s = {};")
	assert.Contains(t, code, "s.self = s;")
}

func TestNestedObjectsDeclaredBeforeUse(t *testing.T) {
	code := residualize(t, `var outer = { inner: { deep: 1 } };`)
	requireValidJS(t, code)
	// The inner object's declaration precedes its use in the outer one.
	for _, line := range strings.Split(code, "\n") {
		for _, ident := range identifiersIn(line) {
			declared := strings.Index(code, "var "+ident)
			used := strings.Index(code, line)
			if declared >= 0 && used >= 0 {
				assert.LessOrEqual(t, declared, used+len(line))
			}
		}
	}
	assert.Contains(t, code, "deep = 1;")
}

func identifiersIn(line string) []string {
	var out []string
	if i := strings.Index(line, "var "); i >= 0 {
		rest := line[i+4:]
		if j := strings.IndexAny(rest, " =;"); j > 0 {
			out = append(out, rest[:j])
		}
	}
	return out
}

func TestArraysKeepIndices(t *testing.T) {
	code := residualize(t, "var xs = [1, 2, 3];")
	requireValidJS(t, code)
	assert.Contains(t, code, "var xs = [];")
	assert.Contains(t, code, "xs[0] = 1;")
	assert.Contains(t, code, "xs[2] = 3;")
}

func TestNonDefaultDescriptorUsesDefineProperty(t *testing.T) {
	code := residualize(t, `
var o = {};
Object.defineProperty(o, "ro", { value: 5, writable: false, enumerable: true, configurable: false });`)
	requireValidJS(t, code)
	assert.Contains(t, code, "defineProperty")
	assert.Contains(t, code, `"ro"`)
	assert.Contains(t, code, "writable: false")
}

func TestFrozenObject(t *testing.T) {
	code := residualize(t, "var f = { v: 1 }; Object.freeze(f);")
	requireValidJS(t, code)
	assert.Contains(t, code, "defineProperty")
}

func TestPreludeMemoizesIntrinsicPaths(t *testing.T) {
	code := residualize(t, `
console.log("a");
console.log("b");`)
	requireValidJS(t, code)
	// One memoized console reference serves both calls.
	assert.Equal(t, 1, strings.Count(code, ".console"))
	assert.Equal(t, 2, strings.Count(code, ".log("))
}

func TestUnreachableObjectsAreDropped(t *testing.T) {
	code := residualize(t, `
(function () {
  var hidden = { secret: 123 };
  return 1;
})();`)
	requireValidJS(t, code)
	assert.NotContains(t, code, "123")
	assert.NotContains(t, code, "secret")
}
