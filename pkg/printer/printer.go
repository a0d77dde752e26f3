// Package printer turns an AST back into JavaScript source text. It
// implements the printing half of the front-end contract: input a final
// AST, output {code}.
package printer

import (
	"bytes"
	"fmt"
	"strings"

	"prebake/pkg/ast"
)

// Printer transforms AST nodes into JavaScript code.
type Printer struct {
	indentLevel int
	buffer      bytes.Buffer
}

// New creates a printer.
func New() *Printer {
	return &Printer{}
}

// Print converts a program AST to JavaScript code.
func Print(program *ast.Program) string {
	return New().Print(program)
}

// Print converts a program AST to JavaScript code.
func (p *Printer) Print(program *ast.Program) string {
	p.buffer.Reset()
	p.indentLevel = 0
	for _, stmt := range program.Statements {
		p.printStatement(stmt)
	}
	return p.buffer.String()
}

// PrintStatements prints a bare statement list (used in tests).
func (p *Printer) PrintStatements(stmts []ast.Statement) string {
	p.buffer.Reset()
	p.indentLevel = 0
	for _, stmt := range stmts {
		p.printStatement(stmt)
	}
	return p.buffer.String()
}

// --- helpers ---

func (p *Printer) indent()  { p.indentLevel++ }
func (p *Printer) dedent()  {
	if p.indentLevel > 0 {
		p.indentLevel--
	}
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indentLevel; i++ {
		p.buffer.WriteString("  ")
	}
}

func (p *Printer) write(format string, args ...interface{}) {
	fmt.Fprintf(&p.buffer, format, args...)
}

// Expression precedence levels for parenthesization decisions.
const (
	precSequence = iota
	precAssignment
	precConditional
	precCoalesce
	precLogicalOr
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precCall
	precPrimary
)

func binaryPrec(op string) int {
	switch op {
	case "==", "!=", "===", "!==":
		return precEquality
	case "<", ">", "<=", ">=", "in", "instanceof":
		return precRelational
	case "<<", ">>", ">>>":
		return precShift
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	case "&":
		return precBitAnd
	case "|":
		return precBitOr
	case "^":
		return precBitXor
	default:
		return precPrimary
	}
}

func exprPrec(e ast.Expression) int {
	switch x := e.(type) {
	case *ast.SequenceExpression:
		return precSequence
	case *ast.AssignmentExpression:
		return precAssignment
	case *ast.ConditionalExpression:
		return precConditional
	case *ast.LogicalExpression:
		switch x.Operator {
		case "??":
			return precCoalesce
		case "||":
			return precLogicalOr
		default:
			return precLogicalAnd
		}
	case *ast.BinaryExpression:
		return binaryPrec(x.Operator)
	case *ast.UnaryExpression:
		return precUnary
	case *ast.UpdateExpression:
		if x.Prefix {
			return precUnary
		}
		return precPostfix
	case *ast.CallExpression, *ast.MemberExpression, *ast.NewExpression:
		return precCall
	case *ast.FunctionLiteral:
		return precAssignment
	default:
		return precPrimary
	}
}

// --- statements ---

func (p *Printer) printStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		p.writeIndent()
		p.printVariableDeclaration(s)
		p.write(";\n")
	case *ast.FunctionDeclaration:
		p.writeIndent()
		p.printFunction(s.Function)
		p.write("\n")
	case *ast.ExpressionStatement:
		p.writeIndent()
		// An expression statement must not begin with `{` or `function`.
		switch s.Expression.(type) {
		case *ast.ObjectLiteral, *ast.FunctionLiteral:
			p.write("(")
			p.printExpression(s.Expression, precSequence)
			p.write(")")
		default:
			p.printExpression(s.Expression, precSequence)
		}
		p.write(";\n")
	case *ast.BlockStatement:
		p.writeIndent()
		p.printBlock(s)
		p.write("\n")
	case *ast.IfStatement:
		p.writeIndent()
		p.printIf(s)
		p.write("\n")
	case *ast.WhileStatement:
		p.writeIndent()
		p.write("while (")
		p.printExpression(s.Test, precSequence)
		p.write(") ")
		p.printNestedStatement(s.Body)
		p.write("\n")
	case *ast.DoWhileStatement:
		p.writeIndent()
		p.write("do ")
		p.printNestedStatement(s.Body)
		p.write(" while (")
		p.printExpression(s.Test, precSequence)
		p.write(");\n")
	case *ast.ForStatement:
		p.writeIndent()
		p.write("for (")
		switch init := s.Init.(type) {
		case *ast.VariableDeclaration:
			p.printVariableDeclaration(init)
		case *ast.ExpressionStatement:
			p.printExpression(init.Expression, precSequence)
		}
		p.write("; ")
		if s.Test != nil {
			p.printExpression(s.Test, precSequence)
		}
		p.write("; ")
		if s.Update != nil {
			p.printExpression(s.Update, precSequence)
		}
		p.write(") ")
		p.printNestedStatement(s.Body)
		p.write("\n")
	case *ast.ForInStatement:
		p.writeIndent()
		p.write("for (")
		p.printForTarget(s.Left)
		p.write(" in ")
		p.printExpression(s.Right, precAssignment)
		p.write(") ")
		p.printNestedStatement(s.Body)
		p.write("\n")
	case *ast.ForOfStatement:
		p.writeIndent()
		p.write("for (")
		p.printForTarget(s.Left)
		p.write(" of ")
		p.printExpression(s.Right, precAssignment)
		p.write(") ")
		p.printNestedStatement(s.Body)
		p.write("\n")
	case *ast.SwitchStatement:
		p.printSwitch(s)
	case *ast.BreakStatement:
		p.writeIndent()
		if s.Label != nil {
			p.write("break %s;\n", s.Label.Name)
		} else {
			p.write("break;\n")
		}
	case *ast.ContinueStatement:
		p.writeIndent()
		if s.Label != nil {
			p.write("continue %s;\n", s.Label.Name)
		} else {
			p.write("continue;\n")
		}
	case *ast.ReturnStatement:
		p.writeIndent()
		if s.Argument != nil {
			p.write("return ")
			p.printExpression(s.Argument, precSequence)
			p.write(";\n")
		} else {
			p.write("return;\n")
		}
	case *ast.ThrowStatement:
		p.writeIndent()
		p.write("throw ")
		p.printExpression(s.Argument, precSequence)
		p.write(";\n")
	case *ast.TryStatement:
		p.writeIndent()
		p.write("try ")
		p.printBlock(s.Block)
		if s.Handler != nil {
			if s.CatchParam != nil {
				p.write(" catch (%s) ", s.CatchParam.Name)
			} else {
				p.write(" catch ")
			}
			p.printBlock(s.Handler)
		}
		if s.Finalizer != nil {
			p.write(" finally ")
			p.printBlock(s.Finalizer)
		}
		p.write("\n")
	case *ast.LabeledStatement:
		p.writeIndent()
		p.write("%s: ", s.Label.Name)
		p.printNestedStatement(s.Body)
		p.write("\n")
	case *ast.EmptyStatement:
		p.writeIndent()
		p.write(";\n")
	default:
		p.writeIndent()
		p.write("/* unsupported statement %T */\n", s)
	}
}

// printNestedStatement prints a statement in body position without its own
// indentation or trailing newline.
func (p *Printer) printNestedStatement(stmt ast.Statement) {
	if block, ok := stmt.(*ast.BlockStatement); ok {
		p.printBlock(block)
		return
	}
	// Re-print the single statement inline.
	var inner Printer
	inner.indentLevel = p.indentLevel
	inner.printStatement(stmt)
	p.buffer.WriteString(strings.TrimLeft(strings.TrimRight(inner.buffer.String(), "\n"), " "))
}

func (p *Printer) printForTarget(left ast.Node) {
	switch l := left.(type) {
	case *ast.VariableDeclaration:
		p.printVariableDeclaration(l)
	case ast.Expression:
		p.printExpression(l, precAssignment)
	}
}

func (p *Printer) printVariableDeclaration(decl *ast.VariableDeclaration) {
	p.write("%s ", decl.DeclKind)
	for i, d := range decl.Declarators {
		if i > 0 {
			p.write(", ")
		}
		p.write("%s", d.Name.Name)
		if d.Init != nil {
			p.write(" = ")
			p.printExpression(d.Init, precAssignment)
		}
	}
}

func (p *Printer) printBlock(block *ast.BlockStatement) {
	if len(block.Statements) == 0 {
		p.write("{}")
		return
	}
	p.write("{\n")
	p.indent()
	for _, s := range block.Statements {
		p.printStatement(s)
	}
	p.dedent()
	p.writeIndent()
	p.write("}")
}

func (p *Printer) printIf(s *ast.IfStatement) {
	p.write("if (")
	p.printExpression(s.Test, precSequence)
	p.write(") ")
	p.printNestedStatement(s.Consequent)
	if s.Alternate != nil {
		p.write(" else ")
		p.printNestedStatement(s.Alternate)
	}
}

func (p *Printer) printSwitch(s *ast.SwitchStatement) {
	p.writeIndent()
	p.write("switch (")
	p.printExpression(s.Discriminant, precSequence)
	p.write(") {\n")
	p.indent()
	for _, c := range s.Cases {
		p.writeIndent()
		if c.Test != nil {
			p.write("case ")
			p.printExpression(c.Test, precSequence)
			p.write(":\n")
		} else {
			p.write("default:\n")
		}
		p.indent()
		for _, st := range c.Body {
			p.printStatement(st)
		}
		p.dedent()
	}
	p.dedent()
	p.writeIndent()
	p.write("}\n")
}

func (p *Printer) printFunction(fn *ast.FunctionLiteral) {
	p.write("function")
	if fn.Name != nil {
		p.write(" %s", fn.Name.Name)
	}
	p.write("(")
	for i, param := range fn.Params {
		if i > 0 {
			p.write(", ")
		}
		p.write("%s", param.Name)
	}
	p.write(") ")
	p.printBlock(fn.Body)
}

// --- expressions ---

// printExpression prints e, parenthesizing when its precedence is below the
// context's minimum.
func (p *Printer) printExpression(e ast.Expression, minPrec int) {
	if exprPrec(e) < minPrec {
		p.write("(")
		p.printExpressionInner(e)
		p.write(")")
		return
	}
	p.printExpressionInner(e)
}

func (p *Printer) printExpressionInner(e ast.Expression) {
	switch x := e.(type) {
	case *ast.Identifier:
		p.write("%s", x.Name)
	case *ast.NumberLiteral:
		if x.Raw != "" {
			p.write("%s", x.Raw)
		} else {
			p.write("%s", numberLiteral(x.Value))
		}
	case *ast.StringLiteral:
		p.write("%s", quoteString(x.Value))
	case *ast.BooleanLiteral:
		if x.Value {
			p.write("true")
		} else {
			p.write("false")
		}
	case *ast.NullLiteral:
		p.write("null")
	case *ast.RegExpLiteral:
		p.write("/%s/%s", x.Pattern, x.Flags)
	case *ast.ThisExpression:
		p.write("this")
	case *ast.ArrayLiteral:
		p.write("[")
		for i, el := range x.Elements {
			if i > 0 {
				p.write(", ")
			}
			if el != nil {
				p.printExpression(el, precAssignment)
			}
		}
		p.write("]")
	case *ast.ObjectLiteral:
		p.printObjectLiteral(x)
	case *ast.FunctionLiteral:
		p.printFunction(x)
	case *ast.AssignmentExpression:
		p.printExpression(x.Target, precCall)
		p.write(" %s ", x.Operator)
		p.printExpression(x.Value, precAssignment)
	case *ast.UpdateExpression:
		if x.Prefix {
			p.write("%s", x.Operator)
			p.printExpression(x.Argument, precUnary)
		} else {
			p.printExpression(x.Argument, precPostfix)
			p.write("%s", x.Operator)
		}
	case *ast.UnaryExpression:
		if len(x.Operator) > 1 {
			p.write("%s ", x.Operator)
		} else {
			p.write("%s", x.Operator)
		}
		p.printExpression(x.Argument, precUnary)
	case *ast.BinaryExpression:
		prec := binaryPrec(x.Operator)
		p.printExpression(x.Left, prec)
		p.write(" %s ", x.Operator)
		p.printExpression(x.Right, prec+1)
	case *ast.LogicalExpression:
		prec := exprPrec(x)
		p.printExpression(x.Left, prec)
		p.write(" %s ", x.Operator)
		p.printExpression(x.Right, prec+1)
	case *ast.ConditionalExpression:
		p.printExpression(x.Test, precCoalesce)
		p.write(" ? ")
		p.printExpression(x.Consequent, precAssignment)
		p.write(" : ")
		p.printExpression(x.Alternate, precAssignment)
	case *ast.CallExpression:
		p.printExpression(x.Callee, precCall)
		p.write("(")
		for i, a := range x.Arguments {
			if i > 0 {
				p.write(", ")
			}
			p.printExpression(a, precAssignment)
		}
		p.write(")")
	case *ast.NewExpression:
		p.write("new ")
		p.printExpression(x.Callee, precCall)
		p.write("(")
		for i, a := range x.Arguments {
			if i > 0 {
				p.write(", ")
			}
			p.printExpression(a, precAssignment)
		}
		p.write(")")
	case *ast.MemberExpression:
		p.printExpression(x.Object, precCall)
		if x.Computed {
			p.write("[")
			p.printExpression(x.Property, precSequence)
			p.write("]")
		} else {
			p.write(".%s", x.Property.(*ast.Identifier).Name)
		}
	case *ast.SequenceExpression:
		for i, sub := range x.Expressions {
			if i > 0 {
				p.write(", ")
			}
			p.printExpression(sub, precAssignment)
		}
	default:
		p.write("/* unsupported expression %T */", x)
	}
}

func (p *Printer) printObjectLiteral(o *ast.ObjectLiteral) {
	if len(o.Properties) == 0 {
		p.write("{}")
		return
	}
	p.write("{ ")
	for i, prop := range o.Properties {
		if i > 0 {
			p.write(", ")
		}
		switch prop.Kind {
		case ast.PropertyGet:
			p.write("get ")
		case ast.PropertySet:
			p.write("set ")
		}
		if prop.Computed {
			p.write("[")
			p.printExpression(prop.Key, precAssignment)
			p.write("]")
		} else {
			p.printPropertyKey(prop.Key)
		}
		if prop.Kind == ast.PropertyInit {
			p.write(": ")
			p.printExpression(prop.Value, precAssignment)
		} else {
			// Accessor: print the function's parameter list and body.
			fn := prop.Value.(*ast.FunctionLiteral)
			p.write("(")
			for j, param := range fn.Params {
				if j > 0 {
					p.write(", ")
				}
				p.write("%s", param.Name)
			}
			p.write(") ")
			p.printBlock(fn.Body)
		}
	}
	p.write(" }")
}

func (p *Printer) printPropertyKey(key ast.Expression) {
	switch k := key.(type) {
	case *ast.Identifier:
		p.write("%s", k.Name)
	case *ast.StringLiteral:
		if isIdentifierName(k.Value) {
			p.write("%s", k.Value)
		} else {
			p.write("%s", quoteString(k.Value))
		}
	case *ast.NumberLiteral:
		p.write("%s", numberLiteral(k.Value))
	default:
		p.printExpression(key, precAssignment)
	}
}

// --- literal formatting ---

// quoteString renders a string literal with double quotes and the escapes
// JavaScript requires. Output stays in the conservative ASCII set.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\r")
		case '\t':
			sb.WriteString("\\t")
		case '\b':
			sb.WriteString("\\b")
		case '\f':
			sb.WriteString("\\f")
		case 0:
			sb.WriteString("\\0")
		default:
			if r < 0x20 || r > 0x7e {
				if r > 0xffff {
					// Surrogate pair.
					r -= 0x10000
					hi := 0xd800 + (r >> 10)
					lo := 0xdc00 + (r & 0x3ff)
					fmt.Fprintf(&sb, "\\u%04x\\u%04x", hi, lo)
				} else {
					fmt.Fprintf(&sb, "\\u%04x", r)
				}
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func numberLiteral(f float64) string {
	s := fmt.Sprintf("%v", f)
	if s == "+Inf" {
		return "Infinity"
	}
	if s == "-Inf" {
		return "-Infinity"
	}
	if s == "NaN" {
		return "NaN"
	}
	return s
}

func isIdentifierName(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		letter := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
		if i == 0 && !letter {
			return false
		}
		if !letter && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
