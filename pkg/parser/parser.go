package parser

import (
	"fmt"
	"strconv"
	"strings"

	"prebake/pkg/ast"
	"prebake/pkg/errors"
	"prebake/pkg/lexer"
	"prebake/pkg/source"
)

// Operator precedence levels, lowest to highest.
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // = += -= ...
	CONDITIONAL // ?:
	COALESCE    // ??
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	BITWISE_OR  // |
	BITWISE_XOR // ^
	BITWISE_AND // &
	EQUALITY    // == != === !==
	RELATIONAL  // < > <= >= in instanceof
	SHIFT       // << >> >>>
	ADDITIVE    // + -
	MULTIPLICATIVE
	PREFIX  // -x !x typeof x
	POSTFIX // x++ x--
	CALL    // foo(...) obj.prop obj[k] new
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:          ASSIGNMENT,
	lexer.PLUS_ASSIGN:     ASSIGNMENT,
	lexer.MINUS_ASSIGN:    ASSIGNMENT,
	lexer.ASTERISK_ASSIGN: ASSIGNMENT,
	lexer.SLASH_ASSIGN:    ASSIGNMENT,
	lexer.PERCENT_ASSIGN:  ASSIGNMENT,
	lexer.AND_ASSIGN:      ASSIGNMENT,
	lexer.OR_ASSIGN:       ASSIGNMENT,
	lexer.XOR_ASSIGN:      ASSIGNMENT,
	lexer.SHL_ASSIGN:      ASSIGNMENT,
	lexer.SHR_ASSIGN:      ASSIGNMENT,
	lexer.USHR_ASSIGN:     ASSIGNMENT,
	lexer.QUESTION:        CONDITIONAL,
	lexer.COALESCE:        COALESCE,
	lexer.LOGICAL_OR:      LOGICAL_OR,
	lexer.LOGICAL_AND:     LOGICAL_AND,
	lexer.PIPE:            BITWISE_OR,
	lexer.CARET:           BITWISE_XOR,
	lexer.AMPERSAND:       BITWISE_AND,
	lexer.EQ:              EQUALITY,
	lexer.NOT_EQ:          EQUALITY,
	lexer.STRICT_EQ:       EQUALITY,
	lexer.STRICT_NOT_EQ:   EQUALITY,
	lexer.LT:              RELATIONAL,
	lexer.GT:              RELATIONAL,
	lexer.LE:              RELATIONAL,
	lexer.GE:              RELATIONAL,
	lexer.IN:              RELATIONAL,
	lexer.INSTANCEOF:      RELATIONAL,
	lexer.SHL:             SHIFT,
	lexer.SHR:             SHIFT,
	lexer.USHR:            SHIFT,
	lexer.PLUS:            ADDITIVE,
	lexer.MINUS:           ADDITIVE,
	lexer.ASTERISK:        MULTIPLICATIVE,
	lexer.SLASH:           MULTIPLICATIVE,
	lexer.PERCENT:         MULTIPLICATIVE,
	lexer.INC:             POSTFIX,
	lexer.DEC:             POSTFIX,
	lexer.LPAREN:          CALL,
	lexer.DOT:             CALL,
	lexer.LBRACKET:        CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser consumes tokens and produces an AST per the front-end contract:
// input is (source, sourceType, startLine), output carries positions, and
// failures are classified as syntax or reference errors.
type Parser struct {
	l   *lexer.Lexer
	src *source.SourceFile

	curToken  lexer.Token
	peekToken lexer.Token

	errors []errors.PrebakeError

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn

	// noIn suppresses the `in` operator while parsing a for-statement
	// init clause.
	noIn bool
}

// NewParser creates a parser over the given source file.
func NewParser(src *source.SourceFile) *Parser {
	p := &Parser{
		l:   lexer.NewLexer(src.Content, src.StartLine),
		src: src,
	}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.IDENT:    p.parseIdentifier,
		lexer.NUMBER:   p.parseNumberLiteral,
		lexer.STRING:   p.parseStringLiteral,
		lexer.TRUE:     p.parseBooleanLiteral,
		lexer.FALSE:    p.parseBooleanLiteral,
		lexer.NULL:     p.parseNullLiteral,
		lexer.THIS:     p.parseThisExpression,
		lexer.SLASH:    p.parseRegexLiteral,
		lexer.BANG:     p.parsePrefixExpression,
		lexer.MINUS:    p.parsePrefixExpression,
		lexer.PLUS:     p.parsePrefixExpression,
		lexer.TILDE:    p.parsePrefixExpression,
		lexer.TYPEOF:   p.parsePrefixExpression,
		lexer.VOID:     p.parsePrefixExpression,
		lexer.DELETE:   p.parsePrefixExpression,
		lexer.INC:      p.parsePrefixUpdate,
		lexer.DEC:      p.parsePrefixUpdate,
		lexer.LPAREN:   p.parseGroupedExpression,
		lexer.LBRACKET: p.parseArrayLiteral,
		lexer.LBRACE:   p.parseObjectLiteral,
		lexer.FUNCTION: p.parseFunctionLiteral,
		lexer.NEW:      p.parseNewExpression,
	}

	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.PLUS:            p.parseInfixExpression,
		lexer.MINUS:           p.parseInfixExpression,
		lexer.ASTERISK:        p.parseInfixExpression,
		lexer.SLASH:           p.parseInfixExpression,
		lexer.PERCENT:         p.parseInfixExpression,
		lexer.EQ:              p.parseInfixExpression,
		lexer.NOT_EQ:          p.parseInfixExpression,
		lexer.STRICT_EQ:       p.parseInfixExpression,
		lexer.STRICT_NOT_EQ:   p.parseInfixExpression,
		lexer.LT:              p.parseInfixExpression,
		lexer.GT:              p.parseInfixExpression,
		lexer.LE:              p.parseInfixExpression,
		lexer.GE:              p.parseInfixExpression,
		lexer.IN:              p.parseInfixExpression,
		lexer.INSTANCEOF:      p.parseInfixExpression,
		lexer.SHL:             p.parseInfixExpression,
		lexer.SHR:             p.parseInfixExpression,
		lexer.USHR:            p.parseInfixExpression,
		lexer.AMPERSAND:       p.parseInfixExpression,
		lexer.PIPE:            p.parseInfixExpression,
		lexer.CARET:           p.parseInfixExpression,
		lexer.LOGICAL_AND:     p.parseLogicalExpression,
		lexer.LOGICAL_OR:      p.parseLogicalExpression,
		lexer.COALESCE:        p.parseLogicalExpression,
		lexer.QUESTION:        p.parseConditionalExpression,
		lexer.ASSIGN:          p.parseAssignmentExpression,
		lexer.PLUS_ASSIGN:     p.parseAssignmentExpression,
		lexer.MINUS_ASSIGN:    p.parseAssignmentExpression,
		lexer.ASTERISK_ASSIGN: p.parseAssignmentExpression,
		lexer.SLASH_ASSIGN:    p.parseAssignmentExpression,
		lexer.PERCENT_ASSIGN:  p.parseAssignmentExpression,
		lexer.AND_ASSIGN:      p.parseAssignmentExpression,
		lexer.OR_ASSIGN:       p.parseAssignmentExpression,
		lexer.XOR_ASSIGN:      p.parseAssignmentExpression,
		lexer.SHL_ASSIGN:      p.parseAssignmentExpression,
		lexer.SHR_ASSIGN:      p.parseAssignmentExpression,
		lexer.USHR_ASSIGN:     p.parseAssignmentExpression,
		lexer.INC:             p.parsePostfixUpdate,
		lexer.DEC:             p.parsePostfixUpdate,
		lexer.LPAREN:          p.parseCallExpression,
		lexer.DOT:             p.parseMemberExpression,
		lexer.LBRACKET:        p.parseMemberExpression,
	}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the whole source file into a Program.
func Parse(src *source.SourceFile) (*ast.Program, []errors.PrebakeError) {
	p := NewParser(src)
	program := p.parseProgram()
	return program, p.errors
}

// Errors returns the errors collected so far.
func (p *Parser) Errors() []errors.PrebakeError { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) loc(tok lexer.Token) errors.Position {
	return errors.Position{
		Line:     tok.Line,
		Column:   tok.Column,
		StartPos: tok.StartPos,
		EndPos:   tok.EndPos,
		Source:   p.src,
	}
}

func (p *Parser) addError(tok lexer.Token, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if errors.IsReferenceErrorMessage(msg) {
		p.errors = append(p.errors, &errors.ReferenceError{Position: p.loc(tok), Msg: msg})
	} else {
		p.errors = append(p.errors, &errors.SyntaxError{Position: p.loc(tok), Msg: msg})
	}
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekToken.Type == t {
		p.nextToken()
		return true
	}
	p.addError(p.peekToken, "expected %s, got %s", t, p.peekToken.Type)
	return false
}

// expectSemicolon consumes a statement terminator, applying automatic
// semicolon insertion at newlines, closing braces and end of input.
func (p *Parser) expectSemicolon() {
	switch {
	case p.peekToken.Type == lexer.SEMICOLON:
		p.nextToken()
	case p.peekToken.Type == lexer.RBRACE || p.peekToken.Type == lexer.EOF:
		// inserted
	case p.peekToken.NewlineBefore:
		// inserted
	default:
		p.addError(p.peekToken, "expected ; got %s", p.peekToken.Type)
	}
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		if p.noIn && p.peekToken.Type == lexer.IN {
			return LOWEST
		}
		return prec
	}
	return LOWEST
}

// --- Program and statements ---

func (p *Parser) parseProgram() *ast.Program {
	program := &ast.Program{}
	program.SetLoc(p.loc(p.curToken))
	program.Strict = p.src.Type == source.TypeModule

	inPrologue := true
	for p.curToken.Type != lexer.EOF {
		stmt := p.parseStatement()
		if stmt != nil {
			if inPrologue {
				if es, ok := stmt.(*ast.ExpressionStatement); ok {
					if lit, ok := es.Expression.(*ast.StringLiteral); ok {
						es.Directive = lit.Value
						if lit.Value == "use strict" {
							program.Strict = true
						}
					} else {
						inPrologue = false
					}
				} else {
					inPrologue = false
				}
			}
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.VAR, lexer.LET, lexer.CONST:
		return p.parseVariableDeclaration()
	case lexer.FUNCTION:
		return p.parseFunctionDeclaration()
	case lexer.LBRACE:
		return p.parseBlockStatement()
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.DO:
		return p.parseDoWhileStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.SWITCH:
		return p.parseSwitchStatement()
	case lexer.BREAK:
		return p.parseBreakStatement()
	case lexer.CONTINUE:
		return p.parseContinueStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.THROW:
		return p.parseThrowStatement()
	case lexer.TRY:
		return p.parseTryStatement()
	case lexer.SEMICOLON:
		stmt := &ast.EmptyStatement{}
		stmt.SetLoc(p.loc(p.curToken))
		return stmt
	case lexer.IDENT:
		if p.peekToken.Type == lexer.COLON {
			return p.parseLabeledStatement()
		}
		return p.parseExpressionStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseVariableDeclaration() ast.Statement {
	decl := &ast.VariableDeclaration{DeclKind: p.curToken.Literal}
	decl.SetLoc(p.loc(p.curToken))

	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		name := &ast.Identifier{Name: p.curToken.Literal}
		name.SetLoc(p.loc(p.curToken))

		d := &ast.VariableDeclarator{Name: name}
		if p.peekToken.Type == lexer.ASSIGN {
			p.nextToken() // consume '='
			p.nextToken() // move to initializer
			d.Init = p.parseExpression(ASSIGNMENT)
		}
		decl.Declarators = append(decl.Declarators, d)

		if p.peekToken.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	p.expectSemicolon()
	return decl
}

func (p *Parser) parseFunctionDeclaration() ast.Statement {
	fn, ok := p.parseFunctionCommon(true)
	if !ok {
		return nil
	}
	decl := &ast.FunctionDeclaration{Function: fn}
	decl.SetLoc(fn.Pos())
	return decl
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	fn, ok := p.parseFunctionCommon(false)
	if !ok {
		return nil
	}
	return fn
}

// parseFunctionCommon parses `function [name](params) { body }` starting at
// the FUNCTION token. Declarations require a name.
func (p *Parser) parseFunctionCommon(isDeclaration bool) (*ast.FunctionLiteral, bool) {
	fn := &ast.FunctionLiteral{}
	fn.SetLoc(p.loc(p.curToken))

	if p.peekToken.Type == lexer.IDENT {
		p.nextToken()
		name := &ast.Identifier{Name: p.curToken.Literal}
		name.SetLoc(p.loc(p.curToken))
		fn.Name = name
	} else if isDeclaration {
		p.addError(p.peekToken, "function declaration requires a name")
		return nil, false
	}

	if !p.expectPeek(lexer.LPAREN) {
		return nil, false
	}
	for p.peekToken.Type != lexer.RPAREN {
		if !p.expectPeek(lexer.IDENT) {
			return nil, false
		}
		param := &ast.Identifier{Name: p.curToken.Literal}
		param.SetLoc(p.loc(p.curToken))
		fn.Params = append(fn.Params, param)
		if p.peekToken.Type == lexer.COMMA {
			p.nextToken()
		} else {
			break
		}
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil, false
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil, false
	}
	body := p.parseBlockStatement().(*ast.BlockStatement)
	fn.Body = body

	// Directive prologue of the body.
	for _, s := range body.Statements {
		es, ok := s.(*ast.ExpressionStatement)
		if !ok {
			break
		}
		lit, ok := es.Expression.(*ast.StringLiteral)
		if !ok {
			break
		}
		es.Directive = lit.Value
		if lit.Value == "use strict" {
			fn.Strict = true
		}
	}
	return fn, true
}

func (p *Parser) parseBlockStatement() ast.Statement {
	block := &ast.BlockStatement{}
	block.SetLoc(p.loc(p.curToken))
	p.nextToken()
	for p.curToken.Type != lexer.RBRACE && p.curToken.Type != lexer.EOF {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	if p.curToken.Type != lexer.RBRACE {
		p.addError(p.curToken, "expected } got %s", p.curToken.Type)
	}
	return block
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Test = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Consequent = p.parseStatement()
	if p.peekToken.Type == lexer.ELSE {
		p.nextToken()
		p.nextToken()
		stmt.Alternate = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Test = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	return stmt
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	stmt := &ast.DoWhileStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	p.nextToken()
	stmt.Body = p.parseStatement()
	if !p.expectPeek(lexer.WHILE) {
		return nil
	}
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Test = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.expectSemicolon()
	return stmt
}

// parseForStatement parses classic, for-in and for-of loops. The three
// shapes are disambiguated after the init clause.
func (p *Parser) parseForStatement() ast.Statement {
	forTok := p.curToken
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()

	var init ast.Statement
	var initExpr ast.Expression

	switch p.curToken.Type {
	case lexer.SEMICOLON:
		// no init
	case lexer.VAR, lexer.LET, lexer.CONST:
		declTok := p.curToken
		declKind := p.curToken.Literal
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		name := &ast.Identifier{Name: p.curToken.Literal}
		name.SetLoc(p.loc(p.curToken))

		if p.peekToken.Type == lexer.IN || p.peekToken.Type == lexer.OF {
			decl := &ast.VariableDeclaration{
				DeclKind:    declKind,
				Declarators: []*ast.VariableDeclarator{{Name: name}},
			}
			decl.SetLoc(p.loc(declTok))
			return p.parseForInOf(forTok, decl)
		}

		decl := &ast.VariableDeclaration{DeclKind: declKind}
		decl.SetLoc(p.loc(declTok))
		d := &ast.VariableDeclarator{Name: name}
		if p.peekToken.Type == lexer.ASSIGN {
			p.nextToken()
			p.nextToken()
			p.noIn = true
			d.Init = p.parseExpression(ASSIGNMENT)
			p.noIn = false
		}
		decl.Declarators = append(decl.Declarators, d)
		for p.peekToken.Type == lexer.COMMA {
			p.nextToken()
			if !p.expectPeek(lexer.IDENT) {
				return nil
			}
			n := &ast.Identifier{Name: p.curToken.Literal}
			n.SetLoc(p.loc(p.curToken))
			d := &ast.VariableDeclarator{Name: n}
			if p.peekToken.Type == lexer.ASSIGN {
				p.nextToken()
				p.nextToken()
				p.noIn = true
				d.Init = p.parseExpression(ASSIGNMENT)
				p.noIn = false
			}
			decl.Declarators = append(decl.Declarators, d)
		}
		init = decl
	default:
		p.noIn = true
		initExpr = p.parseExpression(LOWEST)
		p.noIn = false
		if p.peekToken.Type == lexer.IN || p.peekToken.Type == lexer.OF {
			if !isAssignable(initExpr) {
				p.addError(p.curToken, "Invalid left-hand side in for-in loop")
				return nil
			}
			return p.parseForInOf(forTok, initExpr)
		}
		es := &ast.ExpressionStatement{Expression: initExpr}
		es.SetLoc(initExpr.Pos())
		init = es
	}

	stmt := &ast.ForStatement{Init: init}
	stmt.SetLoc(p.loc(forTok))

	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	if p.peekToken.Type != lexer.SEMICOLON {
		p.nextToken()
		stmt.Test = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	if p.peekToken.Type != lexer.RPAREN {
		p.nextToken()
		stmt.Update = p.parseExpression(LOWEST)
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	return stmt
}

// parseForInOf finishes a for-in or for-of once the left side is known.
// The current token is the last token of the left side; peek is IN or OF.
func (p *Parser) parseForInOf(forTok lexer.Token, left ast.Node) ast.Statement {
	isOf := p.peekToken.Type == lexer.OF
	p.nextToken() // consume in/of
	p.nextToken() // move to iterated expression
	right := p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	p.nextToken()
	body := p.parseStatement()

	if isOf {
		stmt := &ast.ForOfStatement{Left: left, Right: right, Body: body}
		stmt.SetLoc(p.loc(forTok))
		return stmt
	}
	stmt := &ast.ForInStatement{Left: left, Right: right, Body: body}
	stmt.SetLoc(p.loc(forTok))
	return stmt
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	stmt := &ast.SwitchStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Discriminant = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}

	sawDefault := false
	for p.peekToken.Type == lexer.CASE || p.peekToken.Type == lexer.DEFAULT {
		p.nextToken()
		c := &ast.SwitchCase{}
		if p.curToken.Type == lexer.CASE {
			p.nextToken()
			c.Test = p.parseExpression(LOWEST)
		} else {
			if sawDefault {
				p.addError(p.curToken, "multiple default clauses in switch")
			}
			sawDefault = true
		}
		if !p.expectPeek(lexer.COLON) {
			return nil
		}
		for p.peekToken.Type != lexer.CASE && p.peekToken.Type != lexer.DEFAULT &&
			p.peekToken.Type != lexer.RBRACE && p.peekToken.Type != lexer.EOF {
			p.nextToken()
			s := p.parseStatement()
			if s != nil {
				c.Body = append(c.Body, s)
			}
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return stmt
}

func (p *Parser) parseBreakStatement() ast.Statement {
	stmt := &ast.BreakStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	if p.peekToken.Type == lexer.IDENT && !p.peekToken.NewlineBefore {
		p.nextToken()
		label := &ast.Identifier{Name: p.curToken.Literal}
		label.SetLoc(p.loc(p.curToken))
		stmt.Label = label
	}
	p.expectSemicolon()
	return stmt
}

func (p *Parser) parseContinueStatement() ast.Statement {
	stmt := &ast.ContinueStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	if p.peekToken.Type == lexer.IDENT && !p.peekToken.NewlineBefore {
		p.nextToken()
		label := &ast.Identifier{Name: p.curToken.Literal}
		label.SetLoc(p.loc(p.curToken))
		stmt.Label = label
	}
	p.expectSemicolon()
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	if p.peekToken.Type != lexer.SEMICOLON && p.peekToken.Type != lexer.RBRACE &&
		p.peekToken.Type != lexer.EOF && !p.peekToken.NewlineBefore {
		p.nextToken()
		stmt.Argument = p.parseExpression(LOWEST)
	}
	p.expectSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	if p.peekToken.NewlineBefore {
		p.addError(p.peekToken, "newline not allowed after throw")
		return nil
	}
	p.nextToken()
	stmt.Argument = p.parseExpression(LOWEST)
	p.expectSemicolon()
	return stmt
}

func (p *Parser) parseTryStatement() ast.Statement {
	stmt := &ast.TryStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Block = p.parseBlockStatement().(*ast.BlockStatement)

	if p.peekToken.Type == lexer.CATCH {
		p.nextToken()
		if p.peekToken.Type == lexer.LPAREN {
			p.nextToken()
			if !p.expectPeek(lexer.IDENT) {
				return nil
			}
			param := &ast.Identifier{Name: p.curToken.Literal}
			param.SetLoc(p.loc(p.curToken))
			stmt.CatchParam = param
			if !p.expectPeek(lexer.RPAREN) {
				return nil
			}
		}
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		stmt.Handler = p.parseBlockStatement().(*ast.BlockStatement)
	}
	if p.peekToken.Type == lexer.FINALLY {
		p.nextToken()
		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		stmt.Finalizer = p.parseBlockStatement().(*ast.BlockStatement)
	}
	if stmt.Handler == nil && stmt.Finalizer == nil {
		p.addError(p.curToken, "missing catch or finally after try")
		return nil
	}
	return stmt
}

func (p *Parser) parseLabeledStatement() ast.Statement {
	label := &ast.Identifier{Name: p.curToken.Literal}
	label.SetLoc(p.loc(p.curToken))
	stmt := &ast.LabeledStatement{Label: label}
	stmt.SetLoc(p.loc(p.curToken))
	p.nextToken() // colon
	p.nextToken()
	stmt.Body = p.parseStatement()
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{}
	stmt.SetLoc(p.loc(p.curToken))
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	// Comma operator at statement level.
	if p.peekToken.Type == lexer.COMMA {
		seq := &ast.SequenceExpression{Expressions: []ast.Expression{expr}}
		seq.SetLoc(expr.Pos())
		for p.peekToken.Type == lexer.COMMA {
			p.nextToken()
			p.nextToken()
			next := p.parseExpression(ASSIGNMENT)
			if next == nil {
				return nil
			}
			seq.Expressions = append(seq.Expressions, next)
		}
		expr = seq
	}
	stmt.Expression = expr
	p.expectSemicolon()
	return stmt
}

// --- Expressions ---

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.addError(p.curToken, "unexpected token %s", p.curToken.Type)
		return nil
	}
	left := prefix()

	for left != nil && p.peekToken.Type != lexer.SEMICOLON && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		// Postfix ++/-- is not applied across a newline (ASI).
		if (p.peekToken.Type == lexer.INC || p.peekToken.Type == lexer.DEC) && p.peekToken.NewlineBefore {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Name: p.curToken.Literal}
	ident.SetLoc(p.loc(p.curToken))
	return ident
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Raw: p.curToken.Literal}
	lit.SetLoc(p.loc(p.curToken))

	raw := strings.ReplaceAll(p.curToken.Literal, "_", "")
	var value float64
	var err error
	switch {
	case strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X"):
		var n uint64
		n, err = strconv.ParseUint(raw[2:], 16, 64)
		value = float64(n)
	case strings.HasPrefix(raw, "0o") || strings.HasPrefix(raw, "0O"):
		var n uint64
		n, err = strconv.ParseUint(raw[2:], 8, 64)
		value = float64(n)
	case strings.HasPrefix(raw, "0b") || strings.HasPrefix(raw, "0B"):
		var n uint64
		n, err = strconv.ParseUint(raw[2:], 2, 64)
		value = float64(n)
	default:
		value, err = strconv.ParseFloat(strings.TrimSuffix(raw, "."), 64)
	}
	if err != nil {
		p.addError(p.curToken, "invalid number literal %q", p.curToken.Literal)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	lit := &ast.StringLiteral{Value: p.curToken.Literal}
	lit.SetLoc(p.loc(p.curToken))
	return lit
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	lit := &ast.BooleanLiteral{Value: p.curToken.Type == lexer.TRUE}
	lit.SetLoc(p.loc(p.curToken))
	return lit
}

func (p *Parser) parseNullLiteral() ast.Expression {
	lit := &ast.NullLiteral{}
	lit.SetLoc(p.loc(p.curToken))
	return lit
}

func (p *Parser) parseThisExpression() ast.Expression {
	expr := &ast.ThisExpression{}
	expr.SetLoc(p.loc(p.curToken))
	return expr
}

// parseRegexLiteral re-scans a slash in expression position as a regex.
func (p *Parser) parseRegexLiteral() ast.Expression {
	tok, ok := p.l.ScanRegexBody(p.curToken)
	if !ok {
		p.addError(p.curToken, "unterminated regular expression literal")
		return nil
	}
	p.curToken = tok
	p.peekToken = p.l.NextToken()

	body := tok.Literal
	lastSlash := strings.LastIndexByte(body, '/')
	lit := &ast.RegExpLiteral{
		Pattern: body[1:lastSlash],
		Flags:   body[lastSlash+1:],
	}
	lit.SetLoc(p.loc(tok))
	return lit
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.UnaryExpression{Operator: operatorText(p.curToken)}
	expr.SetLoc(p.loc(p.curToken))
	p.nextToken()
	expr.Argument = p.parseExpression(PREFIX)
	if expr.Argument == nil {
		return nil
	}
	return expr
}

func (p *Parser) parsePrefixUpdate() ast.Expression {
	expr := &ast.UpdateExpression{Operator: p.curToken.Literal, Prefix: true}
	expr.SetLoc(p.loc(p.curToken))
	p.nextToken()
	expr.Argument = p.parseExpression(PREFIX)
	if expr.Argument == nil {
		return nil
	}
	if !isAssignable(expr.Argument) {
		p.addError(p.curToken, "Invalid left-hand side expression in prefix operation")
		return nil
	}
	return expr
}

func (p *Parser) parsePostfixUpdate(left ast.Expression) ast.Expression {
	if !isAssignable(left) {
		p.addError(p.curToken, "Invalid left-hand side expression in postfix operation")
		return nil
	}
	expr := &ast.UpdateExpression{Operator: p.curToken.Literal, Prefix: false, Argument: left}
	expr.SetLoc(left.Pos())
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.BinaryExpression{Operator: operatorText(p.curToken), Left: left}
	expr.SetLoc(left.Pos())
	precedence := precedences[p.curToken.Type]
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseLogicalExpression(left ast.Expression) ast.Expression {
	expr := &ast.LogicalExpression{Operator: p.curToken.Literal, Left: left}
	expr.SetLoc(left.Pos())
	precedence := precedences[p.curToken.Type]
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseConditionalExpression(test ast.Expression) ast.Expression {
	expr := &ast.ConditionalExpression{Test: test}
	expr.SetLoc(test.Pos())
	p.nextToken()
	expr.Consequent = p.parseExpression(ASSIGNMENT)
	if !p.expectPeek(lexer.COLON) {
		return nil
	}
	p.nextToken()
	expr.Alternate = p.parseExpression(ASSIGNMENT)
	if expr.Consequent == nil || expr.Alternate == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseAssignmentExpression(left ast.Expression) ast.Expression {
	if !isAssignable(left) {
		p.addError(p.curToken, "Invalid left-hand side in assignment")
		return nil
	}
	expr := &ast.AssignmentExpression{Operator: p.curToken.Literal, Target: left}
	expr.SetLoc(left.Pos())
	p.nextToken()
	// Right-associative.
	expr.Value = p.parseExpression(ASSIGNMENT - 1)
	if expr.Value == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if p.peekToken.Type == lexer.COMMA {
		seq := &ast.SequenceExpression{Expressions: []ast.Expression{expr}}
		seq.SetLoc(expr.Pos())
		for p.peekToken.Type == lexer.COMMA {
			p.nextToken()
			p.nextToken()
			next := p.parseExpression(ASSIGNMENT)
			if next == nil {
				return nil
			}
			seq.Expressions = append(seq.Expressions, next)
		}
		expr = seq
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{}
	arr.SetLoc(p.loc(p.curToken))
	for p.peekToken.Type != lexer.RBRACKET && p.peekToken.Type != lexer.EOF {
		if p.peekToken.Type == lexer.COMMA {
			// elision
			arr.Elements = append(arr.Elements, nil)
			p.nextToken()
			continue
		}
		p.nextToken()
		el := p.parseExpression(ASSIGNMENT)
		if el == nil {
			return nil
		}
		arr.Elements = append(arr.Elements, el)
		if p.peekToken.Type == lexer.COMMA {
			p.nextToken()
			if p.peekToken.Type == lexer.RBRACKET {
				break
			}
		} else {
			break
		}
	}
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return arr
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	obj := &ast.ObjectLiteral{}
	obj.SetLoc(p.loc(p.curToken))

	for p.peekToken.Type != lexer.RBRACE && p.peekToken.Type != lexer.EOF {
		p.nextToken()

		// Accessor: `get name() {...}` / `set name(v) {...}`.
		if p.curToken.Type == lexer.IDENT &&
			(p.curToken.Literal == "get" || p.curToken.Literal == "set") &&
			p.peekToken.Type != lexer.COLON && p.peekToken.Type != lexer.COMMA &&
			p.peekToken.Type != lexer.RBRACE && p.peekToken.Type != lexer.LPAREN {
			kind := ast.PropertyGet
			if p.curToken.Literal == "set" {
				kind = ast.PropertySet
			}
			p.nextToken()
			key := p.parsePropertyKey()
			if key == nil {
				return nil
			}
			fn := &ast.FunctionLiteral{}
			fn.SetLoc(p.loc(p.curToken))
			if !p.expectPeek(lexer.LPAREN) {
				return nil
			}
			for p.peekToken.Type == lexer.IDENT {
				p.nextToken()
				param := &ast.Identifier{Name: p.curToken.Literal}
				param.SetLoc(p.loc(p.curToken))
				fn.Params = append(fn.Params, param)
				if p.peekToken.Type == lexer.COMMA {
					p.nextToken()
				}
			}
			if !p.expectPeek(lexer.RPAREN) {
				return nil
			}
			if !p.expectPeek(lexer.LBRACE) {
				return nil
			}
			fn.Body = p.parseBlockStatement().(*ast.BlockStatement)
			obj.Properties = append(obj.Properties, &ast.ObjectProperty{Key: key, Value: fn, Kind: kind})
		} else {
			prop := &ast.ObjectProperty{Kind: ast.PropertyInit}
			if p.curToken.Type == lexer.LBRACKET {
				prop.Computed = true
				p.nextToken()
				prop.Key = p.parseExpression(ASSIGNMENT)
				if !p.expectPeek(lexer.RBRACKET) {
					return nil
				}
			} else {
				prop.Key = p.parsePropertyKey()
			}
			if prop.Key == nil {
				return nil
			}
			if p.peekToken.Type == lexer.COLON {
				p.nextToken()
				p.nextToken()
				prop.Value = p.parseExpression(ASSIGNMENT)
			} else if id, ok := prop.Key.(*ast.Identifier); ok {
				// shorthand {x}
				ref := &ast.Identifier{Name: id.Name}
				ref.SetLoc(id.Pos())
				prop.Value = ref
			} else {
				p.addError(p.peekToken, "expected : in object literal")
				return nil
			}
			if prop.Value == nil {
				return nil
			}
			obj.Properties = append(obj.Properties, prop)
		}

		if p.peekToken.Type == lexer.COMMA {
			p.nextToken()
		} else {
			break
		}
	}
	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return obj
}

// parsePropertyKey parses an identifier, string or number property key at
// the current token. Keywords are allowed as literal keys.
func (p *Parser) parsePropertyKey() ast.Expression {
	switch p.curToken.Type {
	case lexer.STRING:
		return p.parseStringLiteral()
	case lexer.NUMBER:
		return p.parseNumberLiteral()
	default:
		if isIdentLike(p.curToken) {
			ident := &ast.Identifier{Name: p.curToken.Literal}
			ident.SetLoc(p.loc(p.curToken))
			return ident
		}
	}
	p.addError(p.curToken, "invalid property key %s", p.curToken.Type)
	return nil
}

func (p *Parser) parseNewExpression() ast.Expression {
	expr := &ast.NewExpression{}
	expr.SetLoc(p.loc(p.curToken))
	p.nextToken()
	// Parse callee at CALL precedence minus calls, so `new a.b.C(x)` binds
	// the argument list to `new` rather than producing a call.
	callee := p.parseMemberOnly()
	if callee == nil {
		return nil
	}
	expr.Callee = callee
	if p.peekToken.Type == lexer.LPAREN {
		p.nextToken()
		args, ok := p.parseArguments()
		if !ok {
			return nil
		}
		expr.Arguments = args
	}
	return expr
}

// parseMemberOnly parses a primary expression followed by member accesses
// but no call expressions, for the callee of `new`.
func (p *Parser) parseMemberOnly() ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.addError(p.curToken, "unexpected token %s", p.curToken.Type)
		return nil
	}
	left := prefix()
	for left != nil && (p.peekToken.Type == lexer.DOT || p.peekToken.Type == lexer.LBRACKET) {
		p.nextToken()
		left = p.parseMemberExpression(left)
	}
	return left
}

func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	expr := &ast.CallExpression{Callee: callee}
	expr.SetLoc(callee.Pos())
	args, ok := p.parseArguments()
	if !ok {
		return nil
	}
	expr.Arguments = args
	return expr
}

// parseArguments parses a parenthesized argument list; the current token is
// the opening paren.
func (p *Parser) parseArguments() ([]ast.Expression, bool) {
	var args []ast.Expression
	for p.peekToken.Type != lexer.RPAREN && p.peekToken.Type != lexer.EOF {
		p.nextToken()
		arg := p.parseExpression(ASSIGNMENT)
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if p.peekToken.Type == lexer.COMMA {
			p.nextToken()
		} else {
			break
		}
	}
	if !p.expectPeek(lexer.RPAREN) {
		return nil, false
	}
	return args, true
}

func (p *Parser) parseMemberExpression(obj ast.Expression) ast.Expression {
	expr := &ast.MemberExpression{Object: obj}
	expr.SetLoc(obj.Pos())
	if p.curToken.Type == lexer.DOT {
		p.nextToken()
		if !isIdentLike(p.curToken) {
			p.addError(p.curToken, "expected property name after .")
			return nil
		}
		prop := &ast.Identifier{Name: p.curToken.Literal}
		prop.SetLoc(p.loc(p.curToken))
		expr.Property = prop
	} else { // LBRACKET
		p.nextToken()
		expr.Computed = true
		expr.Property = p.parseExpression(LOWEST)
		if expr.Property == nil {
			return nil
		}
		if !p.expectPeek(lexer.RBRACKET) {
			return nil
		}
	}
	return expr
}

// isIdentLike reports whether a token can serve as a property name: a real
// identifier or any reserved word.
func isIdentLike(tok lexer.Token) bool {
	if tok.Type == lexer.IDENT {
		return true
	}
	if len(tok.Literal) == 0 {
		return false
	}
	c := tok.Literal[0]
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
}

// isAssignable reports whether an expression is a valid assignment target.
func isAssignable(expr ast.Expression) bool {
	switch expr.(type) {
	case *ast.Identifier, *ast.MemberExpression:
		return true
	default:
		return false
	}
}

// operatorText maps a token to the operator spelling used in the AST. The
// lexeme is the exact source text, so keywords come out lowercase.
func operatorText(tok lexer.Token) string {
	return tok.Literal
}
