package ewhile

import (
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-while/pkg/ir"
	"github.com/raymyers/ralph-while/pkg/lexer"
)

// ErrSyntax is returned for malformed EWHILE source.
var ErrSyntax = errors.New("syntax error")

// Parser parses EWHILE source into a Program
type Parser struct {
	l           *lexer.Lexer
	curToken    lexer.Token
	peekToken   lexer.Token
	errors      []string
	unsupported bool
}

// New creates a Parser. The lexer should be in lexer.ModeExtended.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse is a shorthand for parsing a whole source text.
func Parse(src string) (*Program, error) {
	p := New(lexer.NewWithMode(src, lexer.ModeExtended))
	prog := p.ParseProgram()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return prog, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

// Err folds the collected errors into one wrapping ErrUnsupported or
// ErrSyntax.
func (p *Parser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	base := ErrSyntax
	if p.unsupported {
		base = ErrUnsupported
	}
	return errors.Wrap(base, "%s", strings.Join(p.errors, "; "))
}

func (p *Parser) addError(msg string) {
	p.errorAt(p.curToken.Line, p.curToken.Column, msg)
}

func (p *Parser) errorAt(line, col int, msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s", line, col, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, describe(p.curToken)))
	return false
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokenIllegal:
		return fmt.Sprintf("illegal token %q", tok.Literal)
	case lexer.TokenIdent, lexer.TokenRegister, lexer.TokenInt:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

// ParseProgram parses a complete program. Body is nil for empty input.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	if p.curTokenIs(lexer.TokenEOF) {
		return prog
	}
	prog.Body = p.parseBlock()
	if !p.curTokenIs(lexer.TokenEOF) {
		p.addError(fmt.Sprintf("unexpected %s after program", describe(p.curToken)))
	}
	return prog
}

// parseBlock parses stmt (';' stmt)* with an optional trailing ';'. A
// single statement is returned as is.
func (p *Parser) parseBlock() Stmt {
	var stmts []Stmt
	for {
		s := p.parseStatement()
		if s == nil {
			return nil
		}
		stmts = append(stmts, s)
		if !p.curTokenIs(lexer.TokenSemicolon) {
			break
		}
		p.nextToken()
		if p.atBlockEnd() {
			break
		}
	}
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &Block{Stmts: stmts}
}

func (p *Parser) atBlockEnd() bool {
	switch p.curToken.Type {
	case lexer.TokenEnd, lexer.TokenElse, lexer.TokenEOF:
		return true
	}
	return false
}

func (p *Parser) parseStatement() Stmt {
	switch p.curToken.Type {
	case lexer.TokenRegister, lexer.TokenIdent:
		return p.parseAssign()
	case lexer.TokenLet:
		return p.parseLet()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenEcho:
		p.nextToken()
		v, ok := p.parseVar()
		if !ok {
			return nil
		}
		return &Echo{Var: v}
	default:
		p.addError(fmt.Sprintf("expected statement, got %s", describe(p.curToken)))
		return nil
	}
}

// parseLet parses "let a, b, c"
func (p *Parser) parseLet() Stmt {
	let := &Let{Line: p.curToken.Line}
	p.nextToken()
	for {
		v, ok := p.parseVar()
		if !ok {
			return nil
		}
		let.Names = append(let.Names, v.Name)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	return let
}

// parseAssign parses "a = expr"
func (p *Parser) parseAssign() Stmt {
	target, _ := p.parseVar()
	if !p.expect(lexer.TokenAssign) {
		return nil
	}
	e, ok := p.parseExpr()
	if !ok {
		return nil
	}
	return &Assign{Target: target, Expr: e, Line: target.Line, Column: target.Column}
}

// parseExpr parses "operand [op operand]" and checks that the code
// generator can handle the operand kinds.
func (p *Parser) parseExpr() (Expr, bool) {
	var e Expr
	left, ok := p.parseOperand()
	if !ok {
		return e, false
	}
	e.Left = left
	op, isOp := tokenOps[p.curToken.Type]
	if !isOp {
		return e, true
	}
	p.nextToken()
	right, ok := p.parseOperand()
	if !ok {
		return e, false
	}
	e.Op, e.Right = op, right
	if _, err := TempsNeeded(e); err != nil {
		p.unsupported = true
		p.errorAt(left.Line, left.Column, err.Error())
		return e, false
	}
	return e, true
}

func (p *Parser) parseCond() (*Cond, bool) {
	left, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	c := &Cond{Left: left}
	switch p.curToken.Type {
	case lexer.TokenGt:
		c.Op = CondGt
	case lexer.TokenEq:
		c.Op = CondEq
	case lexer.TokenNe:
		c.Op = CondNe
	default:
		p.addError(fmt.Sprintf("expected comparison, got %s", describe(p.curToken)))
		return nil, false
	}
	p.nextToken()
	right, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	c.Right = right
	return c, true
}

// parseWhile parses "while cond do stmts end"
func (p *Parser) parseWhile() Stmt {
	w := &While{Line: p.curToken.Line}
	p.nextToken()
	c, ok := p.parseCond()
	if !ok {
		return nil
	}
	w.Cond = c
	if !p.expect(lexer.TokenDo) {
		return nil
	}
	if w.Body = p.parseBlock(); w.Body == nil {
		return nil
	}
	if !p.expect(lexer.TokenEnd) {
		return nil
	}
	return w
}

// parseIf parses "if cond then stmts [else stmts] end"
func (p *Parser) parseIf() Stmt {
	s := &If{Line: p.curToken.Line}
	p.nextToken()
	c, ok := p.parseCond()
	if !ok {
		return nil
	}
	s.Cond = c
	if !p.expect(lexer.TokenThen) {
		return nil
	}
	if s.Then = p.parseBlock(); s.Then == nil {
		return nil
	}
	if p.curTokenIs(lexer.TokenElse) {
		p.nextToken()
		if s.Else = p.parseBlock(); s.Else == nil {
			return nil
		}
	}
	if !p.expect(lexer.TokenEnd) {
		return nil
	}
	return s
}

func (p *Parser) parseVar() (Operand, bool) {
	tok := p.curToken
	if tok.Type != lexer.TokenIdent && tok.Type != lexer.TokenRegister {
		p.addError(fmt.Sprintf("expected variable, got %s", describe(tok)))
		return Operand{}, false
	}
	p.nextToken()
	return Operand{Name: tok.Literal, Line: tok.Line, Column: tok.Column}, true
}

func (p *Parser) parseOperand() (Operand, bool) {
	tok := p.curToken
	if tok.Type != lexer.TokenInt {
		return p.parseVar()
	}
	c, err := ir.NewConst(tok.Literal)
	if err != nil {
		p.addError(err.Error())
		return Operand{}, false
	}
	p.nextToken()
	return Operand{Const: string(c), Line: tok.Line, Column: tok.Column}, true
}
