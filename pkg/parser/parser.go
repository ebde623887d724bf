// Package parser implements a recursive descent parser for WHILE
package parser

import (
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-while/pkg/ir"
	"github.com/raymyers/ralph-while/pkg/lexer"
)

var (
	// ErrSyntax is returned for malformed WHILE source.
	ErrSyntax = errors.New("syntax error")
	// ErrThreshold is returned when a loop guard compares against
	// anything but the literal 0.
	ErrThreshold = errors.New("loop condition threshold must be 0")
)

// EmptyReason is the Empty node reason used for a file with no statements.
const EmptyReason = "File is empty"

// Parser parses WHILE source code into an IR tree
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
	threshold bool // a non-zero loop threshold was seen
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse is a shorthand for parsing a whole source text.
func Parse(src string) (ir.Program, error) {
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if err := p.Err(); err != nil {
		return ir.Program{}, err
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

// Err folds the collected errors into one. It wraps ErrThreshold if any
// loop guard was rejected and ErrSyntax otherwise.
func (p *Parser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	base := ErrSyntax
	if p.threshold {
		base = ErrThreshold
	}
	return errors.Wrap(base, "%s", strings.Join(p.errors, "; "))
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.describe(p.curToken)))
	return false
}

func (p *Parser) describe(tok lexer.Token) string {
	if tok.Type == lexer.TokenIllegal {
		return fmt.Sprintf("illegal token %q", tok.Literal)
	}
	return tok.Type.String()
}

// ParseProgram parses a complete program. An input without statements
// yields a Program whose body is Empty.
func (p *Parser) ParseProgram() ir.Program {
	if p.curTokenIs(lexer.TokenEOF) {
		return ir.Program{Body: ir.Empty{Reason: EmptyReason}}
	}
	body := p.parseStatements()
	if !p.curTokenIs(lexer.TokenEOF) {
		p.addError(fmt.Sprintf("unexpected %s after program", p.describe(p.curToken)))
	}
	return ir.Program{Body: body}
}

// parseStatements parses stmt (';' stmt)* into right-nested sequences.
// A trailing ';' before "end" or end of input is accepted.
func (p *Parser) parseStatements() ir.Node {
	first := p.parseStatement()
	if first == nil {
		return nil
	}
	if !p.curTokenIs(lexer.TokenSemicolon) {
		return first
	}
	p.nextToken()
	if p.curTokenIs(lexer.TokenEnd) || p.curTokenIs(lexer.TokenEOF) {
		return first
	}
	rest := p.parseStatements()
	if rest == nil {
		return first
	}
	return ir.Sequence{Stmts: []ir.Node{first, rest}}
}

func (p *Parser) parseStatement() ir.Node {
	switch p.curToken.Type {
	case lexer.TokenRegister:
		return p.parseAssignment()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenEcho:
		p.nextToken()
		v, ok := p.parseRegister()
		if !ok {
			return nil
		}
		return ir.Print{Var: v}
	default:
		p.addError(fmt.Sprintf("expected statement, got %s", p.describe(p.curToken)))
		return nil
	}
}

// parseAssignment parses "xi = xj + c" and "xi = xj - c"
func (p *Parser) parseAssignment() ir.Node {
	target, _ := p.parseRegister()
	if !p.expect(lexer.TokenAssign) {
		return nil
	}
	source, ok := p.parseRegister()
	if !ok {
		return nil
	}

	var op ir.Op
	switch p.curToken.Type {
	case lexer.TokenPlus:
		op = ir.OpAdd
	case lexer.TokenMinus:
		op = ir.OpSub
	default:
		p.addError(fmt.Sprintf("expected + or -, got %s", p.describe(p.curToken)))
		return nil
	}
	p.nextToken()

	c, ok := p.parseConst()
	if !ok {
		return nil
	}
	return ir.Assignment{Target: target, Source: source, Op: op, Constant: c}
}

// parseWhile parses "while xi > 0 do stmts end"
func (p *Parser) parseWhile() ir.Node {
	p.nextToken() // consume 'while'

	v, ok := p.parseRegister()
	if !ok {
		return nil
	}
	if !p.expect(lexer.TokenGt) {
		return nil
	}
	line, col := p.curToken.Line, p.curToken.Column
	threshold, ok := p.parseConst()
	if !ok {
		return nil
	}
	if !threshold.IsZero() {
		p.threshold = true
		p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: loop threshold %s: %v",
			line, col, threshold, ErrThreshold))
	}
	if !p.expect(lexer.TokenDo) {
		return nil
	}
	body := p.parseStatements()
	if body == nil {
		return nil
	}
	if !p.expect(lexer.TokenEnd) {
		return nil
	}
	return ir.While{Cond: ir.Condition{Var: v, Threshold: threshold}, Body: body}
}

func (p *Parser) parseRegister() (ir.Ident, bool) {
	if !p.curTokenIs(lexer.TokenRegister) {
		p.addError(fmt.Sprintf("expected register, got %s", p.describe(p.curToken)))
		return "", false
	}
	id := ir.Ident(p.curToken.Literal)
	p.nextToken()
	return id, true
}

func (p *Parser) parseConst() (ir.Const, bool) {
	if !p.curTokenIs(lexer.TokenInt) {
		p.addError(fmt.Sprintf("expected integer, got %s", p.describe(p.curToken)))
		return "", false
	}
	c, err := ir.NewConst(p.curToken.Literal)
	if err != nil {
		p.addError(err.Error())
		return "", false
	}
	p.nextToken()
	return c, true
}
