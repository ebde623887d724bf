package lexer

import "strings"

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenRegister // x0, x17
	TokenIdent    // counter, tmp (EWHILE only)
	TokenInt      // 42

	// Keywords
	TokenWhile // while
	TokenDo    // do
	TokenEnd   // end
	TokenEcho  // echo
	TokenLet   // let
	TokenIf    // if
	TokenThen  // then
	TokenElse  // else

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenAssign  // =
	TokenEq      // ==
	TokenNe      // !=
	TokenGt      // >
	TokenShl     // <<
	TokenShr     // >>
	TokenMax     // ^?
	TokenMin     // v?

	// Delimiters
	TokenSemicolon // ;
	TokenComma     // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIllegal:   "ILLEGAL",
	TokenRegister:  "REGISTER",
	TokenIdent:     "IDENT",
	TokenInt:       "INT",
	TokenWhile:     "while",
	TokenDo:        "do",
	TokenEnd:       "end",
	TokenEcho:      "echo",
	TokenLet:       "let",
	TokenIf:        "if",
	TokenThen:      "then",
	TokenElse:      "else",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
	TokenPercent:   "%",
	TokenAssign:    "=",
	TokenEq:        "==",
	TokenNe:        "!=",
	TokenGt:        ">",
	TokenShl:       "<<",
	TokenShr:       ">>",
	TokenMax:       "^?",
	TokenMin:       "v?",
	TokenSemicolon: ";",
	TokenComma:     ",",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// Mode selects the source language accepted by the lexer.
type Mode int

const (
	// ModeWhile accepts the register-only WHILE language.
	ModeWhile Mode = iota
	// ModeExtended accepts EWHILE: named variables, if/else and the
	// full operator set.
	ModeExtended
)

// keywords maps lower-cased keyword strings to token types. Keywords are
// case-insensitive in both modes.
var keywords = map[string]TokenType{
	"while": TokenWhile,
	"do":    TokenDo,
	"end":   TokenEnd,
	"echo":  TokenEcho,
}

var extendedKeywords = map[string]TokenType{
	"let":  TokenLet,
	"if":   TokenIf,
	"then": TokenThen,
	"else": TokenElse,
}

// LookupIdent classifies a word read from the input.
func LookupIdent(word string, mode Mode) TokenType {
	lower := strings.ToLower(word)
	if tok, ok := keywords[lower]; ok {
		return tok
	}
	if mode == ModeExtended {
		if tok, ok := extendedKeywords[lower]; ok {
			return tok
		}
	}
	if IsRegister(word) {
		return TokenRegister
	}
	if mode == ModeExtended {
		return TokenIdent
	}
	return TokenIllegal
}

// IsRegister reports whether name has the form x0, x1, ... with no
// leading zeros in the index.
func IsRegister(name string) bool {
	if len(name) < 2 || name[0] != 'x' {
		return false
	}
	digits := name[1:]
	if digits[0] == '0' && len(digits) > 1 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if !isDigit(digits[i]) {
			return false
		}
	}
	return true
}
