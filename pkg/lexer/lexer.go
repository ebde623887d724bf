package lexer

// Lexer tokenizes WHILE and EWHILE source code
type Lexer struct {
	input   string
	mode    Mode
	pos     int  // current position in input
	readPos int  // next reading position
	ch      byte // current character
	line    int
	column  int
}

// New creates a new Lexer for WHILE source
func New(input string) *Lexer {
	return NewWithMode(input, ModeWhile)
}

// NewWithMode creates a new Lexer for the given source language
func NewWithMode(input string, mode Mode) *Lexer {
	l := &Lexer{input: input, mode: mode, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	l.skipComments()

	tok := Token{Line: l.line, Column: l.column}

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
		tok.Literal = ""
	case '+':
		tok = l.newToken(TokenPlus, l.ch)
	case '-':
		tok = l.newToken(TokenMinus, l.ch)
	case '*':
		tok = l.newToken(TokenStar, l.ch)
	case '/':
		// skipComments consumed every comment; a lone slash is division
		tok = l.newToken(TokenSlash, l.ch)
	case '%':
		tok = l.newToken(TokenPercent, l.ch)
	case '=':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TokenEq)
		} else {
			tok = l.newToken(TokenAssign, l.ch)
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(TokenNe)
		} else {
			tok = l.newToken(TokenIllegal, l.ch)
		}
	case '<':
		if l.peekChar() == '<' {
			tok = l.twoCharToken(TokenShl)
		} else {
			tok = l.newToken(TokenIllegal, l.ch)
		}
	case '>':
		if l.peekChar() == '>' {
			tok = l.twoCharToken(TokenShr)
		} else {
			tok = l.newToken(TokenGt, l.ch)
		}
	case '^':
		if l.peekChar() == '?' {
			tok = l.twoCharToken(TokenMax)
		} else {
			tok = l.newToken(TokenIllegal, l.ch)
		}
	case ';':
		tok = l.newToken(TokenSemicolon, l.ch)
	case ',':
		tok = l.newToken(TokenComma, l.ch)
	default:
		if l.ch == 'v' && l.peekChar() == '?' && l.mode == ModeExtended {
			tok = l.twoCharToken(TokenMin)
		} else if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(tok.Literal, l.mode)
			return tok
		} else if isDigit(l.ch) {
			tok.Literal = l.readNumber()
			tok.Type = TokenInt
			if len(tok.Literal) > 1 && tok.Literal[0] == '0' {
				tok.Type = TokenIllegal
			}
			return tok
		} else {
			tok = l.newToken(TokenIllegal, l.ch)
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tokenType TokenType, ch byte) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: l.line, Column: l.column}
}

// twoCharToken consumes the first character of a two-character operator;
// NextToken consumes the second.
func (l *Lexer) twoCharToken(tokenType TokenType) Token {
	tok := Token{Type: tokenType, Line: l.line, Column: l.column}
	tok.Literal = string(l.ch) + string(l.peekChar())
	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComments drops block comments and line comments. WHILE treats a
// single slash as the start of a line comment; EWHILE requires two.
func (l *Lexer) skipComments() {
	for l.ch == '/' {
		switch {
		case l.peekChar() == '*':
			l.readChar() // consume /
			l.readChar() // consume *
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // consume *
					l.readChar() // consume /
					break
				}
				l.readChar()
			}
		case l.peekChar() == '/' || l.mode == ModeWhile:
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
		l.skipWhitespace()
	}
}

func (l *Lexer) readIdentifier() string {
	pos := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

func (l *Lexer) readNumber() string {
	pos := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[pos:l.pos]
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
