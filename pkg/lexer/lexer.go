package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/util"
)

// Lexer produces tokens lazily, one line of source at a time. It satisfies
// token.Source; after a lexical error it keeps returning EOF and Err reports
// the failure.
type Lexer struct {
	rules     *Rules
	lines     []string
	fileIndex int
	line      int // index into lines
	rest      string
	column    int
	err       error
}

func NewLexer(source []rune, fileIndex int, rules *Rules) *Lexer {
	text := strings.ReplaceAll(string(source), "\r\n", "\n")
	l := &Lexer{rules: rules, lines: strings.Split(text, "\n"), fileIndex: fileIndex, line: -1}
	l.nextLine()
	return l
}

func (l *Lexer) Err() error { return l.err }

func (l *Lexer) nextLine() bool {
	l.line++
	if l.line >= len(l.lines) {
		l.rest = ""
		return false
	}
	l.rest, l.column = l.lines[l.line], 1
	return true
}

func (l *Lexer) skipSpace() {
	trimmed := strings.TrimLeftFunc(l.rest, unicode.IsSpace)
	l.column += utf8.RuneCountInString(l.rest) - utf8.RuneCountInString(trimmed)
	l.rest = trimmed
}

func (l *Lexer) eof() token.Token {
	line, col := len(l.lines), 1
	if line > 0 {
		col = utf8.RuneCountInString(l.lines[line-1]) + 1
	}
	return token.NewEOF(l.fileIndex, line, col)
}

func (l *Lexer) Next() token.Token {
	if l.err != nil {
		return l.eof()
	}
	for {
		l.skipSpace()
		if l.rest == "" {
			if !l.nextLine() {
				return l.eof()
			}
			continue
		}
		if strings.HasPrefix(l.rest, "#") {
			l.rest = ""
			continue
		}

		tok, ok := l.match()
		if !ok {
			r, _ := utf8.DecodeRuneInString(l.rest)
			bad := token.Token{Lexeme: string(r), FileIndex: l.fileIndex, Line: l.line + 1, Column: l.column, Len: 1}
			l.err = &util.LexError{Msg: "no token rule matches '" + string(r) + "'", Tok: bad}
			return l.eof()
		}
		if tok.Class == token.ClassComment || strings.HasPrefix(tok.Lexeme, "#") {
			l.rest = ""
			continue
		}
		return tok
	}
}

func (l *Lexer) match() (token.Token, bool) {
	for _, rule := range l.rules.list {
		loc := rule.re.FindStringIndex(l.rest)
		if loc == nil || loc[1] == 0 {
			continue
		}
		lexeme := l.rest[:loc[1]]
		n := utf8.RuneCountInString(lexeme)
		tok := token.Token{
			Class: rule.Class, Name: rule.Name, Lexeme: lexeme,
			FileIndex: l.fileIndex, Line: l.line + 1, Column: l.column, Len: n,
		}
		l.rest = l.rest[loc[1]:]
		l.column += n
		return tok, true
	}
	return token.Token{}, false
}

// Tokenize drains a lexer into a slice terminated by the EOF sentinel
func Tokenize(source []rune, fileIndex int, rules *Rules) ([]token.Token, error) {
	l := NewLexer(source, fileIndex, rules)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.IsEOF() {
			break
		}
	}
	return toks, l.Err()
}
