package token

import "fmt"

// Token classes produced by the default token table. The table is external
// data, so a custom table may introduce classes the parser never inspects.
const (
	ClassEOF        = "EOF"
	ClassID         = "ID"
	ClassIntLit     = "INTLIT"
	ClassBoolLit    = "BOOLLIT"
	ClassStringLit  = "STRINGLIT"
	ClassArithOp    = "ARITHOP"
	ClassRelationOp = "RELATIONOP"
	ClassType       = "TYPE"
	ClassKeyword    = "KEYWORD"
	ClassLogicalOp  = "LOGICALOP"
	ClassAssignOp   = "ASSIGNOP"
	ClassPunct      = "PUNCT"
	ClassComment    = "COMMENT"
)

// Token names the parser dispatches on
const (
	EOF        = "EOF"
	ID         = "ID"
	IntLit     = "INTLIT"
	BoolLit    = "BOOLLIT"
	StringLit  = "STRINGLIT"
	RelationOp = "RELATIONOP"
	AssignOp   = "ASSIGNOP"

	Begin  = "BEGIN"
	End    = "END"
	Read   = "READ"
	Write  = "WRITE"
	If     = "IF"
	Then   = "THEN"
	Else   = "ELSE"
	While  = "WHILE"
	Def    = "DEF"
	Func   = "FUNC"
	Return = "RETURN"

	Int    = "INT"
	Bool   = "BOOL"
	String = "STRING"
	Void   = "VOID"

	And = "AND"
	Or  = "OR"
	Not = "NOT"

	Plus   = "PLUS"
	Minus  = "MINUS"
	Times  = "TIMES"
	Divide = "DIVIDE"
	Modulo = "MODULO"

	LParen    = "LPAREN"
	RParen    = "RPAREN"
	Semicolon = "SEMICOLON"
	Comma     = "COMMA"
	Colon     = "COLON"
)

type Token struct {
	Class     string
	Name      string
	Lexeme    string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

func (t Token) IsEOF() bool { return t.Name == EOF }

func (t Token) String() string {
	return fmt.Sprintf("(%s, %s, %q, %d, %d)", t.Class, t.Name, t.Lexeme, t.Line, t.Column)
}

// NewEOF builds the end-of-input sentinel at the given position
func NewEOF(fileIndex, line, col int) Token {
	return Token{Class: ClassEOF, Name: EOF, FileIndex: fileIndex, Line: line, Column: col}
}

// Source is a pull-based token stream. After the sentinel EOF token has been
// returned, every further call returns EOF again.
type Source interface {
	Next() Token
}

// SliceSource replays a pre-tokenized slice
type SliceSource struct {
	toks []Token
	pos  int
}

func NewSliceSource(toks []Token) *SliceSource { return &SliceSource{toks: toks} }

func (s *SliceSource) Next() Token {
	if s.pos >= len(s.toks) {
		if len(s.toks) > 0 {
			last := s.toks[len(s.toks)-1]
			return NewEOF(last.FileIndex, last.Line, last.Column+last.Len)
		}
		return NewEOF(0, 0, 0)
	}
	tok := s.toks[s.pos]
	s.pos++
	return tok
}
