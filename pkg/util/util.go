package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/token"
)

var (
	ErrSyntax   = errors.New("syntax error")
	ErrSemantic = errors.New("semantic error")
	ErrLexical  = errors.New("lexical error")
)

// SyntaxError is a grammar violation at Tok
type SyntaxError struct {
	Msg string
	Tok token.Token
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax Error: %s - line_num: %d col: %d", e.Msg, e.Tok.Line, e.Tok.Column)
}
func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }
func (e *SyntaxError) Token() token.Token   { return e.Tok }

// SemanticError covers declaration, initialization and typing failures. Tok is
// the zero token when no source position is known.
type SemanticError struct {
	Msg string
	Tok token.Token
}

func (e *SemanticError) Error() string         { return "Semantic Error: " + e.Msg }
func (e *SemanticError) Is(target error) bool  { return target == ErrSemantic }
func (e *SemanticError) Token() token.Token    { return e.Tok }

func Semanticf(tok token.Token, format string, args ...interface{}) error {
	return &SemanticError{Msg: fmt.Sprintf(format, args...), Tok: tok}
}

// LexError reports input no token rule matches
type LexError struct {
	Msg string
	Tok token.Token
}

func (e *LexError) Error() string {
	return fmt.Sprintf("Lexical Error: %s - line_num: %d col: %d", e.Msg, e.Tok.Line, e.Tok.Column)
}
func (e *LexError) Is(target error) bool { return target == ErrLexical }
func (e *LexError) Token() token.Token   { return e.Tok }

// positioned is implemented by every diagnostic that knows where it happened
type positioned interface {
	Token() token.Token
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) { sourceFiles = files }

func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// sourceLine returns line n (1-based) of the given file, without the newline
func sourceLine(fileIndex, n int) (string, bool) {
	if fileIndex < 0 || fileIndex >= len(sourceFiles) || n <= 0 {
		return "", false
	}
	lines := strings.Split(string(sourceFiles[fileIndex].Content), "\n")
	if n > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[n-1], "\r"), true
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	line, ok := sourceLine(tok.FileIndex, tok.Line)
	if !ok || tok.Column <= 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", line)
	fmt.Fprintf(w, "  %s\033[32m^", strings.Repeat(" ", tok.Column-1))
	if tok.Len > 1 {
		fmt.Fprintf(w, "%s", strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(w, "\033[0m")
}

// Report prints err as a located diagnostic on w
func Report(w io.Writer, err error) {
	var p positioned
	if errors.As(err, &p) && p.Token().Line > 0 {
		tok := p.Token()
		filename, line, col := findFileAndLine(tok)
		fmt.Fprintf(w, "%s:%d:%d: \033[31merror:\033[0m %s\n", filename, line, col, err)
		printErrorLine(w, tok)
		return
	}
	fmt.Fprintf(w, "mlc: \033[31merror:\033[0m %s\n", err)
}

// WarnOutput is where warnings go; tests swap it out
var WarnOutput io.Writer = os.Stderr

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(WarnOutput, "%s:%d:%d: \033[33mwarning:\033[0m ", filename, line, col)
	fmt.Fprintf(WarnOutput, format, args...)
	fmt.Fprintf(WarnOutput, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(WarnOutput, tok)
}
