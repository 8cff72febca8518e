package parser

import (
	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/symtab"
	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/util"
)

// Parser holds the state for the parsing process. Every production method
// takes the current lookahead and returns the first token that does not
// belong to it, together with the subtree it built.
type Parser struct {
	src  token.Source
	syms *symtab.Table
}

// Parse consumes src up to the EOF sentinel, building the AST and installing
// typed bindings into syms.
func Parse(src token.Source, syms *symtab.Table) (*ast.Node, error) {
	p := &Parser{src: src, syms: syms}
	cur, prog, err := p.program(p.next())
	if err == nil && !cur.IsEOF() {
		err = &util.SyntaxError{Msg: "Tokens exist after END keyword.", Tok: cur}
	}
	// A lexical error surfaces as a premature EOF; report the real cause.
	if lerr := p.lexErr(); lerr != nil {
		return nil, lerr
	}
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// ParseTokens parses a pre-tokenized program into a fresh symbol table
func ParseTokens(toks []token.Token) (*ast.Node, *symtab.Table, error) {
	syms := symtab.New()
	prog, err := Parse(token.NewSliceSource(toks), syms)
	return prog, syms, err
}

// Parser helpers
func (p *Parser) next() token.Token { return p.src.Next() }

func (p *Parser) lexErr() error {
	if e, ok := p.src.(interface{ Err() error }); ok {
		return e.Err()
	}
	return nil
}

// fail reports msg at tok, or a premature end of input when tok is EOF
func (p *Parser) fail(tok token.Token, msg string) error {
	if tok.IsEOF() {
		msg = "Program ends before END token"
	}
	return &util.SyntaxError{Msg: msg, Tok: tok}
}

// expect checks that cur has the given name and returns the token after it
func (p *Parser) expect(cur token.Token, name, msg string) (token.Token, error) {
	if cur.Name != name {
		return cur, p.fail(cur, msg)
	}
	return p.next(), nil
}

func isStatementListEnd(tok token.Token) bool {
	return tok.Name == token.End || tok.Name == token.Def || tok.Name == token.Begin
}

// Program structure

func (p *Parser) program(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	var funcs []*ast.Node
	var err error
	switch cur.Name {
	case token.Def:
		if cur, funcs, err = p.functionList(cur); err != nil {
			return cur, nil, err
		}
		if cur.Name != token.Begin {
			return cur, nil, p.fail(cur, "BEGIN keyword doesn't follow function declarations.")
		}
	case token.Begin:
	default:
		return cur, nil, p.fail(cur, "Program doesn't begin with BEGIN or function declaration")
	}

	cur, stmts, err := p.statementList(p.next())
	if err != nil {
		return cur, nil, err
	}
	if cur.Name != token.End {
		return cur, nil, p.fail(cur, "Statement list complete, but no END token to signal end of program")
	}
	return p.next(), ast.NewProgram(start, funcs, stmts, cur), nil
}

// block parses the body of an if/while: an optional BEGIN, a statement list
// and the END that closes it. Function declarations are not allowed here.
func (p *Parser) block(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	switch cur.Name {
	case token.Def:
		return cur, nil, p.fail(cur, "Function declarations are not allowed inside a block")
	case token.Begin:
		cur = p.next()
	}
	cur, stmts, err := p.statementList(cur)
	if err != nil {
		return cur, nil, err
	}
	if cur.Name != token.End {
		return cur, nil, p.fail(cur, "Block is not closed by an END token")
	}
	return p.next(), ast.NewBlock(start, stmts, cur), nil
}

func (p *Parser) functionList(cur token.Token) (token.Token, []*ast.Node, error) {
	var funcs []*ast.Node
	for cur.Name == token.Def {
		var fn *ast.Node
		var err error
		if cur, fn, err = p.functionDecl(cur); err != nil {
			return cur, nil, err
		}
		funcs = append(funcs, fn)
	}
	return cur, funcs, nil
}

func (p *Parser) functionDecl(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	if cur.Name != token.Def {
		return cur, nil, p.fail(cur, "Function declaration does not begin with def keyword")
	}
	cur = p.next()
	if cur.Class != token.ClassType {
		return cur, nil, p.fail(cur, "Function declaration does not have a return type")
	}
	ret := ast.TypeFromToken(cur.Name)
	cur = p.next()
	if cur.Name != token.ID {
		return cur, nil, p.fail(cur, "Function does not have an identifier")
	}
	name := cur.Lexeme
	cur, err := p.expect(p.next(), token.LParen, "Function is missing opening paren for param list")
	if err != nil {
		return cur, nil, err
	}
	cur, params, err := p.paramList(cur)
	if err != nil {
		return cur, nil, err
	}
	if cur, err = p.expect(cur, token.RParen, "Function param list missing closing paren"); err != nil {
		return cur, nil, err
	}
	if cur, err = p.expect(cur, token.Colon, "Function declaration must be followed by a colon"); err != nil {
		return cur, nil, err
	}
	cur, body, err := p.statementList(cur)
	if err != nil {
		return cur, nil, err
	}
	return cur, ast.NewFuncDecl(start, name, ret, params, body), nil
}

func (p *Parser) paramList(cur token.Token) (token.Token, []ast.Param, error) {
	if cur.Name == token.RParen {
		return cur, nil, nil
	}
	var params []ast.Param
	for {
		if cur.Class != token.ClassType {
			return cur, nil, p.fail(cur, "Parameter must have an associated type.")
		}
		typ := ast.TypeFromToken(cur.Name)
		nameTok := p.next()
		next, id, err := p.ident(nameTok, typ)
		if err != nil {
			return next, nil, err
		}
		params = append(params, ast.Param{Type: typ, Name: id.Name(), Tok: nameTok})
		if cur = next; cur.Name != token.Comma {
			return cur, params, nil
		}
		cur = p.next()
	}
}

func (p *Parser) statementList(cur token.Token) (token.Token, []*ast.Node, error) {
	var stmts []*ast.Node
	for {
		var stmt *ast.Node
		var err error
		if cur, stmt, err = p.statement(cur); err != nil {
			return cur, nil, err
		}
		stmts = append(stmts, stmt)
		if isStatementListEnd(cur) || cur.IsEOF() {
			return cur, stmts, nil
		}
	}
}

// Statements

func (p *Parser) statement(cur token.Token) (token.Token, *ast.Node, error) {
	if cur.Class == token.ClassType {
		cur, decl, err := p.declaration(cur)
		if err != nil {
			return cur, nil, err
		}
		cur, err = p.expect(cur, token.Semicolon, "Statement doesn't end with a semicolon")
		return cur, decl, err
	}

	switch cur.Name {
	case token.ID:
		cur, assign, err := p.assignment(cur)
		if err != nil {
			return cur, nil, err
		}
		cur, err = p.expect(cur, token.Semicolon, "Statement doesn't end with a semicolon")
		return cur, assign, err
	case token.Read:
		return p.readStmt(cur)
	case token.Write:
		return p.writeStmt(cur)
	case token.Func:
		return p.callStmt(cur)
	case token.If:
		return p.ifStmt(cur)
	case token.While:
		return p.whileStmt(cur)
	case token.Return:
		start := cur
		cur, val, err := p.fact2(p.next())
		if err != nil {
			return cur, nil, err
		}
		cur, err = p.expect(cur, token.Semicolon, "Return statement must end with a semicolon.")
		return cur, ast.NewReturn(start, val), err
	default:
		return cur, nil, p.fail(cur, "Inappropriate token to start a statement")
	}
}

func (p *Parser) readStmt(start token.Token) (token.Token, *ast.Node, error) {
	cur, err := p.expect(p.next(), token.LParen, "READ token is not followed by a (")
	if err != nil {
		return cur, nil, err
	}
	cur, ids, err := p.idList(cur)
	if err != nil {
		return cur, nil, err
	}
	if cur, err = p.expect(cur, token.RParen, "Missing closing ) in READ statement"); err != nil {
		return cur, nil, err
	}
	cur, err = p.expect(cur, token.Semicolon, "Statement doesn't end with a semicolon")
	return cur, ast.NewRead(start, ids), err
}

func (p *Parser) writeStmt(start token.Token) (token.Token, *ast.Node, error) {
	cur, err := p.expect(p.next(), token.LParen, "WRITE token is not followed by a (")
	if err != nil {
		return cur, nil, err
	}
	cur, exprs, err := p.exprList(cur)
	if err != nil {
		return cur, nil, err
	}
	if cur, err = p.expect(cur, token.RParen, "Missing closing ) in WRITE statement"); err != nil {
		return cur, nil, err
	}
	cur, err = p.expect(cur, token.Semicolon, "Statement doesn't end with a semicolon")
	return cur, ast.NewWrite(start, exprs), err
}

func (p *Parser) callStmt(start token.Token) (token.Token, *ast.Node, error) {
	cur, id, err := p.ident(p.next(), ast.TypeUnknown)
	if err != nil {
		return cur, nil, err
	}
	if cur, err = p.expect(cur, token.LParen, "Function call missing opening paren to arg list"); err != nil {
		return cur, nil, err
	}
	var args []*ast.Node
	if cur.Name != token.RParen {
		if cur, args, err = p.exprList(cur); err != nil {
			return cur, nil, err
		}
	}
	if cur, err = p.expect(cur, token.RParen, "Function call missing closing paren to arg list"); err != nil {
		return cur, nil, err
	}
	cur, err = p.expect(cur, token.Semicolon, "Function call doesn't end with a semicolon")
	return cur, ast.NewCall(start, id.Name(), args), err
}

func (p *Parser) ifStmt(start token.Token) (token.Token, *ast.Node, error) {
	cur, cond, err := p.expression(p.next())
	if err != nil {
		return cur, nil, err
	}
	if cur, err = p.expect(cur, token.Then, "If must be followed with then"); err != nil {
		return cur, nil, err
	}
	cur, then, err := p.block(cur)
	if err != nil {
		return cur, nil, err
	}
	if cur.Name != token.Else {
		return cur, ast.NewIf(start, cond, then, nil), nil
	}
	cur, els, err := p.block(p.next())
	if err != nil {
		return cur, nil, err
	}
	return cur, ast.NewIf(start, cond, then, els), nil
}

func (p *Parser) whileStmt(start token.Token) (token.Token, *ast.Node, error) {
	cur, cond, err := p.expression(p.next())
	if err != nil {
		return cur, nil, err
	}
	cur, body, err := p.block(cur)
	if err != nil {
		return cur, nil, err
	}
	return cur, ast.NewWhile(start, cond, body), nil
}

func (p *Parser) assignment(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	cur, target, err := p.ident(cur, ast.TypeUnknown)
	if err != nil {
		return cur, nil, err
	}
	if cur.Name != token.AssignOp {
		return cur, nil, p.fail(cur, "Assignment operator does not follow identifier in assignment statement")
	}
	cur, value, err := p.expression(p.next())
	if err != nil {
		return cur, nil, err
	}
	return cur, ast.NewAssign(start, target, value), nil
}

func (p *Parser) declaration(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	typ := ast.TypeFromToken(cur.Name)
	cur, target, err := p.ident(p.next(), typ)
	if err != nil {
		return cur, nil, err
	}
	return cur, ast.NewVarDecl(start, typ, target), nil
}

func (p *Parser) idList(cur token.Token) (token.Token, []*ast.Node, error) {
	var ids []*ast.Node
	for {
		var id *ast.Node
		var err error
		if cur, id, err = p.ident(cur, ast.TypeUnknown); err != nil {
			return cur, nil, err
		}
		ids = append(ids, id)
		if cur.Name != token.Comma {
			return cur, ids, nil
		}
		cur = p.next()
	}
}

func (p *Parser) exprList(cur token.Token) (token.Token, []*ast.Node, error) {
	var exprs []*ast.Node
	for {
		var expr *ast.Node
		var err error
		if cur, expr, err = p.expression(cur); err != nil {
			return cur, nil, err
		}
		exprs = append(exprs, expr)
		if cur.Name != token.Comma {
			return cur, exprs, nil
		}
		cur = p.next()
	}
}

// ident parses an identifier. A known typ marks a binding occurrence and
// installs it in the symbol table.
func (p *Parser) ident(cur token.Token, typ ast.VarType) (token.Token, *ast.Node, error) {
	if cur.Name != token.ID {
		return cur, nil, p.fail(cur, "Invalid identifier")
	}
	if typ != ast.TypeUnknown {
		p.syms.Install(cur.Lexeme, typ, cur)
	}
	return p.next(), ast.NewIdent(cur, cur.Lexeme), nil
}
