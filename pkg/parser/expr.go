package parser

import (
	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/token"
)

// Expression parsing. The layers mirror the grammar exactly:
//   EXPRESSION -> TERM1 {or TERM1}
//   TERM1      -> FACT1 {and FACT1}
//   FACT1      -> not FACT2 | EXP2 RELATION
//   EXP2       -> TERM2 {(+|-) TERM2}
//   TERM2      -> SIGN FACT2 {(*|/|%) SIGN FACT2}
// Whether an EXP2 without a relation is boolean is decided by the type checker.

func (p *Parser) expression(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	var terms []*ast.Node
	for {
		var term *ast.Node
		var err error
		if cur, term, err = p.term1(cur); err != nil {
			return cur, nil, err
		}
		terms = append(terms, term)
		if cur.Name != token.Or {
			return cur, ast.NewExpression(start, terms), nil
		}
		cur = p.next()
	}
}

func (p *Parser) term1(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	var factors []*ast.Node
	for {
		var fact *ast.Node
		var err error
		if cur, fact, err = p.fact1(cur); err != nil {
			return cur, nil, err
		}
		factors = append(factors, fact)
		if cur.Name != token.And {
			return cur, ast.NewTerm1(start, factors), nil
		}
		cur = p.next()
	}
}

func (p *Parser) fact1(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	if cur.Name == token.Not {
		cur, operand, err := p.fact2(p.next())
		if err != nil {
			return cur, nil, err
		}
		return cur, ast.NewNot(start, operand), nil
	}

	cur, left, err := p.exp2(cur)
	if err != nil {
		return cur, nil, err
	}
	cur, rel, err := p.relation(cur)
	if err != nil {
		return cur, nil, err
	}
	return cur, ast.NewFact1(start, left, rel), nil
}

// relation returns a nil node for the lambda alternative
func (p *Parser) relation(cur token.Token) (token.Token, *ast.Node, error) {
	if cur.Class != token.ClassRelationOp {
		return cur, nil, nil
	}
	opTok := cur
	cur, right, err := p.exp2(p.next())
	if err != nil {
		return cur, nil, err
	}
	return cur, ast.NewRelation(opTok, opTok.Lexeme, right), nil
}

func (p *Parser) exp2(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	var terms []*ast.Node
	var ops []string
	for {
		var term *ast.Node
		var err error
		if cur, term, err = p.term2(cur); err != nil {
			return cur, nil, err
		}
		terms = append(terms, term)
		if cur.Name != token.Plus && cur.Name != token.Minus {
			return cur, ast.NewExp2(start, terms, ops), nil
		}
		ops = append(ops, cur.Name)
		cur = p.next()
	}
}

func (p *Parser) term2(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	var factors []ast.SignedFactor
	var ops []string
	for {
		var neg bool
		var fact *ast.Node
		var err error
		if cur, neg, err = p.sign(cur); err != nil {
			return cur, nil, err
		}
		if cur, fact, err = p.fact2(cur); err != nil {
			return cur, nil, err
		}
		factors = append(factors, ast.SignedFactor{Negative: neg, Fact: fact})
		if cur.Name != token.Times && cur.Name != token.Divide && cur.Name != token.Modulo {
			return cur, ast.NewTerm2(start, factors, ops), nil
		}
		ops = append(ops, cur.Name)
		cur = p.next()
	}
}

func (p *Parser) sign(cur token.Token) (token.Token, bool, error) {
	if cur.Class != token.ClassArithOp {
		return cur, false, nil
	}
	if cur.Name != token.Minus {
		return cur, false, p.fail(cur, "Invalid sign for number.")
	}
	return p.next(), true, nil
}

func (p *Parser) fact2(cur token.Token) (token.Token, *ast.Node, error) {
	start := cur
	switch cur.Name {
	case token.LParen:
		cur, expr, err := p.expression(p.next())
		if err != nil {
			return cur, nil, err
		}
		if cur, err = p.expect(cur, token.RParen, "Expression not followed by matching ')'"); err != nil {
			return cur, nil, err
		}
		return cur, ast.NewFact2(start, expr), nil
	case token.ID:
		cur, id, err := p.ident(cur, ast.TypeUnknown)
		if err != nil {
			return cur, nil, err
		}
		return cur, ast.NewFact2(start, id), nil
	case token.IntLit:
		return p.next(), ast.NewFact2(start, ast.NewIntLit(cur)), nil
	case token.BoolLit:
		return p.next(), ast.NewFact2(start, ast.NewBoolLit(cur)), nil
	case token.StringLit:
		return p.next(), ast.NewFact2(start, ast.NewStringLit(cur)), nil
	default:
		return cur, nil, p.fail(cur, "Inappropriate starting token in FACT2")
	}
}
