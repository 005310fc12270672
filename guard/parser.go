package guard

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Parser builds an AST from a guard expression.
type Parser struct {
	lexer *Lexer
	cur   Token
	peek  Token
}

// NewParser creates a parser for the given expression.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Load cur and peek.
	p.next()
	p.next()
	return p
}

// Parse consumes the whole input and returns its AST.
func (p *Parser) Parse() (Node, error) {
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %q at %d", p.cur.Literal, p.cur.Pos)
	}
	return node, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

// parseOr handles ||, the lowest precedence level.
func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOp && p.cur.Literal == "||" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOp && p.cur.Literal == "&&" {
		p.next()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOp && (p.cur.Literal == "==" || p.cur.Literal == "!=") {
		op := p.cur.Literal
		p.next()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOp && relational(p.cur.Literal) {
		op := p.cur.Literal
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOp && (p.cur.Literal == "+" || p.cur.Literal == "-") {
		op := p.cur.Literal
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOp && (p.cur.Literal == "*" || p.cur.Literal == "/" || p.cur.Literal == "%") {
		op := p.cur.Literal
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.cur.Type == TokenOp && p.cur.Literal == "!" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "!", Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles indexing, which may chain:
// allowances[from][caller].
func (p *Parser) parsePostfix() (Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenLBracket {
		p.next()
		index, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRBracket {
			return nil, fmt.Errorf("expected ] at %d, got %q", p.cur.Pos, p.cur.Literal)
		}
		p.next()
		node = &IndexExpr{Object: node, Index: index}
	}
	return node, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	switch p.cur.Type {
	case TokenNumber:
		raw := strings.ReplaceAll(p.cur.Literal, "_", "")
		v := new(uint256.Int)
		if err := v.SetFromDecimal(raw); err != nil {
			return nil, fmt.Errorf("bad number %q at %d: %v", p.cur.Literal, p.cur.Pos, err)
		}
		p.next()
		return &NumberLit{Value: v}, nil

	case TokenString:
		node := &StringLit{Value: p.cur.Literal}
		p.next()
		return node, nil

	case TokenIdent:
		name := p.cur.Literal
		p.next()
		switch name {
		case "true":
			return &BoolLit{Value: true}, nil
		case "false":
			return &BoolLit{Value: false}, nil
		}
		// A call only follows a bare identifier.
		if p.cur.Type == TokenLParen {
			return p.parseCall(name)
		}
		return &Identifier{Name: name}, nil

	case TokenLParen:
		p.next()
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, fmt.Errorf("expected ) at %d, got %q", p.cur.Pos, p.cur.Literal)
		}
		p.next()
		return node, nil
	}

	return nil, fmt.Errorf("unexpected %q at %d", p.cur.Literal, p.cur.Pos)
}

func (p *Parser) parseCall(name string) (Node, error) {
	// cur is ( on entry.
	p.next()
	var args []Node
	for p.cur.Type != TokenRParen {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type == TokenComma {
			p.next()
			continue
		}
		if p.cur.Type != TokenRParen {
			return nil, fmt.Errorf("expected , or ) at %d, got %q", p.cur.Pos, p.cur.Literal)
		}
	}
	p.next()
	return &CallExpr{Func: name, Args: args}, nil
}

func relational(op string) bool {
	switch op {
	case "<", "<=", ">", ">=":
		return true
	}
	return false
}
