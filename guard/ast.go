package guard

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Node is one node of a parsed guard expression.
type Node interface {
	String() string
}

// BoolLit is a boolean literal (true, false).
type BoolLit struct {
	Value bool
}

func (n *BoolLit) String() string {
	return fmt.Sprintf("%v", n.Value)
}

// NumberLit is an unsigned decimal literal. All guard arithmetic is
// uint256, matching contract semantics.
type NumberLit struct {
	Value *uint256.Int
}

func (n *NumberLit) String() string {
	return n.Value.Dec()
}

// StringLit is a quoted string literal.
type StringLit struct {
	Value string
}

func (n *StringLit) String() string {
	return fmt.Sprintf("%q", n.Value)
}

// Identifier references a binding by name.
type Identifier struct {
	Name string
}

func (n *Identifier) String() string {
	return n.Name
}

// UnaryOp applies ! to an operand.
type UnaryOp struct {
	Op      string
	Operand Node
}

func (n *UnaryOp) String() string {
	return n.Op + n.Operand.String()
}

// BinaryOp applies an infix operator.
type BinaryOp struct {
	Op    string
	Left  Node
	Right Node
}

func (n *BinaryOp) String() string {
	return "(" + n.Left.String() + " " + n.Op + " " + n.Right.String() + ")"
}

// IndexExpr reads a map entry: balances[from], allowances[from][caller].
type IndexExpr struct {
	Object Node
	Index  Node
}

func (n *IndexExpr) String() string {
	return n.Object.String() + "[" + n.Index.String() + "]"
}

// CallExpr invokes a builtin: address(0), sum(balances).
type CallExpr struct {
	Func string
	Args []Node
}

func (n *CallExpr) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Func + "(" + strings.Join(args, ", ") + ")"
}
