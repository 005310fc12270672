package guard

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Func is a builtin callable from guard expressions.
type Func func(args ...any) (any, error)

// Context holds bindings and builtins for one evaluation.
// Binding values are *uint256.Int, bool, string, or map[string]any
// (nested for two-level maps).
type Context struct {
	Bindings map[string]any
	Funcs    map[string]Func
}

// NewContext creates an empty evaluation context.
func NewContext() *Context {
	return &Context{
		Bindings: make(map[string]any),
		Funcs:    make(map[string]Func),
	}
}

// Eval evaluates an AST node in the given context.
func Eval(node Node, ctx *Context) (any, error) {
	switch n := node.(type) {
	case *BoolLit:
		return n.Value, nil

	case *NumberLit:
		return new(uint256.Int).Set(n.Value), nil

	case *StringLit:
		return n.Value, nil

	case *Identifier:
		val, ok := ctx.Bindings[n.Name]
		if !ok {
			return nil, fmt.Errorf("unknown identifier: %s", n.Name)
		}
		return val, nil

	case *UnaryOp:
		operand, err := Eval(n.Operand, ctx)
		if err != nil {
			return nil, err
		}
		b, ok := toBool(operand)
		if !ok {
			return nil, fmt.Errorf("operand of ! must be boolean, got %T", operand)
		}
		return !b, nil

	case *BinaryOp:
		return evalBinary(n, ctx)

	case *IndexExpr:
		obj, err := Eval(n.Object, ctx)
		if err != nil {
			return nil, err
		}
		index, err := Eval(n.Index, ctx)
		if err != nil {
			return nil, err
		}
		return evalIndex(obj, index)

	case *CallExpr:
		fn, ok := ctx.Funcs[n.Func]
		if !ok {
			return nil, fmt.Errorf("unknown function: %s", n.Func)
		}
		args := make([]any, len(n.Args))
		for i, arg := range n.Args {
			val, err := Eval(arg, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = val
		}
		return fn(args...)
	}

	return nil, fmt.Errorf("unknown node type: %T", node)
}

func evalBinary(n *BinaryOp, ctx *Context) (any, error) {
	// && and || short-circuit.
	switch n.Op {
	case "&&", "||":
		left, err := Eval(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		lb, ok := toBool(left)
		if !ok {
			return nil, fmt.Errorf("left operand of %s must be boolean, got %T", n.Op, left)
		}
		if n.Op == "&&" && !lb {
			return false, nil
		}
		if n.Op == "||" && lb {
			return true, nil
		}
		right, err := Eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		rb, ok := toBool(right)
		if !ok {
			return nil, fmt.Errorf("right operand of %s must be boolean, got %T", n.Op, right)
		}
		return rb, nil
	}

	left, err := Eval(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Eval(n.Right, ctx)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "+", "-", "*", "/", "%":
		return evalArithmetic(n.Op, left, right)
	case "<", "<=", ">", ">=":
		return evalRelational(n.Op, left, right)
	case "==", "!=":
		eq, err := equalValues(left, right)
		if err != nil {
			return nil, err
		}
		if n.Op == "==" {
			return eq, nil
		}
		return !eq, nil
	}
	return nil, fmt.Errorf("unknown operator: %s", n.Op)
}

func evalArithmetic(op string, left, right any) (any, error) {
	l, lok := toU256(left)
	r, rok := toU256(right)
	if !lok || !rok {
		return nil, fmt.Errorf("operands of %s must be numeric, got %T and %T", op, left, right)
	}
	out := new(uint256.Int)
	switch op {
	case "+":
		out.Add(l, r)
	case "-":
		out.Sub(l, r)
	case "*":
		out.Mul(l, r)
	case "/":
		if r.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		out.Div(l, r)
	case "%":
		if r.IsZero() {
			return nil, fmt.Errorf("modulo by zero")
		}
		out.Mod(l, r)
	}
	return out, nil
}

func evalRelational(op string, left, right any) (any, error) {
	l, lok := toU256(left)
	r, rok := toU256(right)
	if !lok || !rok {
		return nil, fmt.Errorf("operands of %s must be numeric, got %T and %T", op, left, right)
	}
	cmp := l.Cmp(r)
	switch op {
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	}
	return nil, fmt.Errorf("unknown operator: %s", op)
}

func equalValues(left, right any) (bool, error) {
	if l, ok := toU256(left); ok {
		if r, ok := toU256(right); ok {
			return l.Eq(r), nil
		}
	}
	if l, ok := left.(string); ok {
		if r, ok := right.(string); ok {
			return l == r, nil
		}
	}
	if l, ok := left.(bool); ok {
		if r, ok := right.(bool); ok {
			return l == r, nil
		}
	}
	return false, fmt.Errorf("cannot compare %T and %T", left, right)
}

// evalIndex reads a map entry with contract semantics: a missing key
// reads zero, and indexing the zero produced by a missing outer key
// reads zero again, so allowances[absent][x] is 0 rather than an error.
func evalIndex(obj, index any) (any, error) {
	// Indexing into the default value of a missing outer key.
	if obj == nil {
		return new(uint256.Int), nil
	}
	if _, ok := obj.(*uint256.Int); ok {
		return new(uint256.Int), nil
	}

	m, ok := obj.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot index type %T", obj)
	}
	key, ok := index.(string)
	if !ok {
		return nil, fmt.Errorf("map index must be a string, got %T", index)
	}
	val, exists := m[key]
	if !exists {
		return new(uint256.Int), nil
	}
	return val, nil
}

func toBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case *uint256.Int:
		// Nonzero is true, matching contract flag reads.
		return !val.IsZero(), true
	}
	return false, false
}

func toU256(v any) (*uint256.Int, bool) {
	switch val := v.(type) {
	case *uint256.Int:
		return val, true
	case uint64:
		return uint256.NewInt(val), true
	case string:
		out := new(uint256.Int)
		if err := out.SetFromDecimal(val); err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}
