package guard

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// Compiled is a parsed guard expression ready for repeated evaluation.
type Compiled struct {
	expr string
	ast  Node
}

// Compile parses a guard expression.
func Compile(expr string) (*Compiled, error) {
	if expr == "" {
		return nil, fmt.Errorf("guard: empty expression")
	}
	ast, err := NewParser(expr).Parse()
	if err != nil {
		return nil, fmt.Errorf("guard: parse %q: %w", expr, err)
	}
	return &Compiled{expr: expr, ast: ast}, nil
}

// String returns the original expression.
func (c *Compiled) String() string {
	return c.expr
}

// AST returns the parsed tree.
func (c *Compiled) AST() Node {
	return c.ast
}

// Eval evaluates the compiled expression to a boolean. The context is
// built fresh per call, so caller maps are never written to.
func (c *Compiled) Eval(bindings map[string]any, funcs map[string]Func) (bool, error) {
	ctx := NewContext()
	for k, v := range bindings {
		ctx.Bindings[k] = v
	}
	for k, v := range funcs {
		ctx.Funcs[k] = v
	}
	addBuiltins(ctx)

	result, err := Eval(c.ast, ctx)
	if err != nil {
		return false, fmt.Errorf("guard: eval %q: %w", c.expr, err)
	}
	b, ok := toBool(result)
	if !ok {
		return false, fmt.Errorf("guard: %q evaluated to %T, want boolean", c.expr, result)
	}
	return b, nil
}

// Evaluate parses and evaluates an expression in one step.
// An empty expression always passes.
func Evaluate(expr string, bindings map[string]any, funcs map[string]Func) (bool, error) {
	if expr == "" {
		return true, nil
	}
	compiled, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return compiled.Eval(bindings, funcs)
}

// addBuiltins installs the standard functions unless overridden.
func addBuiltins(ctx *Context) {
	if _, exists := ctx.Funcs["address"]; !exists {
		ctx.Funcs["address"] = addressFunc
	}
	if _, exists := ctx.Funcs["sum"]; !exists {
		ctx.Funcs["sum"] = sumFunc
	}
	if _, exists := ctx.Funcs["count"]; !exists {
		ctx.Funcs["count"] = countFunc
	}
}

// addressFunc renders address(n) as 0x-prefixed 40-digit hex, so
// address(0) is the zero address.
func addressFunc(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("address() takes exactly 1 argument")
	}
	n, ok := toU256(args[0])
	if !ok {
		return nil, fmt.Errorf("address() argument must be numeric, got %T", args[0])
	}
	b := n.Bytes20()
	return "0x" + hex.EncodeToString(b[:]), nil
}

// sumFunc adds every value of a flat map binding.
func sumFunc(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("sum() takes exactly 1 argument")
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("sum() argument must be a map, got %T", args[0])
	}
	total := new(uint256.Int)
	for key, v := range m {
		n, ok := toU256(v)
		if !ok {
			return nil, fmt.Errorf("sum(): value at %q is %T, not numeric", key, v)
		}
		total.Add(total, n)
	}
	return total, nil
}

// countFunc counts the entries of a map binding.
func countFunc(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("count() takes exactly 1 argument")
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("count() argument must be a map, got %T", args[0])
	}
	return uint256.NewInt(uint64(len(m))), nil
}
