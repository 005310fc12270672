package solidity

import (
	"fmt"
	"strings"

	"github.com/pflow-xyz/go-mona/guard"
)

// GuardTranslator converts parsed guard expressions to Solidity
// require statements. It knows the schema's state IDs so that storage
// reads are not mistaken for function parameters.
type GuardTranslator struct {
	states map[string]bool

	// Parameters discovered during translation (name -> Solidity type).
	Parameters map[string]string
}

// NewGuardTranslator creates a translator for a schema whose state IDs
// are the given set.
func NewGuardTranslator(states map[string]bool) *GuardTranslator {
	return &GuardTranslator{
		states:     states,
		Parameters: make(map[string]string),
	}
}

// TranslateGuard parses a guard expression and returns one require
// statement per top-level conjunct. It also records the parameters the
// expression references.
func (t *GuardTranslator) TranslateGuard(expr string) ([]string, error) {
	if expr == "" {
		return nil, nil
	}

	compiled, err := guard.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("solidity: guard %q: %w", expr, err)
	}

	var requires []string
	for _, clause := range t.splitAnd(compiled.AST()) {
		solExpr := t.translateNode(clause)
		errMsg := t.errorMessage(clause)
		requires = append(requires, fmt.Sprintf("require(%s, %q);", solExpr, errMsg))
	}

	return requires, nil
}

// splitAnd flattens top-level && chains so each conjunct becomes its
// own require statement.
func (t *GuardTranslator) splitAnd(node guard.Node) []guard.Node {
	if binOp, ok := node.(*guard.BinaryOp); ok && binOp.Op == "&&" {
		return append(t.splitAnd(binOp.Left), t.splitAnd(binOp.Right)...)
	}
	return []guard.Node{node}
}

// translateNode renders an AST node as a Solidity expression.
func (t *GuardTranslator) translateNode(node guard.Node) string {
	switch n := node.(type) {
	case *guard.BinaryOp:
		return fmt.Sprintf("%s %s %s", t.translateNode(n.Left), n.Op, t.translateNode(n.Right))

	case *guard.UnaryOp:
		operand := t.translateNode(n.Operand)
		if _, binary := n.Operand.(*guard.BinaryOp); binary {
			return fmt.Sprintf("%s(%s)", n.Op, operand)
		}
		return n.Op + operand

	case *guard.IndexExpr:
		return fmt.Sprintf("%s[%s]", t.translateNode(n.Object), t.translateNode(n.Index))

	case *guard.CallExpr:
		args := make([]string, len(n.Args))
		for i, arg := range n.Args {
			args[i] = t.translateNode(arg)
		}
		return fmt.Sprintf("%s(%s)", n.Func, strings.Join(args, ", "))

	case *guard.Identifier:
		if n.Name == "caller" {
			return "msg.sender"
		}
		if !t.states[n.Name] {
			t.Parameters[n.Name] = inferParamType(n.Name)
		}
		return n.Name

	case *guard.NumberLit:
		return n.Value.Dec()

	case *guard.StringLit:
		return fmt.Sprintf("%q", n.Value)

	case *guard.BoolLit:
		if n.Value {
			return "true"
		}
		return "false"

	default:
		return fmt.Sprintf("/* unknown node: %T */", node)
	}
}

// errorMessage derives the revert reason for a guard clause from its
// shape: balance and allowance comparisons, zero-address checks, the
// pause flag, and caller identity checks all get conventional wording.
func (t *GuardTranslator) errorMessage(node guard.Node) string {
	switch n := node.(type) {
	case *guard.BinaryOp:
		if n.Op == ">=" {
			switch t.rootIdentifier(n.Left) {
			case "balances":
				return "insufficient balance"
			case "allowances":
				return "insufficient allowance"
			}
		}

		if n.Op == "!=" {
			if call, ok := n.Right.(*guard.CallExpr); ok && call.Func == "address" {
				if len(call.Args) == 1 {
					if num, ok := call.Args[0].(*guard.NumberLit); ok && num.Value.IsZero() {
						return "zero address"
					}
				}
			}
		}

		if n.Op == "==" || n.Op == "||" {
			left := t.translateNode(n.Left)
			if strings.Contains(left, "msg.sender") {
				return "not authorized"
			}
		}

		return t.shortExpr(node)

	case *guard.UnaryOp:
		if n.Op == "!" && t.rootIdentifier(n.Operand) == "paused" {
			return "paused"
		}
		return t.shortExpr(node)

	case *guard.Identifier:
		if n.Name == "paused" {
			return "not paused"
		}
		return t.shortExpr(node)

	default:
		return "precondition failed"
	}
}

func (t *GuardTranslator) shortExpr(node guard.Node) string {
	expr := t.translateNode(node)
	if len(expr) > 40 {
		return "precondition failed"
	}
	return expr
}

// ExtractParameters returns the parameter names a guard expression
// references, excluding storage reads and the caller.
func (t *GuardTranslator) ExtractParameters(expr string) (map[string]string, error) {
	if expr == "" {
		return nil, nil
	}

	compiled, err := guard.Compile(expr)
	if err != nil {
		return nil, err
	}

	t.Parameters = make(map[string]string)
	t.walkNode(compiled.AST())
	delete(t.Parameters, "caller")

	return t.Parameters, nil
}

func (t *GuardTranslator) walkNode(node guard.Node) {
	switch n := node.(type) {
	case *guard.BinaryOp:
		t.walkNode(n.Left)
		t.walkNode(n.Right)

	case *guard.UnaryOp:
		t.walkNode(n.Operand)

	case *guard.IndexExpr:
		t.walkNode(n.Object)
		t.walkNode(n.Index)

	case *guard.CallExpr:
		for _, arg := range n.Args {
			t.walkNode(arg)
		}

	case *guard.Identifier:
		if !t.states[n.Name] {
			t.Parameters[n.Name] = inferParamType(n.Name)
		}
	}
}

// rootIdentifier unwraps nested index expressions to the underlying
// identifier name, empty for other shapes.
func (t *GuardTranslator) rootIdentifier(node guard.Node) string {
	switch n := node.(type) {
	case *guard.Identifier:
		return n.Name
	case *guard.IndexExpr:
		return t.rootIdentifier(n.Object)
	default:
		return ""
	}
}

// translateGuardText is the fallback for guards the parser rejects:
// split on && and rewrite each conjunct textually.
func translateGuardText(expr string) []string {
	var requires []string
	for _, part := range strings.Split(expr, "&&") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		solExpr := strings.ReplaceAll(part, "caller", "msg.sender")
		requires = append(requires, fmt.Sprintf("require(%s, %q);", solExpr, "precondition failed"))
	}
	return requires
}
