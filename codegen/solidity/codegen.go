// Package solidity renders a contract schema as a Solidity source
// file. Schema states become storage variables, guarded actions become
// functions with require statements, declared roles become access
// control, and action events map to the conventional token event names.
package solidity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pflow-xyz/go-mona/schema"
)

// Generate produces the Solidity contract the schema describes.
func Generate(s *schema.Schema) string {
	return newGenerator(s).generate()
}

type generator struct {
	schema *schema.Schema
	states map[string]bool

	// Event declarations in first-use order, one per wire name.
	events     []*eventDef
	eventIndex map[string]*eventDef
}

type eventDef struct {
	name   string
	fields []eventField
}

type eventField struct {
	name    string
	typ     string
	indexed bool
}

// eventArg pairs an event field with the expression emitted for it at
// one particular call site.
type eventArg struct {
	field eventField
	expr  string
}

func newGenerator(s *schema.Schema) *generator {
	states := make(map[string]bool, len(s.States))
	for _, st := range s.States {
		states[st.ID] = true
	}
	g := &generator{
		schema:     s,
		states:     states,
		eventIndex: make(map[string]*eventDef),
	}
	for _, action := range s.Actions {
		g.registerEvent(action)
	}
	return g
}

func (g *generator) generate() string {
	var b strings.Builder

	b.WriteString("// SPDX-License-Identifier: MIT\n")
	b.WriteString("pragma solidity ^0.8.20;\n\n")

	b.WriteString(fmt.Sprintf("/// @title %s\n", g.schema.Name))
	b.WriteString(fmt.Sprintf("/// @notice Generated from the contract schema (version %s)\n", g.schema.Version))
	b.WriteString("/// @dev Auto-generated. Edits will be overwritten; change the schema instead.\n")

	b.WriteString(fmt.Sprintf("contract %s {\n", toContractName(g.schema.Name)))

	b.WriteString(g.generateMetadata())
	b.WriteString(g.generateAccessControl())
	b.WriteString(g.generateStateVariables())
	b.WriteString(g.generateEvents())
	b.WriteString(g.generateConstructor())

	for _, action := range g.schema.Actions {
		b.WriteString(g.generateFunction(action))
	}

	b.WriteString(g.generateViewFunctions())

	b.WriteString("}\n")

	return b.String()
}

// generateMetadata emits the token identity constants. The symbol is
// the flavor prefix of the schema version when it looks like a ticker;
// decimals follow the 18-decimal convention for balance-carrying
// schemas.
func (g *generator) generateMetadata() string {
	var b strings.Builder
	b.WriteString("    // ============ Metadata ============\n\n")
	b.WriteString(fmt.Sprintf("    string public constant name = %q;\n", g.schema.Name))

	if symbol := symbolFromVersion(g.schema.Version); symbol != "" {
		b.WriteString(fmt.Sprintf("    string public constant symbol = %q;\n", symbol))
	}
	if g.states["balances"] {
		b.WriteString("    uint8 public constant decimals = 18;\n")
	}

	b.WriteString("\n")
	return b.String()
}

func (g *generator) generateAccessControl() string {
	if len(g.schema.Roles) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("    // ============ Access Control ============\n\n")

	for _, role := range g.schema.Roles {
		b.WriteString(fmt.Sprintf("    bytes32 public constant %s = keccak256(%q);\n", roleConstant(role), role))
	}
	b.WriteString("\n")

	b.WriteString("    error Unauthorized();\n\n")
	b.WriteString("    modifier onlyRole(bytes32 role) {\n")
	b.WriteString("        if (!roles[role][msg.sender]) revert Unauthorized();\n")
	b.WriteString("        _;\n")
	b.WriteString("    }\n\n")

	return b.String()
}

func (g *generator) generateStateVariables() string {
	var b strings.Builder
	b.WriteString("    // ============ State Variables ============\n\n")

	for _, state := range g.schema.States {
		visibility := "internal"
		if state.Exported {
			visibility = "public"
		}
		b.WriteString(fmt.Sprintf("    %s %s %s;\n", toSolidityType(state.Type), visibility, state.ID))
	}

	b.WriteString("\n")
	return b.String()
}

func (g *generator) generateEvents() string {
	if len(g.events) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("    // ============ Events ============\n\n")

	for _, ev := range g.events {
		parts := make([]string, len(ev.fields))
		for i, f := range ev.fields {
			if f.indexed {
				parts[i] = fmt.Sprintf("%s indexed %s", f.typ, f.name)
			} else {
				parts[i] = fmt.Sprintf("%s %s", f.typ, f.name)
			}
		}
		b.WriteString(fmt.Sprintf("    event %s(%s);\n", ev.name, strings.Join(parts, ", ")))
	}

	b.WriteString("\n")
	return b.String()
}

// generateConstructor bootstraps the declared initial state: every
// declared role is granted to the deployer, and a balance-carrying
// schema credits the initial supply to the deployer so the declared
// conservation constraint holds from the first block.
func (g *generator) generateConstructor() string {
	var lines []string

	if g.states["roles"] {
		granted := g.eventIndex["RoleGranted"]
		for _, role := range g.schema.Roles {
			lines = append(lines, fmt.Sprintf("roles[%s][msg.sender] = true;", roleConstant(role)))
			if granted != nil {
				lines = append(lines, fmt.Sprintf("emit RoleGranted(%s, msg.sender, msg.sender);", roleConstant(role)))
			}
		}
	}

	for _, state := range g.schema.States {
		init := state.Initial
		if init == "" || init == "0" || init == "false" || isMapType(state.Type) {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, fmt.Sprintf("%s = %s;", state.ID, init))

		if state.ID == "totalSupply" && g.states["balances"] {
			// Initial supply is credited to the deployer.
			lines = append(lines, fmt.Sprintf("balances[msg.sender] = %s;", init))
			if mint := g.actionEventName("mint"); mint != "" {
				lines = append(lines, fmt.Sprintf("emit %s(msg.sender, %s);", mint, init))
			}
		}
	}

	if len(lines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("    // ============ Constructor ============\n\n")
	b.WriteString("    constructor() {\n")
	for _, line := range lines {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(fmt.Sprintf("        %s\n", line))
	}
	b.WriteString("    }\n\n")
	return b.String()
}

func (g *generator) generateFunction(action schema.Action) string {
	var b strings.Builder

	inputOps, outputOps := g.generateArcOperations(action.ID)
	flagOps := g.generateFlagOperations(action.ID)
	params := g.functionParams(action, flagOps)

	modifier := ""
	if action.Requires != "" {
		modifier = fmt.Sprintf(" onlyRole(%s)", roleConstant(action.Requires))
	}

	b.WriteString(fmt.Sprintf("    // ============ %s ============\n\n", action.ID))
	b.WriteString(fmt.Sprintf("    function %s(%s) external%s {\n", action.ID, params, modifier))

	requires := g.guardRequires(action)
	for _, req := range requires {
		b.WriteString(fmt.Sprintf("        %s\n", req))
	}
	if len(requires) > 0 && (len(inputOps)+len(outputOps)+len(flagOps)) > 0 {
		b.WriteString("\n")
	}

	for _, op := range inputOps {
		b.WriteString(fmt.Sprintf("        %s\n", op))
	}
	for _, op := range outputOps {
		b.WriteString(fmt.Sprintf("        %s\n", op))
	}
	for _, op := range flagOps {
		b.WriteString(fmt.Sprintf("        %s\n", op))
	}

	if name, args := g.emitFor(action); name != "" {
		b.WriteString(fmt.Sprintf("\n        emit %s(%s);\n", name, args))
	}

	b.WriteString("    }\n\n")
	return b.String()
}

// guardRequires translates the action guard into require statements,
// one per top-level conjunct. A guard that fails to parse falls back to
// the plain text translation.
func (g *generator) guardRequires(action schema.Action) []string {
	if action.Guard == "" {
		return nil
	}
	translator := NewGuardTranslator(g.states)
	requires, err := translator.TranslateGuard(action.Guard)
	if err != nil {
		return translateGuardText(action.Guard)
	}
	return requires
}

// generateArcOperations renders the storage writes an action performs:
// state→action arcs debit, action→state arcs credit. Keyed writes index
// into the map with the arc's bindings.
func (g *generator) generateArcOperations(actionID string) (inputs []string, outputs []string) {
	for _, arc := range g.schema.InputArcs(actionID) {
		state := g.schema.StateByID(arc.Source)
		if state == nil {
			continue
		}

		accessor := buildAccessor(arc.Source, arc.Keys)
		value := arcValue(arc)

		if state.ID == "allowances" {
			// An infinite allowance is never drawn down.
			inputs = append(inputs,
				fmt.Sprintf("if (%s != type(uint256).max) {", accessor),
				fmt.Sprintf("    %s -= %s;", accessor, value),
				"}")
			continue
		}
		inputs = append(inputs, fmt.Sprintf("%s -= %s;", accessor, value))
	}

	for _, arc := range g.schema.OutputArcs(actionID) {
		state := g.schema.StateByID(arc.Target)
		if state == nil {
			continue
		}

		accessor := buildAccessor(arc.Target, arc.Keys)
		value := arcValue(arc)

		switch {
		case mapValueType(state.Type) == "bool":
			outputs = append(outputs, fmt.Sprintf("%s = true;", accessor))
		case isSetterAction(actionID):
			// approve overwrites the allowance rather than accumulating it.
			outputs = append(outputs, fmt.Sprintf("%s = %s;", accessor, value))
		default:
			outputs = append(outputs, fmt.Sprintf("%s += %s;", accessor, value))
		}
	}

	return inputs, outputs
}

// generateFlagOperations renders the writes of the arc-less actions:
// pause and unpause toggle the paused flag, grantRole and revokeRole
// edit role membership. Role edits check the role against the declared
// set first, mirroring the ledger.
func (g *generator) generateFlagOperations(actionID string) []string {
	switch actionID {
	case "pause":
		if g.states["paused"] {
			return []string{"paused = true;"}
		}
	case "unpause":
		if g.states["paused"] {
			return []string{"paused = false;"}
		}
	case "grantRole":
		if g.states["roles"] {
			return append(g.knownRoleCheck(), "roles[role][account] = true;")
		}
	case "revokeRole":
		if g.states["roles"] {
			return append(g.knownRoleCheck(), "roles[role][account] = false;")
		}
	}
	return nil
}

func (g *generator) knownRoleCheck() []string {
	if len(g.schema.Roles) == 0 {
		return nil
	}
	parts := make([]string, len(g.schema.Roles))
	for i, role := range g.schema.Roles {
		parts[i] = fmt.Sprintf("role == %s", roleConstant(role))
	}
	return []string{fmt.Sprintf("require(%s, \"unknown role\");", strings.Join(parts, " || "))}
}

// isSetterAction marks actions whose keyed write replaces the cell
// instead of adding to it.
func isSetterAction(actionID string) bool {
	return actionID == "approve"
}

// functionParams collects the bindings an action needs as Solidity
// parameters: arc keys and values, guard identifiers, and the bindings
// its flag operations reference. The caller binding is msg.sender and
// never becomes a parameter.
func (g *generator) functionParams(action schema.Action, flagOps []string) string {
	params := make(map[string]string)

	collect := func(arc schema.Arc) {
		for _, key := range arc.Keys {
			params[key] = inferParamType(key)
		}
		params[arcValue(arc)] = inferParamType(arcValue(arc))
	}
	for _, arc := range g.schema.InputArcs(action.ID) {
		collect(arc)
	}
	for _, arc := range g.schema.OutputArcs(action.ID) {
		collect(arc)
	}

	if action.Guard != "" {
		translator := NewGuardTranslator(g.states)
		if guardParams, err := translator.ExtractParameters(action.Guard); err == nil {
			for name, typ := range guardParams {
				params[name] = typ
			}
		}
	}

	for name, typ := range flagOpParams(flagOps) {
		params[name] = typ
	}

	delete(params, "caller")
	for id := range g.states {
		delete(params, id)
	}

	return formatParams(params)
}

// flagOpParams finds bindings referenced by flag operations that must
// become parameters.
func flagOpParams(ops []string) map[string]string {
	known := []string{"role", "account"}
	params := make(map[string]string)
	joined := strings.Join(ops, " ")
	for _, name := range known {
		if containsWord(joined, name) {
			params[name] = inferParamType(name)
		}
	}
	return params
}

func formatParams(params map[string]string) string {
	order := []string{"from", "to", "owner", "spender", "role", "account", "amount"}
	seen := make(map[string]bool)
	var parts []string

	for _, name := range order {
		if typ, ok := params[name]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", typ, name))
			seen[name] = true
		}
	}

	var rest []string
	for name := range params {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		parts = append(parts, fmt.Sprintf("%s %s", params[name], name))
	}

	return strings.Join(parts, ", ")
}

// registerEvent records the Solidity event an action emits. Actions
// sharing a wire name share one declaration; the first emitter fixes
// the field list, so transfer and transferFrom both emit the two-party
// Transfer event.
func (g *generator) registerEvent(action schema.Action) {
	name := eventName(action)
	if name == "" || g.eventIndex[name] != nil {
		return
	}
	args := g.actionEventArgs(action)
	if len(args) == 0 {
		return
	}
	ev := &eventDef{name: name}
	for _, a := range args {
		ev.fields = append(ev.fields, a.field)
	}
	g.events = append(g.events, ev)
	g.eventIndex[name] = ev
}

// actionEventArgs derives the event payload from the action's effect.
// The debited balance key is the from party, the credited key the to
// party, and an allowance write names owner and spender. Arc-less
// actions use the fixed payloads of the pause and role events.
func (g *generator) actionEventArgs(action schema.Action) []eventArg {
	if args := flagEventArgs(action.ID); args != nil {
		return args
	}

	var args []eventArg
	value := "amount"

	for _, arc := range g.schema.InputArcs(action.ID) {
		value = arcValue(arc)
		if arc.Source == "balances" && len(arc.Keys) == 1 {
			args = append(args, eventArg{eventField{"from", "address", true}, bindingExpr(arc.Keys[0])})
		}
	}
	for _, arc := range g.schema.OutputArcs(action.ID) {
		value = arcValue(arc)
		switch {
		case arc.Target == "balances" && len(arc.Keys) == 1:
			args = append(args, eventArg{eventField{"to", "address", true}, bindingExpr(arc.Keys[0])})
		case arc.Target == "allowances" && len(arc.Keys) == 2:
			args = append(args,
				eventArg{eventField{"owner", "address", true}, bindingExpr(arc.Keys[0])},
				eventArg{eventField{"spender", "address", true}, bindingExpr(arc.Keys[1])})
		}
	}

	if len(g.schema.InputArcs(action.ID))+len(g.schema.OutputArcs(action.ID)) > 0 {
		args = append(args, eventArg{eventField{value, "uint256", false}, value})
	}

	return args
}

func flagEventArgs(actionID string) []eventArg {
	switch actionID {
	case "pause", "unpause":
		return []eventArg{{eventField{"account", "address", false}, "msg.sender"}}
	case "grantRole", "revokeRole":
		return []eventArg{
			{eventField{"role", "bytes32", true}, "role"},
			{eventField{"account", "address", true}, "account"},
			{eventField{"sender", "address", false}, "msg.sender"},
		}
	}
	return nil
}

// emitFor returns the event name and argument list for an action's
// emit statement, empty when the action declares no event payload.
func (g *generator) emitFor(action schema.Action) (string, string) {
	name := eventName(action)
	if name == "" || g.eventIndex[name] == nil {
		return "", ""
	}
	args := g.actionEventArgs(action)
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.expr
	}
	return name, strings.Join(parts, ", ")
}

func (g *generator) actionEventName(actionID string) string {
	action := g.schema.ActionByID(actionID)
	if action == nil {
		return ""
	}
	name := eventName(*action)
	if g.eventIndex[name] == nil {
		return ""
	}
	return name
}

func (g *generator) generateViewFunctions() string {
	var b strings.Builder

	for _, state := range g.schema.States {
		if !state.Exported {
			// Internal simple states still get a read path.
			if !isMapType(state.Type) {
				b.WriteString(fmt.Sprintf("    function get%s() external view returns (%s) {\n",
					capitalize(state.ID), toSolidityType(state.Type)))
				b.WriteString(fmt.Sprintf("        return %s;\n", state.ID))
				b.WriteString("    }\n\n")
			}
			continue
		}

		switch state.ID {
		case "balances":
			b.WriteString("    function balanceOf(address account) external view returns (uint256) {\n")
			b.WriteString("        return balances[account];\n")
			b.WriteString("    }\n\n")
		case "allowances":
			b.WriteString("    function allowance(address owner, address spender) external view returns (uint256) {\n")
			b.WriteString("        return allowances[owner][spender];\n")
			b.WriteString("    }\n\n")
		case "roles":
			b.WriteString("    function hasRole(bytes32 role, address account) external view returns (bool) {\n")
			b.WriteString("        return roles[role][account];\n")
			b.WriteString("    }\n\n")
		}
	}

	if b.Len() == 0 {
		return ""
	}
	return "    // ============ View Functions ============\n\n" + b.String()
}

// wireEventNames maps the ledger's wire event names to the
// conventional Solidity event names.
var wireEventNames = map[string]string{
	"transfer-occurred": "Transfer",
	"approval-set":      "Approval",
	"mint-occurred":     "Mint",
	"burn-occurred":     "Burn",
	"paused":            "Paused",
	"unpaused":          "Unpaused",
	"role-granted":      "RoleGranted",
	"role-revoked":      "RoleRevoked",
}

func eventName(action schema.Action) string {
	wire := action.Emits
	if wire == "" {
		return capitalize(action.ID)
	}
	if name, ok := wireEventNames[wire]; ok {
		return name
	}
	return kebabToPascal(wire)
}

func kebabToPascal(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// symbolFromVersion extracts the ticker prefix from versions like
// "MONA:1.0.0", empty when the version carries none.
func symbolFromVersion(version string) string {
	prefix, _, found := strings.Cut(version, ":")
	if !found {
		return ""
	}
	if !tickerPattern.MatchString(prefix) {
		return ""
	}
	return prefix
}

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

var mapPattern = regexp.MustCompile(`^map\[([^\]]+)\](.+)$`)

// toSolidityType converts a schema type to its Solidity rendering.
// Nested maps become nested mappings; set[K] is a membership mapping.
func toSolidityType(schemaType string) string {
	switch schemaType {
	case "", "uint256":
		return "uint256"
	case "bool":
		return "bool"
	case "address":
		return "address"
	case "role":
		return "bytes32"
	}

	if strings.HasPrefix(schemaType, "set[") && strings.HasSuffix(schemaType, "]") {
		key := schemaType[len("set[") : len(schemaType)-1]
		return fmt.Sprintf("mapping(%s => bool)", toSolidityType(key))
	}

	if matches := mapPattern.FindStringSubmatch(schemaType); len(matches) == 3 {
		return fmt.Sprintf("mapping(%s => %s)", toSolidityType(matches[1]), toSolidityType(matches[2]))
	}

	return schemaType
}

// mapValueType returns the innermost value type of a map or set type,
// empty for plain types.
func mapValueType(schemaType string) string {
	if strings.HasPrefix(schemaType, "set[") {
		return "bool"
	}
	matches := mapPattern.FindStringSubmatch(schemaType)
	if len(matches) != 3 {
		return ""
	}
	inner := matches[2]
	if strings.HasPrefix(inner, "map[") || strings.HasPrefix(inner, "set[") {
		return mapValueType(inner)
	}
	return inner
}

func isMapType(t string) bool {
	return strings.HasPrefix(t, "map[") || strings.HasPrefix(t, "set[")
}

func buildAccessor(stateID string, keys []string) string {
	accessor := stateID
	for _, key := range keys {
		accessor += fmt.Sprintf("[%s]", bindingExpr(key))
	}
	return accessor
}

// bindingExpr renders a binding name as a Solidity expression. The
// caller binding is always msg.sender.
func bindingExpr(name string) string {
	if name == "caller" {
		return "msg.sender"
	}
	return name
}

func arcValue(arc schema.Arc) string {
	if arc.Value != "" {
		return arc.Value
	}
	return "amount"
}

func roleConstant(role string) string {
	return strings.ToUpper(role) + "_ROLE"
}

func toContractName(name string) string {
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, " ", "")
	return name
}

func inferParamType(name string) string {
	switch name {
	case "from", "to", "owner", "spender", "account", "operator", "receiver":
		return "address"
	case "role":
		return "bytes32"
	case "approved":
		return "bool"
	default:
		return "uint256"
	}
}

// containsWord reports whether code contains name as a whole word.
func containsWord(code, name string) bool {
	idx := 0
	for {
		pos := strings.Index(code[idx:], name)
		if pos == -1 {
			return false
		}
		pos += idx

		if pos > 0 && isWordChar(code[pos-1]) {
			idx = pos + 1
			continue
		}
		if end := pos + len(name); end < len(code) && isWordChar(code[end]) {
			idx = pos + 1
			continue
		}
		return true
	}
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
