package schema

// Builder provides a fluent API for declaring contract schemas.
type Builder struct {
	schema *Schema

	// Track the current element for modifier methods.
	currentState  *State
	currentAction *Action
	currentArc    *Arc
}

// Build starts a new schema declaration with the given name.
func Build(name string) *Builder {
	return &Builder{schema: NewSchema(name)}
}

// Version sets the schema version.
func (b *Builder) Version(v string) *Builder {
	b.schema.Version = v
	return b
}

// Roles declares the role identifiers actions may require.
func (b *Builder) Roles(roles ...string) *Builder {
	b.schema.Roles = append(b.schema.Roles, roles...)
	return b
}

// Data adds a state with the given ID and type.
func (b *Builder) Data(id, typ string) *Builder {
	b.clearCurrent()
	b.schema.AddState(State{ID: id, Type: typ})
	b.currentState = &b.schema.States[len(b.schema.States)-1]
	return b
}

// Initial sets the initial value of the current state.
// Must be called after Data().
func (b *Builder) Initial(value string) *Builder {
	if b.currentState != nil {
		b.currentState.Initial = value
	}
	return b
}

// Exported marks the current state as part of the read surface.
// Must be called after Data().
func (b *Builder) Exported() *Builder {
	if b.currentState != nil {
		b.currentState.Exported = true
	}
	return b
}

// Action adds an action with the given ID.
func (b *Builder) Action(id string) *Builder {
	b.clearCurrent()
	b.schema.AddAction(Action{ID: id})
	b.currentAction = &b.schema.Actions[len(b.schema.Actions)-1]
	return b
}

// Guard sets the guard expression of the current action.
// Must be called after Action().
func (b *Builder) Guard(expr string) *Builder {
	if b.currentAction != nil {
		b.currentAction.Guard = expr
	}
	return b
}

// Requires sets the role gating the current action.
// Must be called after Action().
func (b *Builder) Requires(role string) *Builder {
	if b.currentAction != nil {
		b.currentAction.Requires = role
	}
	return b
}

// Emits names the event the current action emits.
// Must be called after Action().
func (b *Builder) Emits(event string) *Builder {
	if b.currentAction != nil {
		b.currentAction.Emits = event
	}
	return b
}

// Flow adds an arc from source to target.
func (b *Builder) Flow(source, target string) *Builder {
	b.clearCurrent()
	b.schema.AddArc(Arc{Source: source, Target: target})
	b.currentArc = &b.schema.Arcs[len(b.schema.Arcs)-1]
	return b
}

// Keys sets the map access keys of the current arc.
// Must be called after Flow().
func (b *Builder) Keys(keys ...string) *Builder {
	if b.currentArc != nil {
		b.currentArc.Keys = keys
	}
	return b
}

// Value sets the value binding of the current arc; "amount" when unset.
// Must be called after Flow().
func (b *Builder) Value(v string) *Builder {
	if b.currentArc != nil {
		b.currentArc.Value = v
	}
	return b
}

// Constraint adds a constraint with the given ID and expression.
func (b *Builder) Constraint(id, expr string) *Builder {
	b.clearCurrent()
	b.schema.AddConstraint(Constraint{ID: id, Expr: expr})
	return b
}

// Schema validates and returns the built schema.
func (b *Builder) Schema() (*Schema, error) {
	if err := b.schema.Validate(); err != nil {
		return nil, err
	}
	return b.schema, nil
}

// MustSchema validates and returns the built schema, panicking on error.
func (b *Builder) MustSchema() *Schema {
	s, err := b.Schema()
	if err != nil {
		panic(err)
	}
	return s
}

func (b *Builder) clearCurrent() {
	b.currentState = nil
	b.currentAction = nil
	b.currentArc = nil
}
