package loader

import (
	"maps"

	"github.com/artpar/deepgraph/core/edge"
)

// Declaration describes how to construct, or directly supply, a component.
//
// Recognised keys:
//
//	id          identifier used when registering (default: the lookup key)
//	module      module reference of the builder; absent means pure data
//	config      configuration handed to the builder (default: the whole declaration)
//	register    whether to register the component in the root
//	initialize  invoke "initialize" on the component after construction
type Declaration map[string]any

// ID returns the declared identifier, or "".
func (d Declaration) ID() string {
	s, _ := d["id"].(string)
	return s
}

// Module returns the module reference, or nil for a data declaration.
func (d Declaration) Module() any {
	return d["module"]
}

// IsData reports whether the declaration has no builder.
func (d Declaration) IsData() bool {
	return edge.IsBlank(d.Module())
}

// Config returns the builder configuration: the "config" entry when
// present, otherwise the declaration itself.
func (d Declaration) Config() any {
	if c, ok := d["config"]; ok && c != nil {
		return c
	}
	return map[string]any(d)
}

// Register returns the declared register flag and whether it is set.
func (d Declaration) Register() (bool, bool) {
	b, ok := d["register"].(bool)
	return b, ok
}

// Initialize reports whether the component wants an "initialize" call.
func (d Declaration) Initialize() bool {
	b, _ := d["initialize"].(bool)
	return b
}

// Clone returns a shallow copy.
func (d Declaration) Clone() Declaration {
	return maps.Clone(d)
}

// asDeclaration accepts the generic forms a declaration arrives in.
func asDeclaration(v any) (Declaration, bool) {
	switch d := v.(type) {
	case Declaration:
		return d, true
	case map[string]any:
		return Declaration(d), true
	}
	return nil, false
}
