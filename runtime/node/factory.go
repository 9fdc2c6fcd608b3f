package node

import "github.com/arcrt/arc/errs"

// Factory constructs nodes of one or more type tags.
type Factory interface {
	// Handles reports whether this factory constructs nodes of typeTag.
	Handles(typeTag string) bool
	// Create constructs a node from cfg. Handles(cfg.Def.TypeTag) must be
	// true before calling Create.
	Create(cfg Config) (Node, error)
}

// FactoryFunc adapts a plain function to the Factory interface for a
// single type tag.
type FactoryFunc struct {
	TypeTag string
	Build   func(cfg Config) (Node, error)
}

func (f FactoryFunc) Handles(typeTag string) bool { return typeTag == f.TypeTag }

func (f FactoryFunc) Create(cfg Config) (Node, error) { return f.Build(cfg) }

// MultiFactory is the registry (C5): an ordered list of Factories. On
// Create it selects the first factory whose Handles is true, invokes it,
// and on error decorates the message with the offending node's key and
// type tag. If no factory handles the type tag, it returns a NotFound
// error.
type MultiFactory struct {
	factories []Factory
}

// NewMultiFactory builds a registry from zero or more factories, tried in
// the given order.
func NewMultiFactory(factories ...Factory) *MultiFactory {
	return &MultiFactory{factories: append([]Factory(nil), factories...)}
}

// Register appends a factory to the end of the lookup order.
func (m *MultiFactory) Register(f Factory) {
	m.factories = append(m.factories, f)
}

// Create dispatches cfg to the first registered factory that handles its
// type tag.
func (m *MultiFactory) Create(cfg Config) (Node, error) {
	for _, f := range m.factories {
		if !f.Handles(cfg.Def.TypeTag) {
			continue
		}
		n, err := f.Create(cfg)
		if err != nil {
			if re, ok := err.(*errs.Error); ok {
				return nil, re.WithNode(cfg.Def.Key, cfg.Def.TypeTag)
			}
			return nil, errs.Wrap(errs.InvalidConfig, err, "%s", err.Error()).WithNode(cfg.Def.Key, cfg.Def.TypeTag)
		}
		return n, nil
	}
	return nil, errs.New(errs.NotFound, "no factory registered for node type '%s'", cfg.Def.TypeTag).WithNode(cfg.Def.Key, cfg.Def.TypeTag)
}

// Handles reports whether any registered factory handles typeTag.
func (m *MultiFactory) Handles(typeTag string) bool {
	for _, f := range m.factories {
		if f.Handles(typeTag) {
			return true
		}
	}
	return false
}
