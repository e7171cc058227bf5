package statestore

import (
	"log/slog"

	"github.com/catsltd/habridge/internal/coerce"
)

// Namespace scopes every read and write of a Store to a fixed namespace
// name and layers typed accessors on top of the raw string values. All
// entity code goes through a Namespace; the underlying Store is never
// handed out directly.
type Namespace struct {
	store  *Store
	name   string
	logger *slog.Logger
}

// NewNamespace binds a Store to a namespace name. The logger receives
// coercion failures from the typed getters.
func NewNamespace(store *Store, name string, logger *slog.Logger) *Namespace {
	return &Namespace{store: store, name: name, logger: logger}
}

// Name returns the namespace name.
func (n *Namespace) Name() string {
	return n.name
}

// Get returns an entity's primary state (attribute == "") or a named
// attribute. ok is false if nothing is stored yet.
func (n *Namespace) Get(entityID, attribute string) (value string, ok bool, err error) {
	return n.store.get(n.name, entityID, attribute)
}

// Set upserts an entity's primary state (attribute == "") or a named
// attribute.
func (n *Namespace) Set(entityID, attribute, value string) error {
	return n.store.set(n.name, entityID, attribute, value)
}

// GetFloat returns the stored value coerced to a float. A missing value
// yields def; a present but unparsable value is a coercion failure: it is
// logged and returned as an error so the caller skips the update instead of
// silently applying the default.
func (n *Namespace) GetFloat(entityID, attribute string, def float64) (float64, error) {
	value, ok, err := n.Get(entityID, attribute)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	f, err := coerce.Float(value)
	if err != nil {
		n.logger.Error("stored state is not a float",
			"entity", entityID, "attribute", attribute, "value", value)
		return 0, err
	}
	return f, nil
}

// GetBool returns the stored value coerced to a boolean, following the same
// missing-vs-unparsable contract as GetFloat.
func (n *Namespace) GetBool(entityID, attribute string, def bool) (bool, error) {
	value, ok, err := n.Get(entityID, attribute)
	if err != nil {
		return false, err
	}
	if !ok {
		return def, nil
	}
	b, err := coerce.Bool(value)
	if err != nil {
		n.logger.Error("stored state is not a bool",
			"entity", entityID, "attribute", attribute, "value", value)
		return false, err
	}
	return b, nil
}
