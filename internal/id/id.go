// Package id provides the opaque identifiers used for every persistent
// entity in a project: projects, assets, tracks and clips.
//
// Identifiers are backed by github.com/google/uuid rather than a
// hand-rolled random-byte generator; uuid.New already gives us a
// cryptographically strong 128-bit value, canonical lowercase-hyphenated
// string form, and well-defined equality, so there is nothing left for
// the core to reinvent.
package id

import "github.com/google/uuid"

// ID is an opaque, globally unique, value-equatable identifier.
type ID struct {
	v uuid.UUID
}

// Nil is the zero ID. A zero-value ID is never returned by New and is
// used as a sentinel for "no id" where a field is optional.
var Nil ID

// New generates a fresh identifier from a cryptographically strong
// randomness source.
func New() ID {
	return ID{v: uuid.New()}
}

// Source mints fresh identifiers. It is injected into pkg/project's
// constructor (spec.md §6: "injected clock and id source") so tests
// can pin id generation to a deterministic sequence.
type Source interface {
	New() ID
}

type systemSource struct{}

func (systemSource) New() ID { return New() }

// System is the production Source, backed by New.
var System Source = systemSource{}

// Parse reconstructs an ID from its canonical lowercase-hyphenated form.
func Parse(s string) (ID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID{v: v}, nil
}

// String returns the canonical lowercase-hyphenated hexadecimal form.
func (id ID) String() string {
	return id.v.String()
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id.v == uuid.Nil
}

// Compare returns -1, 0 or 1 for lexicographic ordering on the
// canonical string form, so IDs can be sorted deterministically
// wherever ordering only needs to be stable, not meaningful.
func (id ID) Compare(other ID) int {
	a, b := id.String(), other.String()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as
// plain strings in YAML/JSON documents.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}

// MarshalYAML implements yaml.Marshaler (gopkg.in/yaml.v2) so IDs serialize
// as plain scalar strings in the project document.
func (id ID) MarshalYAML() (interface{}, error) {
	return id.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (id *ID) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*id = v
	return nil
}
