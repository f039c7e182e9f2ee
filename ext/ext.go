// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ext implements typed stanza extensions and the registry that parses
// them out of incoming stanzas.
//
// Each extension type provides a Prototype that knows which stanza children it
// is interested in (through a filter string) and how to parse them.
// When a stanza is received every direct child is offered to the registered
// prototypes in registration order; the first prototype whose filter matches
// parses the child and the result is attached to the stanza.
package ext // import "mellium.im/jabberkit/ext"

import (
	"encoding/xml"
)

// Extension is a parsed stanza child.
type Extension interface {
	// Kind returns the stable tag of the extension type.
	Kind() Kind

	// TokenReader serializes the extension.
	// It may return nil if the extension has nothing to serialize.
	TokenReader() xml.TokenReader

	// Clone returns a deep copy of the extension.
	Clone() Extension
}

// Prototype creates extensions of a single kind from stanza children.
type Prototype interface {
	Kind() Kind

	// Filter returns the filter expression that selects stanza children handled
	// by this prototype, see ParseFilter.
	Filter() string

	// New parses the element beginning with start out of d.
	// An error drops the element without affecting the rest of the stanza.
	New(d *xml.Decoder, start *xml.StartElement) (Extension, error)
}

// PrototypeFunc returns a Prototype for kind k using filter f and the parse
// function.
func PrototypeFunc(k Kind, f string, parse func(*xml.Decoder, *xml.StartElement) (Extension, error)) Prototype {
	return protoFunc{kind: k, filter: f, parse: parse}
}

type protoFunc struct {
	kind   Kind
	filter string
	parse  func(*xml.Decoder, *xml.StartElement) (Extension, error)
}

func (p protoFunc) Kind() Kind     { return p.kind }
func (p protoFunc) Filter() string { return p.filter }
func (p protoFunc) New(d *xml.Decoder, start *xml.StartElement) (Extension, error) {
	return p.parse(d, start)
}

// Decode returns a Prototype that decodes matching elements into a new value
// of type T using the xml package.
func Decode[T any, PT interface {
	*T
	Extension
}](k Kind, filter string) Prototype {
	return PrototypeFunc(k, filter, func(d *xml.Decoder, start *xml.StartElement) (Extension, error) {
		v := PT(new(T))
		if err := d.DecodeElement(v, start); err != nil {
			return nil, err
		}
		return v, nil
	})
}
