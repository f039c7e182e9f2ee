// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ext

import (
	"encoding/xml"
	"errors"
	"io"
	"sync"
)

type registered struct {
	proto   Prototype
	filters []Filter
}

// Registry holds the prototypes used to parse incoming stanzas.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	protos []registered
}

// NewRegistry returns a registry with the stanza error extension registered.
func NewRegistry() *Registry {
	r := &Registry{}
	err := r.Register(ErrorPrototype)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds a prototype to the registry.
// Registering a prototype for a kind that is already registered replaces the
// earlier prototype in its original position.
func (r *Registry) Register(p Prototype) error {
	filters, err := ParseFilter(p.Filter())
	if err != nil {
		return err
	}
	reg := registered{proto: p, filters: filters}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.protos {
		if old.proto.Kind() == p.Kind() {
			r.protos[i] = reg
			return nil
		}
	}
	r.protos = append(r.protos, reg)
	return nil
}

// Remove removes the prototype for kind k and reports whether one existed.
func (r *Registry) Remove(k Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, reg := range r.protos {
		if reg.proto.Kind() == k {
			r.protos = append(r.protos[:i], r.protos[i+1:]...)
			return true
		}
	}
	return false
}

// Registered reports whether a prototype for kind k is registered.
func (r *Registry) Registered(k Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.protos {
		if reg.proto.Kind() == k {
			return true
		}
	}
	return false
}

func (r *Registry) match(stanza string, name xml.Name) Prototype {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.protos {
		for _, f := range reg.filters {
			if f.Match(stanza, name) {
				return reg.proto
			}
		}
	}
	return nil
}

// Parse reads the children of the stanza that begins with start from inner
// and returns the parsed stanza.
// Inner must return io.EOF after the last child, with or without returning the
// closing element of the stanza first.
//
// Children that match no prototype are kept only as raw tokens.
// Children whose prototype fails to parse them are dropped.
// A child whose kind is already attached to the stanza is ignored.
func (r *Registry) Parse(start xml.StartElement, inner xml.TokenReader) (*Stanza, error) {
	st, err := newStanza(start)
	if err != nil {
		return nil, err
	}
	toks, err := readInner(inner, start.Name)
	if err != nil {
		return nil, err
	}
	st.inner = toks

	for _, span := range children(toks) {
		child := toks[span[0]].(xml.StartElement)
		if st.simpleChild(child.Name, toks[span[0]:span[1]+1]) {
			continue
		}
		p := r.match(start.Name.Local, child.Name)
		if p == nil || st.Extension(p.Kind()) != nil {
			continue
		}
		sub := Tokens(toks[span[0] : span[1]+1])
		d := xml.NewTokenDecoder(&sub)
		tok, err := d.Token()
		if err != nil {
			continue
		}
		childStart := tok.(xml.StartElement)
		e, err := p.New(d, &childStart)
		if err != nil || e == nil {
			continue
		}
		st.Extensions = append(st.Extensions, e)
	}
	return st, nil
}

func readInner(r xml.TokenReader, name xml.Name) ([]xml.Token, error) {
	var toks []xml.Token
	depth := 0
	for {
		tok, err := r.Token()
		if tok != nil {
			switch t := tok.(type) {
			case xml.StartElement:
				depth++
			case xml.EndElement:
				if depth == 0 {
					if t.Name.Local != name.Local {
						return nil, errors.New("ext: unexpected end element")
					}
					return toks, nil
				}
				depth--
			}
			toks = append(toks, xml.CopyToken(tok))
		}
		switch {
		case errors.Is(err, io.EOF):
			return toks, nil
		case err != nil:
			return nil, err
		}
	}
}

// children returns the start and end token index of every direct child.
func children(toks []xml.Token) [][2]int {
	var spans [][2]int
	depth := 0
	begin := 0
	for i, tok := range toks {
		switch tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				begin = i
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				spans = append(spans, [2]int{begin, i})
			}
		}
	}
	return spans
}
