// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ext

import (
	"encoding/xml"
	"errors"
	"strings"
)

// ErrBadFilter is returned when a filter string cannot be parsed.
var ErrBadFilter = errors.New("ext: malformed filter")

// Filter selects a direct child of a stanza.
// Empty fields match anything.
type Filter struct {
	// Stanza is the local name of the stanza, for example "iq".
	Stanza string
	Name   xml.Name
}

// Match reports whether a child with the given name, inside a stanza with the
// given local name, is selected by the filter.
func (f Filter) Match(stanza string, name xml.Name) bool {
	return (f.Stanza == "" || f.Stanza == stanza) &&
		(f.Name.Local == "" || f.Name.Local == name.Local) &&
		(f.Name.Space == "" || f.Name.Space == name.Space)
}

// String returns the filter in its path form, for example:
//
//	/presence/x[@xmlns='http://jabber.org/protocol/muc#user']
func (f Filter) String() string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(orAny(f.Stanza))
	b.WriteByte('/')
	b.WriteString(orAny(f.Name.Local))
	if f.Name.Space != "" {
		b.WriteString("[@xmlns='")
		b.WriteString(f.Name.Space)
		b.WriteString("']")
	}
	return b.String()
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// ParseFilter parses a path expression with optional alternatives separated by
// "|".
// Each alternative has the form /stanza/child[@xmlns='namespace'] where the
// stanza and child may be "*" and the namespace predicate is optional.
func ParseFilter(s string) ([]Filter, error) {
	var filters []Filter
	for _, alt := range strings.Split(s, "|") {
		f, err := parseOne(strings.TrimSpace(alt))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func parseOne(s string) (Filter, error) {
	if !strings.HasPrefix(s, "/") {
		return Filter{}, ErrBadFilter
	}
	stanza, child, ok := strings.Cut(s[1:], "/")
	if !ok || stanza == "" || child == "" {
		return Filter{}, ErrBadFilter
	}
	var f Filter
	if stanza != "*" {
		f.Stanza = stanza
	}

	local, pred, hasPred := strings.Cut(child, "[")
	if local == "" || strings.ContainsAny(local, "/]'") {
		return Filter{}, ErrBadFilter
	}
	if local != "*" {
		f.Name.Local = local
	}
	if !hasPred {
		return f, nil
	}
	pred, ok = strings.CutSuffix(pred, "]")
	if !ok {
		return Filter{}, ErrBadFilter
	}
	pred, ok = strings.CutPrefix(pred, "@xmlns=")
	if !ok || len(pred) < 2 {
		return Filter{}, ErrBadFilter
	}
	q := pred[0]
	if (q != '\'' && q != '"') || pred[len(pred)-1] != q {
		return Filter{}, ErrBadFilter
	}
	f.Name.Space = pred[1 : len(pred)-1]
	return f, nil
}
