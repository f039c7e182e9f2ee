// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package form

import (
	"strings"
)

// An Option is used to define the behavior and appearance of a data form.
type Option func(*Data)

// Title sets a form's title.
func Title(s string) Option {
	return func(data *Data) {
		data.Title = s
	}
}

// Instructions adds new textual instructions to the form.
// Each line of s becomes a separate instructions element.
func Instructions(s string) Option {
	return func(data *Data) {
		lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
		data.Instructions = append(data.Instructions, lines...)
	}
}

// Reported sets the fields that describe the columns of a multi-item result.
func Reported(f ...Field) Option {
	return func(data *Data) {
		data.Reported = append(data.Reported, f...)
	}
}

// Item adds a row to a multi-item result.
func Item(f ...Field) Option {
	return func(data *Data) {
		data.Items = append(data.Items, f)
	}
}

var (
	// Result marks a form as the result type.
	Result Option = result

	// Submit marks a form as the submit type.
	Submit Option = submit
)

var (
	result Option = func(data *Data) {
		data.Type = TypeResult
	}
	submit Option = func(data *Data) {
		data.Type = TypeSubmit
	}
	cancel Option = func(data *Data) {
		data.Type = TypeCancel
	}
)

// A FieldOption is used to define the behavior and appearance of a form field.
type FieldOption func(*Field)

var (
	// Required flags the field as required in order for the form to be considered
	// valid.
	Required FieldOption = required
)

var (
	required FieldOption = func(f *Field) {
		f.Required = true
	}
)

// Desc provides a natural-language description of the field.
func Desc(s string) FieldOption {
	return func(f *Field) {
		f.Desc = s
	}
}

// Value defines the default value for the field.
// Fields of type ListMulti, JidMulti, TextMulti, and Hidden may contain more
// than one Value; all other field types will only use the first Value.
func Value(s string) FieldOption {
	return func(f *Field) {
		f.Values = append(f.Values, s)
	}
}

// Label defines a human-readable name for the field.
func Label(s string) FieldOption {
	return func(f *Field) {
		f.Label = s
	}
}

// Choice adds a list item with the provided label and value.
// It has no effect on any non-list field type.
func Choice(label, value string) FieldOption {
	return func(f *Field) {
		f.Options = append(f.Options, ListItem{Label: label, Value: value})
	}
}

func newField(typ FieldType, v string, o []FieldOption) Field {
	f := Field{Var: v, Type: typ}
	for _, opt := range o {
		opt(&f)
	}
	f.normalize()
	return f
}

func fieldOption(typ FieldType, v string, o []FieldOption) Option {
	return func(data *Data) {
		data.Fields = append(data.Fields, newField(typ, v, o))
	}
}

// NewField returns a field of the given type without adding it to a form.
// It is used to build reported columns and result items.
func NewField(typ FieldType, v string, o ...FieldOption) Field {
	return newField(typ, v, o)
}

// Boolean fields enable an entity to gather or provide an either-or choice
// between two options.
func Boolean(v string, o ...FieldOption) Option { return fieldOption(TypeBoolean, v, o) }

// Fixed is intended for data description (e.g., human-readable text such as
// "section" headers) rather than data gathering or provision.
func Fixed(o ...FieldOption) Option { return fieldOption(TypeFixed, "", o) }

// Hidden fields are not shown by the form-submitting entity, but instead are
// returned, generally unmodified, with the form.
func Hidden(v string, o ...FieldOption) Option { return fieldOption(TypeHidden, v, o) }

// JIDMulti enables an entity to gather or provide multiple JIDs.
func JIDMulti(v string, o ...FieldOption) Option { return fieldOption(TypeJIDMulti, v, o) }

// JID enables an entity to gather or provide a JID.
func JID(v string, o ...FieldOption) Option { return fieldOption(TypeJID, v, o) }

// ListMulti enables an entity to gather or provide one or more entries from a
// list.
func ListMulti(v string, o ...FieldOption) Option { return fieldOption(TypeListMulti, v, o) }

// List enables an entity to gather or provide a single entry from a list.
func List(v string, o ...FieldOption) Option { return fieldOption(TypeList, v, o) }

// TextMulti enables an entity to gather or provide multiple lines of text.
func TextMulti(v string, o ...FieldOption) Option { return fieldOption(TypeTextMulti, v, o) }

// TextPrivate enables an entity to gather or provide a line of text that
// should be obscured in the interface (e.g., with multiple instances of the
// asterisk character).
func TextPrivate(v string, o ...FieldOption) Option { return fieldOption(TypeTextPrivate, v, o) }

// Text enables an entity to gather or provide a single line or word of text,
// which may be shown in an interface.
func Text(v string, o ...FieldOption) Option { return fieldOption(TypeText, v, o) }

// FormType adds the hidden FORM_TYPE field.
func FormType(ns string) Option {
	return Hidden("FORM_TYPE", Value(ns))
}
