// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package attr contains unexported functions for working with XML attributes.
package attr // import "mellium.im/jabberkit/internal/attr"

import (
	"encoding/xml"
)

// Get returns the index and value of the first attribute with the provided
// local name from a list of attributes.
// If no such attribute exists the index is -1 and the value is empty.
func Get(attr []xml.Attr, local string) (int, string) {
	for i, a := range attr {
		if a.Name.Local == local {
			return i, a.Value
		}
	}
	return -1, ""
}

// Value is like Get but only returns the value.
func Value(attr []xml.Attr, local string) string {
	_, v := Get(attr, local)
	return v
}

// Set returns attr with the first attribute of the provided local name replaced
// by value, or with a new attribute appended if none exists.
// Empty values are not added.
func Set(attr []xml.Attr, local, value string) []xml.Attr {
	idx, _ := Get(attr, local)
	switch {
	case idx >= 0:
		attr[idx].Value = value
	case value != "":
		attr = append(attr, xml.Attr{Name: xml.Name{Local: local}, Value: value})
	}
	return attr
}
