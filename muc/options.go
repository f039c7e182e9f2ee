// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package muc

import (
	"encoding/xml"
	"math"
	"strconv"
	"time"

	"mellium.im/xmlstream"

	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/ext"
)

// History limits the discussion history that the room sends on join.
// Nil fields are not sent.
type History struct {
	MaxStanzas *uint64
	MaxChars   *uint64
	Seconds    *uint64
	Since      time.Time
}

func (h History) empty() bool {
	return h.MaxStanzas == nil && h.MaxChars == nil && h.Seconds == nil && h.Since.IsZero()
}

func uintAttr(local string, v *uint64) xml.Attr {
	if v == nil {
		return xml.Attr{}
	}
	return ext.Attr(local, strconv.FormatUint(*v, 10))
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (h History) TokenReader() xml.TokenReader {
	if h.empty() {
		return nil
	}
	var since string
	if !h.Since.IsZero() {
		since = h.Since.UTC().Format(time.RFC3339Nano)
	}
	return ext.Element(xml.Name{Local: "history"},
		uintAttr("maxstanzas", h.MaxStanzas),
		uintAttr("maxchars", h.MaxChars),
		uintAttr("seconds", h.Seconds),
		ext.Attr("since", since),
	)
}

// Join is the payload of the presence that enters a room.
type Join struct {
	History  History
	Password string
}

// Kind satisfies ext.Extension.
func (*Join) Kind() ext.Kind { return ext.KindMUC }

// Clone satisfies ext.Extension.
func (j *Join) Clone() ext.Extension {
	c := *j
	c.History.MaxStanzas = cloneUint(j.History.MaxStanzas)
	c.History.MaxChars = cloneUint(j.History.MaxChars)
	c.History.Seconds = cloneUint(j.History.Seconds)
	return &c
}

func cloneUint(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// TokenReader satisfies the xmlstream.Marshaler interface.
func (j *Join) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(
		ext.Readers(
			j.History.TokenReader(),
			ext.Text("password", j.Password),
		),
		xml.StartElement{Name: xml.Name{Space: NS, Local: "x"}},
	)
}

// WriteXML satisfies the xmlstream.WriterTo interface.
// It is like MarshalXML except it writes tokens to w.
func (j *Join) WriteXML(w xmlstream.TokenWriter) (n int, err error) {
	return xmlstream.Copy(w, j.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (j *Join) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := j.WriteXML(e)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (j *Join) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	iter := xmlstream.NewIter(d)
	for iter.Next() {
		start, r := iter.Current()
		switch start.Name.Local {
		case "history":
			for _, attr := range start.Attr {
				var err error
				switch attr.Name.Local {
				case "maxchars":
					j.History.MaxChars, err = parseUint(attr.Value)
				case "maxstanzas":
					j.History.MaxStanzas, err = parseUint(attr.Value)
				case "seconds":
					j.History.Seconds, err = parseUint(attr.Value)
				case "since":
					j.History.Since, err = time.Parse(time.RFC3339Nano, attr.Value)
				}
				if err != nil {
					return err
				}
			}
		case "password":
			tok, err := r.Token()
			if err != nil {
				return err
			}
			if cdata, ok := tok.(xml.CharData); ok {
				j.Password = string(cdata)
			}
		}
	}
	return iter.Err()
}

func parseUint(s string) (*uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Option is used to configure a room.
type Option func(*Room)

// MaxHistory configures the maximum number of messages that will be sent to the
// client when joining the room.
func MaxHistory(messages uint64) Option {
	return func(r *Room) {
		r.join.History.MaxStanzas = &messages
	}
}

// MaxBytes configures the maximum number of bytes of XML that will be sent to
// the client when joining the room.
func MaxBytes(b uint64) Option {
	return func(r *Room) {
		r.join.History.MaxChars = &b
	}
}

// Duration configures the room to send history received within a window of
// time.
func Duration(d time.Duration) Option {
	return func(r *Room) {
		s := uint64(math.Abs(math.Round(d.Seconds())))
		r.join.History.Seconds = &s
	}
}

// Since configures the room to send history received since the provided time.
func Since(t time.Time) Option {
	return func(r *Room) {
		r.join.History.Since = t
	}
}

// Password is used to join password protected rooms.
func Password(p string) Option {
	return func(r *Room) {
		r.join.Password = p
	}
}

// HandleConfig sets the handler that receives the outcome of moderation and
// configuration requests.
func HandleConfig(h ConfigHandler) Option {
	return func(r *Room) {
		r.config = h
	}
}

// Disco enables room information queries and publishing the room through the
// provided service discovery.
func Disco(dc *disco.Disco) Option {
	return func(r *Room) {
		r.disco = dc
	}
}
