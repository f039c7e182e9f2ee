// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package iqauth

import (
	"context"
	/* #nosec */
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
)

// Errors reported to a Handler.
// They wrap the stanza.Error sent by the server.
var (
	ErrConflict      = errors.New("iqauth: resource is already in use")
	ErrNotAcceptable = errors.New("iqauth: required information was not provided")
	ErrNotAuthorized = errors.New("iqauth: wrong username or password")
)

var (
	errNoResource = errors.New("iqauth: address has no resource")
	errNoFields   = errors.New("iqauth: server accepts neither digest nor password")
	errInProgress = errors.New("iqauth: authentication already in progress")
)

const (
	opFields = iota
	opAuth
)

// Handler is called once with the outcome of Auth.
// Err is nil if the stream is now authenticated.
type Handler interface {
	HandleIQAuth(err error)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as Handlers.
type HandlerFunc func(err error)

// HandleIQAuth calls f(err).
func (f HandlerFunc) HandleIQAuth(err error) { f(err) }

// Authenticator logs in using non-SASL authentication.
type Authenticator struct {
	d        *dispatch.Dispatcher
	addr     jid.JID
	password string

	mu       sync.Mutex
	h        Handler
	streamID string
}

// New returns an Authenticator that logs addr in with password.
// Addr must include the resource to bind.
func New(d *dispatch.Dispatcher, addr jid.JID, password string) *Authenticator {
	if err := d.RegisterExtension(Prototype); err != nil {
		panic(err)
	}
	return &Authenticator{d: d, addr: addr, password: password}
}

// Digest returns the digest of password for the stream with the given id.
func Digest(streamID, password string) string {
	/* #nosec */
	h := sha1.New()
	// hash.Write never returns an error per the documentation.
	_, _ = h.Write([]byte(streamID))
	_, _ = h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

// Auth starts authentication on the stream with the given id.
// The result is delivered to h.
func (a *Authenticator) Auth(ctx context.Context, streamID string, h Handler) error {
	if a.addr.Resourcepart() == "" {
		return errNoResource
	}
	a.mu.Lock()
	if a.h != nil {
		a.mu.Unlock()
		return errInProgress
	}
	a.h = h
	a.streamID = streamID
	a.mu.Unlock()

	q := &Query{Username: a.addr.Localpart()}
	_, err := a.d.SendIQ(ctx, a.iq(stanza.GetIQ), q.TokenReader(), a, opFields)
	if err != nil {
		a.finish()
	}
	return err
}

func (a *Authenticator) iq(typ stanza.IQType) stanza.IQ {
	return stanza.IQ{ID: a.d.NewID(), To: a.addr.Domain(), Type: typ}
}

func (a *Authenticator) finish() Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.h
	a.h = nil
	return h
}

func mapError(se stanza.Error) error {
	switch se.Condition {
	case stanza.Conflict:
		return fmt.Errorf("%w: %w", ErrConflict, se)
	case stanza.NotAcceptable:
		return fmt.Errorf("%w: %w", ErrNotAcceptable, se)
	case stanza.NotAuthorized:
		return fmt.Errorf("%w: %w", ErrNotAuthorized, se)
	}
	return se
}

// HandleIQID implements dispatch.IQResultHandler.
func (a *Authenticator) HandleIQID(st *ext.Stanza, op int) {
	if se, isErr := st.StanzaError(); isErr {
		if h := a.finish(); h != nil {
			h.HandleIQAuth(mapError(se))
		}
		return
	}
	if op == opAuth {
		if h := a.finish(); h != nil {
			h.HandleIQAuth(nil)
		}
		return
	}

	fields, _ := st.Extension(ext.KindAuth).(*Query)
	if fields == nil {
		fields = &Query{}
	}
	a.mu.Lock()
	streamID := a.streamID
	a.mu.Unlock()
	q := &Query{Username: a.addr.Localpart(), Resource: a.addr.Resourcepart()}
	switch {
	case fields.Fields&FieldDigest != 0 && streamID != "":
		q.Digest = Digest(streamID, a.password)
	case fields.Fields&FieldPassword != 0:
		q.Password = a.password
	default:
		if h := a.finish(); h != nil {
			h.HandleIQAuth(errNoFields)
		}
		return
	}
	_, err := a.d.SendIQ(a.d.Context(), a.iq(stanza.SetIQ), q.TokenReader(), a, opAuth)
	if err != nil {
		if h := a.finish(); h != nil {
			h.HandleIQAuth(err)
		}
	}
}
