// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"mellium.im/xmpp/jid"
	"mellium.im/xmpp/stanza"

	"mellium.im/jabberkit/cmd/mucbot/internal/config"
	"mellium.im/jabberkit/cmd/mucbot/internal/seen"
	"mellium.im/jabberkit/commands"
	"mellium.im/jabberkit/disco"
	"mellium.im/jabberkit/dispatch"
	"mellium.im/jabberkit/ext"
	"mellium.im/jabberkit/form"
	"mellium.im/jabberkit/last"
	"mellium.im/jabberkit/muc"
	"mellium.im/jabberkit/ping"
)

const (
	nodeSeen  = "seen"
	nodeRooms = "rooms"
	version   = "0.1.0"
)

// bot joins the configured rooms, records the occupants it sees, and answers
// questions about them in the rooms and through ad-hoc commands.
type bot struct {
	logger *slog.Logger
	cfg    *config.Config
	store  *seen.Store
	d      *dispatch.Dispatcher
	disco  *disco.Disco
	cmds   *commands.Manager
	last   *last.Manager
	ping   *ping.Manager

	mu    sync.Mutex
	rooms []*muc.Room
}

func newBot(d *dispatch.Dispatcher, cfg *config.Config, store *seen.Store, logger *slog.Logger) (*bot, error) {
	dc := disco.New(d)
	dc.AddIdentity("client", "bot", "mucbot")
	dc.SetVersion("mucbot", version, runtime.GOOS)

	b := &bot{
		logger: logger,
		cfg:    cfg,
		store:  store,
		d:      d,
		disco:  dc,
		cmds:   commands.NewManager(dc),
		last:   last.NewManager(dc),
		ping:   ping.NewManager(dc),
	}
	b.cmds.RegisterProvider(nodeSeen, "Last seen", seenCommand{b: b})
	b.cmds.RegisterProvider(nodeRooms, "Joined rooms", roomsCommand{b: b})

	for _, rc := range cfg.Rooms {
		addr, err := jid.Parse(rc.JID)
		if err != nil {
			return nil, fmt.Errorf("bad room address %q: %w", rc.JID, err)
		}
		opts := []muc.Option{muc.Disco(dc)}
		if rc.History > 0 {
			opts = append(opts, muc.MaxHistory(rc.History))
		}
		if rc.Password != "" {
			opts = append(opts, muc.Password(rc.Password))
		}
		room, err := muc.NewRoom(d, addr, b, opts...)
		if err != nil {
			return nil, fmt.Errorf("error creating room %s: %w", rc.JID, err)
		}
		b.rooms = append(b.rooms, room)
	}
	return b, nil
}

// join enters every configured room.
func (b *bot) join(ctx context.Context) error {
	b.mu.Lock()
	rooms := b.rooms
	b.mu.Unlock()
	for _, r := range rooms {
		b.logger.Info("joining room", "room", r.Addr())
		if err := r.Join(ctx, "", b.cfg.Account.Status, 0); err != nil {
			return fmt.Errorf("error joining %s: %w", r.Name(), err)
		}
	}
	return nil
}

// leave exits every room and stops answering requests.
func (b *bot) leave(ctx context.Context) {
	b.mu.Lock()
	rooms := b.rooms
	b.mu.Unlock()
	for _, r := range rooms {
		if err := r.Leave(ctx, "Shutting down"); err != nil {
			b.logger.Debug("error leaving room", "room", r.Name(), "err", err)
		}
		r.Close()
	}
	b.cmds.Close()
	b.last.Close()
	b.ping.Close()
	b.disco.Close()
}

// keepalive pings the server every interval until ctx is canceled.
// It returns an error if pings stop being answered.
func (b *bot) keepalive(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if n := b.ping.Pending(); n >= 3 {
			return fmt.Errorf("%d pings to the server were not answered", n)
		}
		if err := b.ping.Ping(ctx, jid.JID{}, b); err != nil {
			return fmt.Errorf("error sending ping: %w", err)
		}
	}
}

// HandlePong implements ping.Handler.
func (b *bot) HandlePong(from jid.JID, rtt time.Duration) {
	b.logger.Debug("pong", "from", from, "rtt", rtt)
}

// HandlePingError implements ping.Handler.
func (b *bot) HandlePingError(from jid.JID, err stanza.Error) {
	b.logger.Debug("ping error", "from", from, "condition", err.Condition)
}

func roomKey(r *muc.Room) string {
	return r.Addr().Bare().String()
}

func (b *bot) record(sight seen.Sighting) {
	ctx, cancel := context.WithTimeout(b.d.Context(), 5*time.Second)
	defer cancel()
	if err := b.store.Record(ctx, sight); err != nil {
		b.logger.Error("error recording sighting", "room", sight.Room, "nick", sight.Nick, "err", err)
	}
}

func (b *bot) describe(ctx context.Context, nick string) string {
	sight, err := b.store.Last(ctx, nick)
	switch {
	case errors.Is(err, seen.ErrNotFound):
		return fmt.Sprintf("I have never seen %s.", nick)
	case err != nil:
		b.logger.Error("error looking up sighting", "nick", nick, "err", err)
		return "Something went wrong, please try again later."
	}
	ago := time.Since(sight.At).Round(time.Second)
	var what string
	switch sight.Action {
	case seen.ActionJoin:
		what = "joining"
	case seen.ActionLeave:
		what = "leaving"
	case seen.ActionNick:
		what = "changing nickname in"
	default:
		what = "talking in"
	}
	s := fmt.Sprintf("%s was last seen %s %s %s ago.", nick, what, sight.Room, ago)
	if sight.Status != "" {
		s += " Status: " + strconv.Quote(sight.Status)
	}
	return s
}

// HandleMUCParticipantPresence implements muc.RoomHandler.
func (b *bot) HandleMUCParticipantPresence(room *muc.Room, p muc.Participant, st *ext.Stanza) {
	if p.Flags&muc.UserSelf == muc.UserSelf {
		return
	}
	sight := seen.Sighting{
		Room:   roomKey(room),
		Nick:   p.Nick.Resourcepart(),
		JID:    p.JID.String(),
		Action: seen.ActionJoin,
		Status: p.Status,
	}
	switch {
	case p.Flags&muc.UserNickChanged == muc.UserNickChanged:
		sight.Action = seen.ActionNick
		sight.Status = "now known as " + p.NewNick
	case stanza.PresenceType(st.Type) == stanza.UnavailablePresence:
		sight.Action = seen.ActionLeave
	}
	b.logger.Debug("occupant presence", "room", room.Name(), "nick", sight.Nick, "action", sight.Action)
	b.record(sight)
}

// HandleMUCMessage implements muc.RoomHandler.
func (b *bot) HandleMUCMessage(room *muc.Room, msg *ext.Stanza, private bool) {
	nick := msg.From.Resourcepart()
	if private || nick == "" || nick == room.Nick() {
		return
	}
	b.record(seen.Sighting{Room: roomKey(room), Nick: nick, Action: seen.ActionMessage})

	query, ok := strings.CutPrefix(msg.Body, "!seen ")
	if !ok {
		return
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	ctx, cancel := context.WithTimeout(b.d.Context(), 5*time.Second)
	defer cancel()
	if err := room.Send(ctx, b.describe(ctx, query)); err != nil {
		b.logger.Error("error answering in room", "room", room.Name(), "err", err)
		return
	}
	b.last.ResetIdle()
}

// HandleMUCRoomCreation implements muc.RoomHandler.
// Rooms created by the bot are unlocked with the default configuration.
func (b *bot) HandleMUCRoomCreation(room *muc.Room) bool {
	b.logger.Info("created instant room", "room", room.Name())
	return true
}

// HandleMUCSubject implements muc.RoomHandler.
func (b *bot) HandleMUCSubject(room *muc.Room, nick, subject string) {
	b.logger.Debug("subject", "room", room.Name(), "nick", nick, "subject", subject)
}

// HandleMUCInviteDecline implements muc.RoomHandler.
func (b *bot) HandleMUCInviteDecline(room *muc.Room, invitee jid.JID, reason string) {
	b.logger.Info("invitation declined", "room", room.Name(), "invitee", invitee, "reason", reason)
}

// HandleMUCError implements muc.RoomHandler.
func (b *bot) HandleMUCError(room *muc.Room, err stanza.Error) {
	b.logger.Warn("room error", "room", room.Name(), "condition", err.Condition, "joined", room.Joined())
}

// HandleMUCInfo implements muc.RoomHandler.
func (b *bot) HandleMUCInfo(room *muc.Room, flags muc.RoomFlags, name string, _ *form.Data) {
	b.logger.Debug("room info", "room", room.Name(), "name", name, "flags", uint64(flags))
}

// HandleMUCItems implements muc.RoomHandler.
func (b *bot) HandleMUCItems(room *muc.Room, items []disco.Item) {
	b.logger.Debug("room items", "room", room.Name(), "items", len(items))
}

// seenCommand asks for a nickname and reports when it was last seen.
type seenCommand struct {
	b *bot
}

func (c seenCommand) HandleAdhocCommand(from jid.JID, cmd *commands.Command, sess string) {
	resp := &commands.Command{Node: cmd.Node, SessionID: sess}
	switch {
	case cmd.Action == commands.ActionCancel:
		resp.Status = commands.StatusCanceled
	case cmd.Form == nil:
		resp.Status = commands.StatusExecuting
		resp.Actions = commands.Actions(0).WithDefault(commands.Complete)
		resp.Form = form.New(
			form.Title("Last seen"),
			form.Instructions("Enter the nickname to look up."),
			form.Text("nick", form.Label("Nickname"), form.Required),
		)
	default:
		nick, _ := cmd.Form.Get("nick")
		nick = strings.TrimSpace(nick)
		if nick == "" {
			c.respond(resp, &stanza.Error{Type: stanza.Modify, Condition: stanza.BadRequest})
			return
		}
		ctx, cancel := context.WithTimeout(c.b.d.Context(), 5*time.Second)
		defer cancel()
		resp.Status = commands.StatusCompleted
		resp.Notes = []commands.Note{{Type: commands.NoteInfo, Value: c.b.describe(ctx, nick)}}
	}
	c.respond(resp, nil)
}

func (c seenCommand) respond(resp *commands.Command, se *stanza.Error) {
	if err := c.b.cmds.Respond(resp, se); err != nil {
		c.b.logger.Error("error responding to command", "node", resp.Node, "err", err)
	}
}

func (seenCommand) HandleAdhocAccessRequest(jid.JID, string) bool {
	return true
}

// roomsCommand lists the joined rooms to administrators.
type roomsCommand struct {
	b *bot
}

func (c roomsCommand) HandleAdhocCommand(from jid.JID, cmd *commands.Command, sess string) {
	if !c.b.cfg.IsAdmin(from) {
		err := c.b.cmds.Respond(&commands.Command{Node: cmd.Node, SessionID: sess}, &stanza.Error{Type: stanza.Auth, Condition: stanza.Forbidden})
		if err != nil {
			c.b.logger.Error("error responding to command", "node", cmd.Node, "err", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(c.b.d.Context(), 5*time.Second)
	defer cancel()
	result := form.New(
		form.Title("Joined rooms"),
		form.Reported(
			form.NewField(form.TypeJID, "room", form.Label("Room")),
			form.NewField(form.TypeText, "nick", form.Label("Nickname")),
			form.NewField(form.TypeText, "occupants", form.Label("Occupants")),
			form.NewField(form.TypeText, "seen", form.Label("Nicknames seen")),
		),
	)
	result.Type = form.TypeResult
	c.b.mu.Lock()
	rooms := c.b.rooms
	c.b.mu.Unlock()
	for _, r := range rooms {
		if !r.Joined() {
			continue
		}
		n, err := c.b.store.Count(ctx, roomKey(r))
		if err != nil {
			c.b.logger.Error("error counting sightings", "room", r.Name(), "err", err)
		}
		result.Items = append(result.Items, []form.Field{
			form.NewField(form.TypeJID, "room", form.Value(roomKey(r))),
			form.NewField(form.TypeText, "nick", form.Value(r.Nick())),
			form.NewField(form.TypeText, "occupants", form.Value(strconv.Itoa(len(r.Occupants())))),
			form.NewField(form.TypeText, "seen", form.Value(strconv.Itoa(n))),
		})
	}
	err := c.b.cmds.Respond(&commands.Command{
		Node:      cmd.Node,
		SessionID: sess,
		Status:    commands.StatusCompleted,
		Form:      result,
	}, nil)
	if err != nil {
		c.b.logger.Error("error responding to command", "node", cmd.Node, "err", err)
	}
}

func (c roomsCommand) HandleAdhocAccessRequest(from jid.JID, _ string) bool {
	return c.b.cfg.IsAdmin(from)
}
