// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package seen_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mellium.im/jabberkit/cmd/mucbot/internal/seen"
)

func open(t *testing.T) *seen.Store {
	t.Helper()
	s, err := seen.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	})
	return s
}

func TestRecordLast(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, sight := range []seen.Sighting{
		{Room: "coven@chat.shakespeare.lit", Nick: "thirdwitch", JID: "hag66@shakespeare.lit/pda", Action: seen.ActionJoin, At: base},
		{Room: "darkcave@chat.shakespeare.lit", Nick: "thirdwitch", Action: seen.ActionMessage, At: base.Add(time.Minute)},
		{Room: "coven@chat.shakespeare.lit", Nick: "thirdwitch", Action: seen.ActionLeave, Status: "gone", At: base.Add(2 * time.Minute)},
	} {
		if err := s.Record(ctx, sight); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Last(ctx, "thirdwitch")
	if err != nil {
		t.Fatal(err)
	}
	if got.Room != "coven@chat.shakespeare.lit" || got.Action != seen.ActionLeave || got.Status != "gone" {
		t.Errorf("wrong sighting: %+v", got)
	}
	if got.JID != "hag66@shakespeare.lit/pda" {
		t.Errorf("empty jid should keep the known one, got %q", got.JID)
	}
	if !got.At.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("wrong time: %v", got.At)
	}

	n, err := s.Count(ctx, "coven@chat.shakespeare.lit")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("want one nickname in the room, got %d", n)
	}
}

func TestNotFound(t *testing.T) {
	s := open(t)
	if _, err := s.Last(context.Background(), "nobody"); !errors.Is(err, seen.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestRecordInvalid(t *testing.T) {
	s := open(t)
	if err := s.Record(context.Background(), seen.Sighting{Nick: "x"}); err == nil {
		t.Error("expected error without a room")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "seen.db")
	s, err := seen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(context.Background(), seen.Sighting{Room: "r@muc.example.net", Nick: "n", Action: seen.ActionJoin}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = seen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Last(context.Background(), "n"); err != nil {
		t.Errorf("sighting not persisted: %v", err)
	}
}
