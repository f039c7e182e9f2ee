// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package ping

import "time"

func SetClock(m *Manager, now func() time.Time) {
	m.now = now
}
