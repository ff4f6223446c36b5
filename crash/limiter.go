// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"time"

	"github.com/bureau-foundation/lockdown/lib/clock"
)

// EmptyCrashCooldown is the minimum interval between notifications
// for crashes with an empty diagnostic record.
const EmptyCrashCooldown = 300 * time.Second

// Limiter suppresses repeated empty-record crash notifications. It is
// not safe for concurrent use; the pipeline handles one exit at a time.
type Limiter struct {
	clock    clock.Clock
	cooldown time.Duration
	last     time.Time
}

// NewLimiter creates a Limiter whose first Allow succeeds.
func NewLimiter(clk clock.Clock) *Limiter {
	return &Limiter{
		clock:    clk,
		cooldown: EmptyCrashCooldown,
		last:     clk.Now().Add(-2 * EmptyCrashCooldown),
	}
}

// Allow reports whether more than the cooldown has passed since the
// last allowed notification, and if so starts a new cooldown. A denied
// call does not move the window.
func (l *Limiter) Allow() bool {
	now := l.clock.Now()
	if now.Sub(l.last) > l.cooldown {
		l.last = now
		return true
	}
	return false
}

// Last returns when Allow last succeeded.
func (l *Limiter) Last() time.Time {
	return l.last
}
