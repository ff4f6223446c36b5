// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the lockdown
// packages.
//
// Production code accepts a [Clock] instead of calling time.Now or
// time.After directly. [Real] is backed by the time package; [Fake]
// stands still until the test calls [FakeClock.Advance] or
// [FakeClock.Set], which makes cooldown windows (the crash pipeline's
// empty-crash limiter) and shutdown deadlines deterministic.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	limiter := crash.NewLimiter(c, crash.EmptyCrashCooldown)
//	c.Advance(100 * time.Second)
//
// Use [FakeClock.WaitForTimers] to block until a goroutine has
// registered its After channel before advancing the clock.
package clock
