// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lockdown sequences the self-restriction of every process in
// a lockdown deployment: the master, each worker, and each crash
// relay.
//
// A process moves through a fixed series of [State] values. Which
// states it visits, and in what order, depends on the deployment
// [Mode] and the process's [Role]; [Plan] gives the exact sequence and
// a [Tracker] refuses any step taken out of it. Every step is
// irreversible once taken, so an out-of-order call is a programming
// error ([SequenceError]) and nothing is applied.
//
// Confinement mode (no unveil in the config): a worker resolves its
// identity, drops its group, chroots into the application directory,
// drops its user, and pledges:
//
//	Spawned -> PolicyComputed -> Confined -> IdentityDropped ->
//	    SyscallRestricted -> Active
//
// Visibility mode (unveil set): no chroot; the worker drops identity
// and then restricts visibility to its allow-list, or the reverse with
// unveil_before_drop:
//
//	Spawned -> PolicyComputed -> IdentityDropped ->
//	    VisibilityRestricted -> SyscallRestricted -> Active
//
// Hybrid mode (unveil and master_pledge set): the master pledges
// itself before spawning, with exec promises that bound every worker
// from its first instruction. A worker unveils, then drops identity
// under those inherited promises, then narrows them to its own:
//
//	master: Spawned -> PolicyComputed -> SyscallRestricted -> Active
//	worker: Spawned -> PolicyComputed -> VisibilityRestricted ->
//	    IdentityDropped -> SyscallRestricted -> Active
//
// A relay confines itself like a worker (except in hybrid mode, where
// it has inherited a pledge that forbids chroot) and keeps only the
// network promises it needs to deliver one message.
//
// Identities are resolved during PolicyComputed, while /etc is still
// visible. Runtime modules are force-loaded at the same point, so
// their files are read before chroot or unveil can hide them.
//
// [Install] wires sessions, the diagnostic channel and the crash
// pipeline into a [server.Server]. [PledgeAndUnveil] and [Chroot] are
// the same steps for programs that are not servers, such as test
// binaries that should run under their production restrictions.
package lockdown
