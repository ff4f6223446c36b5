// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for lockdown
// deployments.
//
// Configuration is loaded from a single file specified by either the
// LOCKDOWN_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search: the file that decides which paths a worker can see and which
// syscalls it may issue must be the one the operator named.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter: a
// restriction primitive the platform does not support is an error
// rather than a warning.
//
// The shape of the file selects the deployment mode ([Config.Mode]):
// an unveil map plus a master pledge is hybrid, an unveil map alone is
// visibility allow-listing, and neither is subtree confinement.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${LOCKDOWN_PREFIX}, and ${VAR:-default} patterns are
// expanded.
//
// Key exports:
//
//   - [Config] -- the deployment: identity, policy declarations, paths
//   - [Identity] -- the immutable application identity derived from it
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other lockdown packages.
package config
