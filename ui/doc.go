// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ui contains the top-level UI wiring for Gobro.
//
// The cobra command tree lives in ui/cli; the interactive bubbletea
// workbench lives in internal/tui and is launched by a bare `gobro`
// invocation.
package ui
