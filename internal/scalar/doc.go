// Copyright 2026 The Llmagg Authors
// SPDX-License-Identifier: MIT

// Package scalar holds per-row functions that run outside the batching
// engine: fusing several score columns into one and embedding rows.
package scalar
