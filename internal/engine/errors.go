// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine

// Error codes.
const (
	CodeInvalidPhase = "ENGINE_INVALID_PHASE"
	CodeInitFailed   = "ENGINE_INIT_FAILED"
	CodeNotRunning   = "ENGINE_NOT_RUNNING"
	CodeWorkPanicked = "ENGINE_WORK_PANICKED"
)
