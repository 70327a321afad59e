// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

// Error codes for store failures.
const (
	CodeOpenFailed   = "STORE_OPEN_FAILED"
	CodeInvalidPath  = "STORE_INVALID_PATH"
	CodeInvalidParam = "STORE_INVALID_PARAM"
	CodeQueryFailed  = "STORE_QUERY_FAILED"
	CodeCorruptData  = "STORE_CORRUPT_DATA"
	CodeClosed       = "STORE_CLOSED"
)
