// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package script

// Error codes.
const (
	CodeInvalidManifest  = "SCRIPT_INVALID_MANIFEST"
	CodeDiscoveryFailed  = "SCRIPT_DISCOVERY_FAILED"
	CodeLoadFailed       = "SCRIPT_LOAD_FAILED"
	CodeAPIMismatch      = "SCRIPT_API_MISMATCH"
	CodeDependency       = "SCRIPT_DEPENDENCY"
	CodeDuplicateScript  = "SCRIPT_DUPLICATE"
	CodeSchemaGeneration = "SCRIPT_SCHEMA_FAILED"
)
