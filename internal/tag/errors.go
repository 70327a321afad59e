// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tag

import "github.com/samber/oops"

// Error codes for tag encoding and decoding failures.
const (
	// CodeParse marks malformed input bytes.
	CodeParse = "TAG_PARSE"
	// CodeMalformed marks a tag tree that cannot be encoded.
	CodeMalformed = "TAG_MALFORMED"
)

func errParse(offset int, format string, args ...any) error {
	return oops.In("tag").
		Code(CodeParse).
		With("offset", offset).
		Errorf(format, args...)
}

func errMalformed(format string, args ...any) error {
	return oops.In("tag").
		Code(CodeMalformed).
		Errorf(format, args...)
}
