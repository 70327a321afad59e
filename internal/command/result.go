// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samber/oops"
)

// Result is what a handler returns. The set of implementations is closed:
// Text, Structured, and None.
type Result interface {
	isResult()
}

// Text is a plain text result.
type Text string

// Structured is a result with named fields and a textual form. When Text is
// empty the fields are rendered as sorted key=value pairs.
type Structured struct {
	Fields map[string]any
	Text   string
}

// None produces no output.
type None struct{}

func (Text) isResult()       {}
func (Structured) isResult() {}
func (None) isResult()       {}

func (s Structured) String() string {
	if s.Text != "" {
		return s.Text
	}
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, s.Fields[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Render writes the textual form of r to w, followed by a newline. None
// and a nil result write nothing.
func Render(w io.Writer, r Result) error {
	var text string
	switch v := r.(type) {
	case nil, None:
		return nil
	case Text:
		text = string(v)
	case Structured:
		text = v.String()
	default:
		return oops.In("command").Errorf("unsupported result type %T", r)
	}
	if w == nil {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := io.WriteString(w, text); err != nil {
		return oops.In("command").With("operation", "render").Wrap(err)
	}
	return nil
}
