// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package policy

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/holomush/stonehook/internal/tag"
)

const schemaBaseURL = "https://stonehook.dev/schemas/policy/"

// compileSchema compiles a JSON schema given as raw JSON bytes, a JSON
// string, or an already decoded document.
func compileSchema(name string, doc any) (*jschema.Schema, error) {
	var raw []byte
	switch v := doc.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, oops.In("policy").With("policy", name).Wrapf(err, "encode schema")
		}
		raw = b
	}
	parsed, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.In("policy").With("policy", name).Wrapf(err, "parse schema")
	}

	url := schemaBaseURL + strings.ReplaceAll(name, ":", "/") + ".json"
	c := jschema.NewCompiler()
	if err := c.AddResource(url, parsed); err != nil {
		return nil, oops.In("policy").With("policy", name).Wrapf(err, "add schema resource")
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, oops.In("policy").With("policy", name).Wrapf(err, "compile schema")
	}
	return sch, nil
}

// validateTag checks a tag payload against sch using its JSON form.
func validateTag(sch *jschema.Schema, data tag.Tag) error {
	raw, err := json.Marshal(tag.ToJSON(data))
	if err != nil {
		return oops.In("policy").Wrapf(err, "encode payload")
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.In("policy").Wrapf(err, "decode payload")
	}
	return sch.Validate(doc)
}
