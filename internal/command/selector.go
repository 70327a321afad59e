// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/game"
)

// argLexer tokenizes selectors and block ids.
var argLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Variable", Pattern: `@[parse]`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Word", Pattern: `[^@\s,=\[\]"]+`},
	{Name: "Punct", Pattern: `[,=\[\]]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Grammar: ( variable | name ) [ "[" key "=" value { "," key "=" value } "]" ]
type selectorAST struct {
	Variable string       `parser:"(  @Variable"`
	Name     string       `parser:" | @Word )"`
	Filters  []*filterAST `parser:"( '[' ( @@ ( ',' @@ )* )? ']' )?"`
}

// Grammar: id [ "[" key "=" value { "," key "=" value } "]" ]
type blockAST struct {
	ID     string       `parser:"@Word"`
	States []*filterAST `parser:"( '[' ( @@ ( ',' @@ )* )? ']' )?"`
}

type filterAST struct {
	Key   string `parser:"@Word '='"`
	Value string `parser:"@( Word | String )?"`
}

var (
	selectorParser = participle.MustBuild[selectorAST](
		participle.Lexer(argLexer),
		participle.Unquote("String"),
	)
	blockParser = participle.MustBuild[blockAST](
		participle.Lexer(argLexer),
		participle.Unquote("String"),
	)
)

var playerNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,16}$`)

// SelectorKind is the target variable of a selector.
type SelectorKind string

// Selector kinds. KindName selects one player by name.
const (
	KindNearestPlayer SelectorKind = "@p"
	KindAllPlayers    SelectorKind = "@a"
	KindAllEntities   SelectorKind = "@e"
	KindRandomPlayer  SelectorKind = "@r"
	KindSelf          SelectorKind = "@s"
	KindName          SelectorKind = "name"
)

// Filter is one key=value argument of a selector or block state.
type Filter struct {
	Key   string
	Value string
}

// Selector is a parsed entity selector such as @e[type=zombie,r=10] or a
// player name.
type Selector struct {
	Kind    SelectorKind
	Name    string
	Filters []Filter
}

// Get returns the value of the first filter with key.
func (s Selector) Get(key string) (string, bool) {
	for _, f := range s.Filters {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func (s Selector) String() string {
	head := string(s.Kind)
	if s.Kind == KindName {
		head = s.Name
	}
	return head + formatFilters(s.Filters)
}

// SelectorResolver resolves selectors against the host world.
type SelectorResolver interface {
	ResolveSelector(ctx context.Context, origin Origin, sel Selector) ([]game.EntityRef, error)
}

// ParseSelector parses a selector token.
func ParseSelector(token string) (Selector, error) {
	ast, err := selectorParser.ParseString("", token)
	if err != nil {
		return Selector{}, oops.In("command").Code(CodeParse).With("token", token).Wrapf(err, "invalid selector")
	}
	sel := Selector{Kind: SelectorKind(ast.Variable), Filters: toFilters(ast.Filters)}
	if ast.Variable == "" {
		if !playerNamePattern.MatchString(ast.Name) {
			return Selector{}, oops.In("command").Code(CodeParse).With("token", token).Errorf("invalid player name %q", ast.Name)
		}
		if len(ast.Filters) > 0 {
			return Selector{}, oops.In("command").Code(CodeParse).With("token", token).Errorf("player names take no filters")
		}
		sel.Kind = KindName
		sel.Name = ast.Name
	}
	return sel, nil
}

// Block is a parsed block id with optional states, such as
// minecraft:oak_log[axis=y].
type Block struct {
	ID     string
	States map[string]string
}

func (b Block) String() string {
	keys := make([]string, 0, len(b.States))
	for k := range b.States {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	filters := make([]Filter, len(keys))
	for i, k := range keys {
		filters[i] = Filter{Key: k, Value: b.States[k]}
	}
	return b.ID + formatFilters(filters)
}

// State converts b to the host block state form.
func (b Block) State() game.BlockState {
	return game.BlockState{Name: b.ID, States: b.States}
}

var blockIDPattern = regexp.MustCompile(`^(?:[a-z0-9_.-]+:)?[a-z0-9_./-]+$`)

// ParseBlock parses a block token. The namespace defaults to minecraft.
func ParseBlock(token string) (Block, error) {
	ast, err := blockParser.ParseString("", token)
	if err != nil {
		return Block{}, oops.In("command").Code(CodeParse).With("token", token).Wrapf(err, "invalid block")
	}
	if !blockIDPattern.MatchString(ast.ID) {
		return Block{}, oops.In("command").Code(CodeParse).With("token", token).Errorf("invalid block id %q", ast.ID)
	}
	id := ast.ID
	if !strings.Contains(id, ":") {
		id = "minecraft:" + id
	}
	b := Block{ID: id}
	if len(ast.States) > 0 {
		b.States = make(map[string]string, len(ast.States))
		for _, f := range ast.States {
			if _, dup := b.States[f.Key]; dup {
				return Block{}, oops.In("command").Code(CodeParse).With("token", token).Errorf("duplicate block state %q", f.Key)
			}
			b.States[f.Key] = f.Value
		}
	}
	return b, nil
}

func toFilters(in []*filterAST) []Filter {
	if len(in) == 0 {
		return nil
	}
	out := make([]Filter, len(in))
	for i, f := range in {
		out[i] = Filter{Key: f.Key, Value: f.Value}
	}
	return out
}

func formatFilters(filters []Filter) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = fmt.Sprintf("%s=%s", f.Key, f.Value)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
