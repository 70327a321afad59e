// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/holomush/stonehook/internal/command"
	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/structure"
	"github.com/holomush/stonehook/internal/world"
)

// coreSource is the Source of commands the engine registers itself.
const coreSource = "core"

func (e *Engine) registerCoreCommands() error {
	defs := map[string]command.Definition{
		"help": {
			Description: "List commands or show the usage of one",
			Overloads: []command.Overload{
				{Handler: e.helpAll},
				{Parameters: []command.Parameter{{Name: "command", Type: command.TypeString}}, Handler: e.helpOne},
			},
		},
		"say": {
			Description: "Broadcast a message to every player",
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{{Name: "message", Type: command.TypeMessage}},
				Handler:    e.say,
			}},
		},
		"tell": {
			Description: "Send a private message",
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{
					{Name: "targets", Type: command.TypePlayer},
					{Name: "message", Type: command.TypeMessage},
				},
				Handler: e.tell,
			}},
		},
		"join": {
			Description: "Spawn a player at the origin",
			Permission:  command.PermissionOperator,
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{{Name: "name", Type: command.TypeString}},
				Handler:    e.join,
			}},
		},
		"setblock": {
			Description: "Replace a block",
			Permission:  command.PermissionOperator,
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{
					{Name: "pos", Type: command.TypePosition},
					{Name: "block", Type: command.TypeBlock},
				},
				Handler: e.setBlock,
			}},
		},
		"destroy": {
			Description: "Break a block as a player",
			Permission:  command.PermissionOperator,
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{
					{Name: "player", Type: command.TypePlayer},
					{Name: "pos", Type: command.TypePosition},
				},
				Handler: e.destroy,
			}},
		},
		"attack": {
			Description: "Attack an entity as a player",
			Permission:  command.PermissionOperator,
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{
					{Name: "player", Type: command.TypePlayer},
					{Name: "target", Type: command.TypeEntity},
				},
				Handler: e.attack,
			}},
		},
		"give": {
			Description: "Put an item stack into a player's inventory",
			Permission:  command.PermissionOperator,
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{
					{Name: "player", Type: command.TypePlayer},
					{Name: "item", Type: command.TypeString},
					{Name: "count", Type: command.TypeInt, Optional: true},
				},
				Handler: e.give,
			}},
		},
		"savestructure": {
			Description: "Save a region of blocks as a named structure",
			Permission:  command.PermissionAdmin,
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{
					{Name: "name", Type: command.TypeString},
					{Name: "pos", Type: command.TypePosition},
					{Name: "x", Type: command.TypeInt},
					{Name: "y", Type: command.TypeInt},
					{Name: "z", Type: command.TypeInt},
				},
				Handler: e.saveStructure,
			}},
		},
		"loadstructure": {
			Description: "Place a saved structure",
			Permission:  command.PermissionAdmin,
			Overloads: []command.Overload{{
				Parameters: []command.Parameter{
					{Name: "name", Type: command.TypeString},
					{Name: "pos", Type: command.TypePosition},
				},
				Handler: e.loadStructure,
			}},
		},
		"scripts": {
			Description: "List loaded scripts",
			Overloads:   []command.Overload{{Handler: e.listScripts}},
		},
		"policies": {
			Description: "List declared policies",
			Permission:  command.PermissionOperator,
			Overloads:   []command.Overload{{Handler: e.listPolicies}},
		},
	}

	for _, name := range []string{"help", "say", "tell", "join", "setblock", "destroy", "attack", "give", "savestructure", "loadstructure", "scripts", "policies"} {
		def := defs[name]
		def.Source = coreSource
		if err := e.commands.Register(name, def); err != nil {
			return err //nolint:wrapcheck // registry errors carry their own codes
		}
	}
	return nil
}

func (e *Engine) helpAll(_ context.Context, origin command.Origin, _ command.Args) (command.Result, error) {
	var b strings.Builder
	for _, entry := range e.commands.All() {
		if entry.Definition.Permission > origin.Permission {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "/%s - %s", entry.Name, entry.Definition.Description)
	}
	return command.Text(b.String()), nil
}

func (e *Engine) helpOne(_ context.Context, _ command.Origin, args command.Args) (command.Result, error) {
	name := strings.TrimPrefix(args.String("command"), "/")
	entry, ok := e.commands.Get(name)
	if !ok {
		return nil, command.ErrUnknownCommand(name)
	}
	return command.Text(strings.Join(command.Usage(entry.Name, entry.Definition), "\n")), nil
}

func (e *Engine) say(ctx context.Context, origin command.Origin, args command.Args) (command.Result, error) {
	text := fmt.Sprintf("[%s] %s", origin.Name, args.String("message"))
	if err := e.world.BroadcastText(ctx, text); err != nil {
		return nil, command.WorldError("message could not be sent", err)
	}
	return command.None{}, nil
}

func (e *Engine) tell(ctx context.Context, origin command.Origin, args command.Args) (command.Result, error) {
	text := fmt.Sprintf("%s whispers: %s", origin.Name, args.String("message"))
	targets := args.Entities("targets")
	for _, target := range targets {
		if err := e.world.SendText(ctx, target, text); err != nil {
			return nil, command.WorldError("message could not be sent", err)
		}
	}
	return command.Text(fmt.Sprintf("Told %d player(s)", len(targets))), nil
}

func (e *Engine) join(_ context.Context, origin command.Origin, args command.Args) (command.Result, error) {
	p, err := e.world.SpawnPlayer(args.String("name"), origin.Dimension, origin.Position)
	if err != nil {
		return nil, command.WorldError("player could not join", err)
	}
	return command.Structured{Fields: map[string]any{"name": p.Name, "id": p.ID, "dimension": p.Dimension}}, nil
}

func (e *Engine) setBlock(ctx context.Context, origin command.Origin, args command.Args) (command.Result, error) {
	block := args.Block("block")
	pos := args.Position("pos").BlockPos()
	state := game.BlockState{Name: block.ID, States: block.States}
	if err := e.world.SetBlock(ctx, dimensionOf(origin), pos, state, nil); err != nil {
		return nil, command.WorldError("block could not be placed", err)
	}
	return command.Text(fmt.Sprintf("Placed %s at %s", block, pos)), nil
}

func (e *Engine) destroy(ctx context.Context, origin command.Origin, args command.Args) (command.Result, error) {
	ref := game.BlockRef{Dimension: dimensionOf(origin), Pos: args.Position("pos").BlockPos()}
	var broken, prevented int
	for _, player := range args.Entities("player") {
		ok, err := e.world.DestroyBlock(ctx, player.ID, ref)
		if err != nil {
			return nil, command.WorldError("block could not be destroyed", err)
		}
		if ok {
			broken++
		} else {
			prevented++
		}
	}
	return command.Structured{Fields: map[string]any{"destroyed": broken, "prevented": prevented}}, nil
}

func (e *Engine) attack(ctx context.Context, _ command.Origin, args command.Args) (command.Result, error) {
	var allowed, prevented int
	for _, player := range args.Entities("player") {
		for _, target := range args.Entities("target") {
			ok, err := e.world.Attack(ctx, player.ID, target.ID)
			if err != nil {
				return nil, command.WorldError("attack failed", err)
			}
			if ok {
				allowed++
			} else {
				prevented++
			}
		}
	}
	return command.Structured{Fields: map[string]any{"allowed": allowed, "prevented": prevented}}, nil
}

func (e *Engine) give(_ context.Context, _ command.Origin, args command.Args) (command.Result, error) {
	count := int32(1)
	if args.Has("count") {
		count = args.Int("count")
	}
	if count < 1 || count > 127 {
		return nil, command.WorldError("count must be between 1 and 127", nil)
	}
	stack := world.ItemStack{ID: args.String("item"), Count: int8(count)}
	given := 0
	for _, player := range args.Entities("player") {
		if _, err := e.world.Give(player.ID, stack); err != nil {
			return nil, command.WorldError("item could not be given", err)
		}
		given++
	}
	return command.Text(fmt.Sprintf("Gave %d %s to %d player(s)", count, stack.ID, given)), nil
}

func (e *Engine) saveStructure(ctx context.Context, origin command.Origin, args command.Args) (command.Result, error) {
	if e.db == nil {
		return nil, command.WorldError("structures need a world database", nil)
	}
	size := structure.Size{X: args.Int("x"), Y: args.Int("y"), Z: args.Int("z")}
	s, err := structure.Get(ctx, e.world, dimensionOf(origin), args.Position("pos").BlockPos(), size)
	if err != nil {
		return nil, command.WorldError("structure could not be read", err)
	}
	name := args.String("name")
	if err := structure.Save(ctx, e.db, name, s); err != nil {
		return nil, command.WorldError("structure could not be saved", err)
	}
	return command.Text(fmt.Sprintf("Saved structure %s", name)), nil
}

func (e *Engine) loadStructure(ctx context.Context, origin command.Origin, args command.Args) (command.Result, error) {
	if e.db == nil {
		return nil, command.WorldError("structures need a world database", nil)
	}
	name := args.String("name")
	s, ok, err := structure.Load(ctx, e.db, name)
	if err != nil {
		return nil, command.WorldError("structure could not be loaded", err)
	}
	if !ok {
		return nil, command.WorldError(fmt.Sprintf("no structure named %s", name), nil)
	}
	pos := args.Position("pos").BlockPos()
	if err := structure.Set(ctx, e.world, dimensionOf(origin), pos, s); err != nil {
		return nil, command.WorldError("structure could not be placed", err)
	}
	return command.Text(fmt.Sprintf("Placed structure %s at %s", name, pos)), nil
}

func (e *Engine) listScripts(_ context.Context, _ command.Origin, _ command.Args) (command.Result, error) {
	scripts := e.Scripts()
	if len(scripts) == 0 {
		return command.Text("No scripts loaded"), nil
	}
	lines := make([]string, len(scripts))
	for i, s := range scripts {
		lines[i] = fmt.Sprintf("%s %s", s.Manifest.Name, s.Manifest.Version)
	}
	return command.Text(strings.Join(lines, "\n")), nil
}

func (e *Engine) listPolicies(_ context.Context, _ command.Origin, _ command.Args) (command.Result, error) {
	infos := e.policies.All()
	lines := make([]string, len(infos))
	for i, info := range infos {
		kind := "custom"
		if info.Builtin {
			kind = "builtin"
		}
		lines[i] = fmt.Sprintf("%s (%s, %d handler(s))", info.Name, kind, info.Handlers)
	}
	return command.Text(strings.Join(lines, "\n")), nil
}

func dimensionOf(origin command.Origin) string {
	if origin.Dimension == "" {
		return world.DefaultDimension
	}
	return origin.Dimension
}
