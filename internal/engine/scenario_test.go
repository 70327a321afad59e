// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/samber/oops"

	"github.com/holomush/stonehook/internal/command"
	"github.com/holomush/stonehook/internal/engine"
	"github.com/holomush/stonehook/internal/game"
	"github.com/holomush/stonehook/internal/policy"
	"github.com/holomush/stonehook/internal/tag"
	"github.com/holomush/stonehook/internal/world"
)

var console = command.Origin{Name: "console", Permission: command.PermissionOwner}

func writeScript(root, name, caps, code string) {
	dir := filepath.Join(root, name)
	Expect(os.MkdirAll(dir, 0o750)).To(Succeed())
	manifest := "name: " + name + "\nversion: 1.0.0\nentry: main.lua\n"
	if caps != "" {
		manifest += "capabilities:\n"
	}
	for _, c := range strings.Fields(caps) {
		manifest += "  - " + c + "\n"
	}
	Expect(os.WriteFile(filepath.Join(dir, "script.yaml"), []byte(manifest), 0o600)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(dir, "main.lua"), []byte(code), 0o600)).To(Succeed())
}

func codeOf(err error) string {
	if o, ok := oops.AsOops(err); ok {
		code, _ := o.Code().(string)
		return code
	}
	return ""
}

var _ = Describe("Engine", func() {
	var (
		ctx        context.Context
		scriptsDir string
		dataDir    string
		eng        *engine.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		scriptsDir, err = os.MkdirTemp("", "stonehook-scripts-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, scriptsDir)
		dataDir, err = os.MkdirTemp("", "stonehook-data-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dataDir)
	})

	start := func() {
		eng = engine.New(engine.Config{ScriptsDir: scriptsDir, DataDir: dataDir, DBPath: "world.db"})
		DeferCleanup(func() { Expect(eng.Close(context.Background())).To(Succeed()) })
		Expect(eng.Init(ctx)).To(Succeed())
		Expect(eng.Start(ctx)).To(Succeed())
	}

	dispatch := func(line string) (string, error) {
		var out bytes.Buffer
		err := eng.DispatchLine(ctx, console, line, &out)
		return out.String(), err
	}

	Describe("policy chains", func() {
		BeforeEach(func() {
			writeScript(scriptsDir, "ns", "policy.*", `
server.register_policy("ns:test")
server.handle_policy("ns:test", function(data, is_last) end)
server.handle_policy("ns:test", function(data, is_last) return false end)
`)
			writeScript(scriptsDir, "guard", "policy.handle", `
server.handle_policy("stone:player_destroy_block", function(ev)
	if ev.block.y < 0 then return "deny" end
end)
`)
			start()
		})

		It("lets the last decisive handler win over the default", func() {
			var allowed bool
			Expect(eng.Do(ctx, func(ctx context.Context) error {
				var err error
				allowed, err = eng.CheckPolicy(ctx, "ns:test", policy.CustomEvent{Data: tag.Compound{"x": tag.Int(1)}}, true)
				return err
			})).To(Succeed())
			Expect(allowed).To(BeFalse())
		})

		It("falls back to the default for an unknown policy", func() {
			allowed, err := eng.CheckPolicy(ctx, "ns:missing", policy.CustomEvent{Data: tag.End{}}, true)
			Expect(err).To(HaveOccurred())
			Expect(codeOf(err)).To(Equal(policy.CodeUnknownPolicy))
			Expect(allowed).To(BeTrue())
		})

		It("gates world actions issued through commands", func() {
			_, err := dispatch("join Steve")
			Expect(err).NotTo(HaveOccurred())

			out, err := dispatch("destroy Steve 0 -5 0")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("{destroyed=0, prevented=1}\n"))

			out, err = dispatch("destroy Steve 0 64 0")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("{destroyed=1, prevented=0}\n"))
		})

		It("lists policies with their handler counts", func() {
			out, err := dispatch("policies")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("ns:test (custom, 2 handler(s))"))
			Expect(out).To(ContainSubstring("stone:player_destroy_block (builtin, 1 handler(s))"))
		})

		It("rejects registrations once started", func() {
			err := eng.Policies().Register("late:policy")
			Expect(err).To(HaveOccurred())
			Expect(codeOf(err)).To(Equal(policy.CodeRegistrySealed))
		})
	})

	Describe("commands", func() {
		BeforeEach(func() {
			writeScript(scriptsDir, "greeter", "command.register chat.broadcast", `
server.register_command("greet", {
	description = "Greet someone",
	overloads = {
		{
			parameters = { { name = "who", type = "string" } },
			handler = function(origin, args)
				server.broadcast_text("hello " .. args.who)
				return "greeted " .. args.who
			end,
		},
	},
})
`)
			start()
		})

		It("dispatches script commands on the engine goroutine", func() {
			_, err := dispatch("join Alex")
			Expect(err).NotTo(HaveOccurred())

			out, err := dispatch("greet Alex")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("greeted Alex\n"))

			p, ok := eng.World().PlayerByName("Alex")
			Expect(ok).To(BeTrue())
			Expect(eng.World().Inbox(p.ID)).To(ContainElement("hello Alex"))
		})

		It("lists core and script commands in help", func() {
			out, err := dispatch("help")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("/greet - Greet someone"))
			Expect(out).To(ContainSubstring("/say - Broadcast a message to every player"))
		})

		It("shows usage for a single command", func() {
			out, err := dispatch("help greet")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("/greet <who: string>\n"))
		})

		It("reports usage errors", func() {
			_, err := dispatch("greet")
			Expect(codeOf(err)).To(Equal(command.CodeUsage))
		})

		It("reports loaded scripts", func() {
			out, err := dispatch("scripts")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("greeter 1.0.0\n"))
		})
	})

	Describe("world commands", func() {
		BeforeEach(start)

		It("places blocks and gives items", func() {
			_, err := dispatch("setblock 1 2 3 minecraft:stone")
			Expect(err).NotTo(HaveOccurred())
			state, _, err := eng.World().Block(ctx, world.DefaultDimension, game.BlockPos{X: 1, Y: 2, Z: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Name).To(Equal("minecraft:stone"))

			_, err = dispatch("join Steve")
			Expect(err).NotTo(HaveOccurred())
			out, err := dispatch("give Steve minecraft:apple 3")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Gave 3 minecraft:apple to 1 player(s)\n"))
		})

		It("copies structures through the world database", func() {
			_, err := dispatch("setblock 0 0 0 minecraft:stone")
			Expect(err).NotTo(HaveOccurred())
			_, err = dispatch("setblock 1 0 0 minecraft:dirt")
			Expect(err).NotTo(HaveOccurred())

			out, err := dispatch("savestructure pair 0 0 0 2 1 1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Saved structure pair\n"))

			_, err = dispatch("loadstructure pair 10 5 10")
			Expect(err).NotTo(HaveOccurred())
			state, _, err := eng.World().Block(ctx, world.DefaultDimension, game.BlockPos{X: 11, Y: 5, Z: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Name).To(Equal("minecraft:dirt"))

			_, err = dispatch("loadstructure missing 0 0 0")
			Expect(codeOf(err)).To(Equal(command.CodeWorldError))
		})

		It("denies operator commands to members", func() {
			member := command.Origin{Name: "guest", Permission: command.PermissionMember}
			err := eng.DispatchLine(ctx, member, "join Mallory", &bytes.Buffer{})
			Expect(codeOf(err)).To(Equal(command.CodePermissionDenied))
		})
	})

	Describe("initialization failures", func() {
		It("aborts on conflicting registrations", func() {
			code := `server.register_command("dup", { overloads = { { handler = function() end } } })`
			writeScript(scriptsDir, "first", "command.register", code)
			writeScript(scriptsDir, "second", "command.register", code)

			eng = engine.New(engine.Config{ScriptsDir: scriptsDir})
			DeferCleanup(func() { Expect(eng.Close(context.Background())).To(Succeed()) })

			err := eng.Init(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("second"))
		})

		It("aborts when a script cannot load", func() {
			writeScript(scriptsDir, "broken", "", `this is not lua`)

			eng = engine.New(engine.Config{ScriptsDir: scriptsDir})
			DeferCleanup(func() { Expect(eng.Close(context.Background())).To(Succeed()) })

			Expect(eng.Init(ctx)).NotTo(Succeed())
		})
	})
})
