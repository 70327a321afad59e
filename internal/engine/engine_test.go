// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package engine_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/stonehook/internal/command"
	"github.com/holomush/stonehook/internal/engine"
	"github.com/holomush/stonehook/pkg/errutil"
)

func TestEngine_PhaseOrder(t *testing.T) {
	ctx := context.Background()
	e := engine.New(engine.Config{})
	defer e.Close(ctx) //nolint:errcheck // test cleanup

	assert.Equal(t, engine.PhaseNew, e.Phase())
	errutil.AssertErrorCode(t, e.Start(ctx), engine.CodeInvalidPhase)
	errutil.AssertErrorDomain(t, e.Start(ctx), "engine")

	require.NoError(t, e.Init(ctx))
	assert.Equal(t, engine.PhaseInitialized, e.Phase())
	errutil.AssertErrorCode(t, e.Init(ctx), engine.CodeInvalidPhase)

	require.NoError(t, e.Start(ctx))
	assert.True(t, e.Running())

	require.NoError(t, e.Close(ctx))
	assert.Equal(t, engine.PhaseStopped, e.Phase())
	require.NoError(t, e.Close(ctx))
}

func TestEngine_FailedInitCannotStart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	for name, code := range map[string]string{
		"agood":   `server.register_command("hello", { overloads = { { handler = function() return "hi" end } } })`,
		"zbroken": `this is not lua`,
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o750))
		manifest := "name: " + name + "\nversion: 1.0.0\nentry: main.lua\ncapabilities:\n  - command.register\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, "script.yaml"), []byte(manifest), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name, "main.lua"), []byte(code), 0o600))
	}

	e := engine.New(engine.Config{ScriptsDir: dir})
	defer e.Close(ctx) //nolint:errcheck // test cleanup

	err := e.Init(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zbroken")
	assert.Equal(t, engine.PhaseStopped, e.Phase())

	errutil.AssertErrorCode(t, e.Start(ctx), engine.CodeInvalidPhase)
	assert.False(t, e.Running())

	err = e.DispatchLine(ctx, command.Origin{Name: "console", Permission: command.PermissionOwner}, "hello", &bytes.Buffer{})
	errutil.AssertErrorCode(t, err, engine.CodeNotRunning)
	require.NoError(t, e.Close(ctx))
}

func TestEngine_DoBeforeInit(t *testing.T) {
	e := engine.New(engine.Config{})
	err := e.Do(context.Background(), func(context.Context) error { return nil })
	errutil.AssertErrorCode(t, err, engine.CodeNotRunning)

	err = e.DispatchLine(context.Background(), command.Origin{Name: "console"}, "help", &bytes.Buffer{})
	errutil.AssertErrorCode(t, err, engine.CodeNotRunning)
}

func TestEngine_DoInlineBeforeStart(t *testing.T) {
	ctx := context.Background()
	e := engine.New(engine.Config{})
	defer e.Close(ctx) //nolint:errcheck // test cleanup
	require.NoError(t, e.Init(ctx))

	ran := false
	require.NoError(t, e.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestEngine_SerializesWork(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	e := engine.New(engine.Config{TickRate: time.Millisecond})
	require.NoError(t, e.Init(ctx))
	require.NoError(t, e.Start(ctx))

	counter := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.Do(ctx, func(context.Context) error {
				counter++
				return nil
			}))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	require.Eventually(t, func() bool { return e.Tick() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, e.Close(ctx))
	errutil.AssertErrorCode(t, e.Do(ctx, func(context.Context) error { return nil }), engine.CodeNotRunning)
}

func TestEngine_WorkPanicIsReported(t *testing.T) {
	ctx := context.Background()
	e := engine.New(engine.Config{})
	require.NoError(t, e.Init(ctx))
	require.NoError(t, e.Start(ctx))
	defer e.Close(ctx) //nolint:errcheck // test cleanup

	before := testutil.ToFloat64(engine.WorkItems.WithLabelValues("error"))
	err := e.Do(ctx, func(context.Context) error { panic("boom") })
	errutil.AssertErrorCode(t, err, engine.CodeWorkPanicked)
	assert.InDelta(t, before+1, testutil.ToFloat64(engine.WorkItems.WithLabelValues("error")), 0)

	require.NoError(t, e.Do(ctx, func(context.Context) error { return nil }), "engine keeps serving after a panic")
}

func TestEngine_RateLimitsOrigins(t *testing.T) {
	ctx := context.Background()
	e := engine.New(engine.Config{RateLimit: &command.RateLimiterConfig{BurstCapacity: 1, SustainedRate: 0.1}})
	require.NoError(t, e.Init(ctx))
	require.NoError(t, e.Start(ctx))
	defer e.Close(ctx) //nolint:errcheck // test cleanup

	member := command.Origin{Name: "guest", Permission: command.PermissionMember}
	require.NoError(t, e.DispatchLine(ctx, member, "help", &bytes.Buffer{}))
	errutil.AssertErrorCode(t, e.DispatchLine(ctx, member, "help", &bytes.Buffer{}), command.CodeRateLimited)

	owner := command.Origin{Name: "console", Permission: command.PermissionOwner}
	for range 3 {
		require.NoError(t, e.DispatchLine(ctx, owner, "help", &bytes.Buffer{}))
	}
}

func TestEngine_SealsRegistriesOnStart(t *testing.T) {
	ctx := context.Background()
	e := engine.New(engine.Config{})
	defer e.Close(ctx) //nolint:errcheck // test cleanup

	require.NoError(t, e.Policies().Register("early:policy"))
	require.NoError(t, e.Init(ctx))
	require.NoError(t, e.Start(ctx))

	assert.True(t, e.Policies().Sealed())
	err := e.Commands().Register("late", command.Definition{
		Overloads: []command.Overload{{Handler: func(context.Context, command.Origin, command.Args) (command.Result, error) {
			return command.None{}, nil
		}}},
	})
	errutil.AssertErrorCode(t, err, command.CodeRegistrySealed)
}

func TestEngine_Status(t *testing.T) {
	ctx := context.Background()
	e := engine.New(engine.Config{TickRate: time.Millisecond})
	defer e.Close(ctx) //nolint:errcheck // test cleanup

	st := e.Status()
	assert.Equal(t, "new", st.Phase)
	assert.Zero(t, st.UptimeSeconds)
	assert.Empty(t, st.Scripts)

	require.NoError(t, e.Init(ctx))
	require.NoError(t, e.Start(ctx))
	require.Eventually(t, func() bool { return e.Status().Tick > 0 }, time.Second, time.Millisecond)

	st = e.Status()
	assert.Equal(t, "running", st.Phase)
	assert.Equal(t, len(e.Commands().All()), st.Commands)
	assert.Equal(t, len(e.Policies().All()), st.Policies)
	assert.Positive(t, st.Commands)
}
