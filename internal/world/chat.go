// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holomush/stonehook/internal/game"
)

// SendText delivers text to one player. Non-player and unknown targets
// are reported as errors.
func (w *World) SendText(ctx context.Context, target game.EntityRef, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[target.ID]
	if !ok || !e.Player {
		return errEntityNotFound(target.ID)
	}
	w.deliverLocked(ctx, e, text)
	return nil
}

// BroadcastText delivers text to every online player.
func (w *World) BroadcastText(ctx context.Context, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, e := range w.entities {
		if e.Player {
			w.deliverLocked(ctx, e, text)
			n++
		}
	}
	slog.DebugContext(ctx, "broadcast delivered", "recipients", n)
	return nil
}

func (w *World) deliverLocked(ctx context.Context, e *Entity, text string) {
	inbox := append(w.inboxes[e.ID], text)
	if over := len(inbox) - w.maxInbox; w.maxInbox > 0 && over > 0 {
		inbox = inbox[over:]
	}
	w.inboxes[e.ID] = inbox
	if w.chat != nil {
		if _, err := fmt.Fprintf(w.chat, "[%s] %s\n", e.Name, text); err != nil {
			slog.WarnContext(ctx, "chat log write failed", "error", err)
		}
	}
}

// Inbox returns the chat lines delivered to a player, oldest first.
func (w *World) Inbox(id string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.inboxes[id]...)
}
