// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/stonehook/internal/store"
	"github.com/holomush/stonehook/internal/tag"
)

var _ = Describe("On-disk store", func() {
	var (
		ctx     context.Context
		dataDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		dataDir, err = os.MkdirTemp("", "stonehook-store-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dataDir)
	})

	It("keeps tags across reopen", func() {
		db, err := store.Open(ctx, store.Options{DataDir: dataDir, Path: "world.db", Migrate: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.PutTag(ctx, "component", "entity:e1", tag.Compound{"a": tag.Byte(1)})).To(Succeed())
		Expect(db.Close()).To(Succeed())

		Expect(filepath.Join(dataDir, "world.db")).To(BeARegularFile())

		db, err = store.Open(ctx, store.Options{DataDir: dataDir, Path: "world.db", Migrate: true})
		Expect(err).NotTo(HaveOccurred())
		defer db.Close() //nolint:errcheck // test cleanup

		got, ok, err := db.GetTag(ctx, "component", "entity:e1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(tag.Equal(got, tag.Compound{"a": tag.Byte(1)})).To(BeTrue())
	})

	It("rolls the schema back and forward", func() {
		db, err := store.Open(ctx, store.Options{DataDir: dataDir, Path: "m.db", Migrate: true})
		Expect(err).NotTo(HaveOccurred())
		defer db.Close() //nolint:errcheck // test cleanup

		m := db.Migrator()
		Expect(m.Steps(-1)).To(Succeed())
		Expect(m.PendingMigrations()).To(Equal([]uint{2}))
		Expect(m.Up()).To(Succeed())
		Expect(m.AppliedMigrations()).To(Equal([]uint{1, 2}))
	})
})
