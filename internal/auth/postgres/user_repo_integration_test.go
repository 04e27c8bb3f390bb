// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sigilauth/sigil/internal/auth"
	"github.com/sigilauth/sigil/internal/auth/postgres"
	"github.com/sigilauth/sigil/internal/store"
)

// setupUserRepo starts a PostgreSQL container, runs migrations, and returns
// a repository backed by a real pool.
func setupUserRepo() (*postgres.UserRepository, func(), error) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sigil_test"),
		tcpostgres.WithUsername("sigil"),
		tcpostgres.WithPassword("sigil"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	if err := migrator.Close(); err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return postgres.NewUserRepository(pool), cleanup, nil
}

var _ = Describe("UserRepository", func() {
	var repo *postgres.UserRepository
	var cleanup func()

	BeforeEach(func() {
		var err error
		repo, cleanup, err = setupUserRepo()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	newUser := func(username string) *auth.User {
		user, err := auth.NewUser(username, "not-a-real-hash", nil)
		Expect(err).NotTo(HaveOccurred())
		return user
	}

	Describe("Create", func() {
		It("assigns an ID and creation time", func() {
			ctx := context.Background()

			created, err := repo.Create(ctx, newUser("alice"))
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(created.CreatedAt).NotTo(BeZero())
			Expect(created.Roles).To(Equal([]string{"user"}))
		})

		It("rejects a duplicate username", func() {
			ctx := context.Background()

			_, err := repo.Create(ctx, newUser("alice"))
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.Create(ctx, newUser("alice"))
			Expect(err).To(HaveOccurred())

			var existsErr *auth.UserExistsError
			Expect(err).To(BeAssignableToTypeOf(existsErr))
			Expect(auth.IsUserExists(err)).To(BeTrue())
		})

		It("lets exactly one concurrent registration win", func() {
			ctx := context.Background()
			const attempts = 10

			var wg sync.WaitGroup
			errs := make([]error, attempts)
			for i := range attempts {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = repo.Create(ctx, newUser("contended"))
				}()
			}
			wg.Wait()

			winners := 0
			for _, err := range errs {
				if err == nil {
					winners++
				} else {
					Expect(auth.IsUserExists(err)).To(BeTrue(), "loser got %v", err)
				}
			}
			Expect(winners).To(Equal(1))

			stored, err := repo.FindByUsername(ctx, "contended")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Username).To(Equal("contended"))
		})
	})

	Describe("FindByUsername", func() {
		It("round-trips a created user", func() {
			ctx := context.Background()

			created, err := repo.Create(ctx, newUser("alice"))
			Expect(err).NotTo(HaveOccurred())

			found, err := repo.FindByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))
			Expect(found.Username).To(Equal("alice"))
			Expect(found.PasswordHash).To(Equal("not-a-real-hash"))
			Expect(found.Roles).To(Equal([]string{"user"}))
		})

		It("matches usernames case-sensitively", func() {
			ctx := context.Background()

			_, err := repo.Create(ctx, newUser("alice"))
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.FindByUsername(ctx, "Alice")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("returns ErrNotFound for a missing user", func() {
			ctx := context.Background()

			_, err := repo.FindByUsername(ctx, "ghost")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})
