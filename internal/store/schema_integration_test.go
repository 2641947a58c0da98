// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/specz/specz/internal/store"
)

func setupSchema() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("specz_test"),
		postgres.WithUsername("specz"),
		postgres.WithPassword("specz"),
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
		_ = container.Terminate(ctx)
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		return nil, nil, err
	}
	_ = migrator.Close()

	pool, err := store.OpenPool(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, cleanup, nil
}

func violation(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ = Describe("Schema", Ordered, func() {
	var (
		pool    *pgxpool.Pool
		cleanup func()
		ctx     context.Context
	)

	BeforeAll(func() {
		var err error
		pool, cleanup, err = setupSchema()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if cleanup != nil {
			cleanup()
		}
	})

	BeforeEach(func() {
		ctx = context.Background()
		_, err := pool.Exec(ctx, `TRUNCATE users, sessions, magic_links CASCADE`)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("users", func() {
		It("rejects a second row with the same email", func() {
			_, err := pool.Exec(ctx, `INSERT INTO users (id, email, created_at, updated_at) VALUES ('a', 'alice@example.com', now(), now())`)
			Expect(err).NotTo(HaveOccurred())

			_, err = pool.Exec(ctx, `INSERT INTO users (id, email, created_at, updated_at) VALUES ('b', 'alice@example.com', now(), now())`)
			Expect(violation(err)).To(Equal(pgerrcode.UniqueViolation))
		})

		It("allows a null password hash", func() {
			_, err := pool.Exec(ctx, `INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES ('c', 'bob@example.com', NULL, now(), now())`)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("sessions", func() {
		It("requires an existing user", func() {
			_, err := pool.Exec(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES ('s', 'missing', now())`)
			Expect(violation(err)).To(Equal(pgerrcode.ForeignKeyViolation))
		})

		It("keep their user from being deleted", func() {
			_, err := pool.Exec(ctx, `INSERT INTO users (id, email, created_at, updated_at) VALUES ('d', 'dan@example.com', now(), now())`)
			Expect(err).NotTo(HaveOccurred())
			_, err = pool.Exec(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES ('s1', 'd', now())`)
			Expect(err).NotTo(HaveOccurred())

			_, err = pool.Exec(ctx, `DELETE FROM users WHERE id = 'd'`)
			Expect(violation(err)).To(Equal(pgerrcode.ForeignKeyViolation))
		})
	})

	Describe("magic_links", func() {
		It("keeps one link per email", func() {
			_, err := pool.Exec(ctx, `INSERT INTO magic_links (id, email, expires_at, created_at) VALUES ('l1', 'bob@example.com', now(), now())`)
			Expect(err).NotTo(HaveOccurred())

			_, err = pool.Exec(ctx, `INSERT INTO magic_links (id, email, expires_at, created_at) VALUES ('l2', 'bob@example.com', now(), now())`)
			Expect(violation(err)).To(Equal(pgerrcode.UniqueViolation))
		})
	})
})
