// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/specz/specz/internal/store"
	"github.com/specz/specz/pkg/errutil"
)

func TestMigrator_Lifecycle(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("specz_migrate"),
		postgres.WithUsername("specz"),
		postgres.WithPassword("specz"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = migrator.Close() })

	status, err := migrator.Status()
	require.NoError(t, err)
	assert.Zero(t, status.Version)
	assert.Empty(t, status.Applied)
	assert.Len(t, status.Pending, 3)

	err = migrator.Rollback(1)
	errutil.AssertErrorCode(t, err, "MIGRATION_ROLLBACK_FAILED")

	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Up(), "second Up is a no-op")

	status, err = migrator.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(3), status.Version)
	assert.False(t, status.Dirty)
	assert.Empty(t, status.Pending)

	require.NoError(t, migrator.Rollback(2))
	status, err = migrator.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), status.Version)
	current, ok := status.Current()
	require.True(t, ok)
	assert.Equal(t, "create_users", current.Name)
	assert.Len(t, status.Pending, 2)

	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Down())
	version, _, err := migrator.Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, migrator.Force(2))
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}
