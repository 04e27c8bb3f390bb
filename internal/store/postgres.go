// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package store provides database pool construction and schema migrations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pool sizing defaults.
const (
	DefaultMinConns = 2
	DefaultMaxConns = 10
)

// connectBackoff bounds the startup ping loop: fibonacci backoff from 250ms,
// capped at 10s per attempt, giving up after 30s total.
const (
	connectBaseDelay  = 250 * time.Millisecond
	connectMaxDelay   = 10 * time.Second
	connectMaxElapsed = 30 * time.Second
)

// Open connects a pgx pool to the given database URL and verifies the
// connection with a ping. The ping is retried with backoff so a database
// that is still coming up (e.g. under docker-compose) does not fail the
// process immediately. Retrying stops once the connection is established;
// per-query retry policy is not this layer's concern.
func Open(ctx context.Context, databaseURL string, minConns, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_BAD_DSN").Wrap(err)
	}
	if minConns <= 0 {
		minConns = DefaultMinConns
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	cfg.MinConns = minConns
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").Wrap(err)
	}

	backoff := retry.WithCappedDuration(connectMaxDelay, retry.NewFibonacci(connectBaseDelay))
	backoff = retry.WithMaxDuration(connectMaxElapsed, backoff)

	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(pool.Ping(ctx))
	}); err != nil {
		pool.Close()
		return nil, oops.Code("STORE_PING_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
