// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

// threads runs driver-requested worker goroutines so that their exit can be
// observed and joined at teardown. Once Join has begun no new thread starts.
type threads struct {
	log    logging.Logger
	g      errgroup.Group
	active atomic.Int32

	mu     sync.Mutex
	joined bool
}

func (t *threads) Go(name string, start func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.joined {
		return ErrTerminated
	}
	t.active.Add(1)
	t.g.Go(func() (err error) {
		defer t.active.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("driver thread %s panicked: %v", name, r)
				t.log.Error(context.Background(), "driver thread panicked",
					logging.String("thread", name), logging.Any("panic", r))
			}
		}()
		t.log.Debug(context.Background(), "driver thread started", logging.String("thread", name))
		start()
		t.log.Debug(context.Background(), "driver thread exited", logging.String("thread", name))
		return nil
	})
	return nil
}

// Active returns the number of threads still running.
func (t *threads) Active() int { return int(t.active.Load()) }

// Join waits for every thread to exit or for ctx to end.
func (t *threads) Join(ctx context.Context) error {
	t.mu.Lock()
	t.joined = true
	t.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- t.g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("join driver threads (%d still running): %w", t.Active(), ctx.Err())
	}
}
