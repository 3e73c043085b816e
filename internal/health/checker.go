// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package health runs named liveness checks (store reachability,
// publisher connectivity) on demand and on a short cache, and reports
// an aggregate status for the /healthz endpoint.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sage-x-project/privault/internal/logger"
)

// Status is the outcome of a single check or the aggregate of all of
// them.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is one named check's most recent outcome.
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Check is a single health probe.
type Check func(ctx context.Context) error

// Checker runs named checks with a timeout and a short result cache,
// so a liveness probe hitting /healthz repeatedly doesn't re-dial the
// store or every peer on each request.
type Checker struct {
	mu       sync.RWMutex
	checks   map[string]Check
	timeout  time.Duration
	cacheTTL time.Duration
	cache    map[string]*cachedResult
	log      logger.Logger
}

type cachedResult struct {
	result    *CheckResult
	expiresAt time.Time
}

// NewChecker creates a Checker with a per-check timeout (default 5s)
// and a 10s result cache.
func NewChecker(timeout time.Duration) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		checks:   make(map[string]Check),
		timeout:  timeout,
		cacheTTL: 10 * time.Second,
		cache:    make(map[string]*cachedResult),
		log:      logger.GetDefaultLogger(),
	}
}

// WithLogger overrides the checker's logger. Returns the receiver for
// chaining at construction time.
func (c *Checker) WithLogger(l logger.Logger) *Checker {
	if l != nil {
		c.log = l
	}
	return c
}

// Register adds a named check, replacing any existing check of the
// same name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes one named check, using the cached result if it is
// still fresh.
func (c *Checker) Run(ctx context.Context, name string) (*CheckResult, error) {
	c.mu.RLock()
	check, ok := c.checks[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("health: no such check: %s", name)
	}

	if cached := c.cached(name); cached != nil {
		return cached, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check(checkCtx)
	result := &CheckResult{Name: name, Timestamp: time.Now(), Duration: time.Since(start)}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		c.log.Warn("health: check failed", logger.String("name", name), logger.Error(err))
	} else {
		result.Status = StatusHealthy
	}

	c.mu.Lock()
	c.cache[name] = &cachedResult{result: result, expiresAt: time.Now().Add(c.cacheTTL)}
	c.mu.Unlock()

	return result, nil
}

// RunAll executes every registered check concurrently.
func (c *Checker) RunAll(ctx context.Context) map[string]*CheckResult {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()

	results := make(map[string]*CheckResult, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			result, err := c.Run(ctx, name)
			if err != nil {
				result = &CheckResult{Name: name, Status: StatusUnhealthy, Message: err.Error(), Timestamp: time.Now()}
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return results
}

// OverallStatus returns the worst status across all registered
// checks; healthy if none are registered.
func (c *Checker) OverallStatus(ctx context.Context) Status {
	worst := StatusHealthy
	for _, result := range c.RunAll(ctx) {
		if result.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if result.Status == StatusDegraded {
			worst = StatusDegraded
		}
	}
	return worst
}

func (c *Checker) cached(name string) *CheckResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.cache[name]
	if !ok || time.Now().After(cached.expiresAt) {
		return nil
	}
	return cached.result
}

// StoreCheck wraps a store ping (RetrieveTransactions/TransactionCount
// style call) as a Check.
func StoreCheck(ping func(context.Context) error) Check {
	return func(ctx context.Context) error {
		if ping == nil {
			return fmt.Errorf("health: store check not configured")
		}
		return ping(ctx)
	}
}

// PublisherCheck wraps a connectivity probe for the peer publisher as
// a Check.
func PublisherCheck(probe func(context.Context) error) Check {
	return func(ctx context.Context) error {
		if probe == nil {
			return fmt.Errorf("health: publisher check not configured")
		}
		return probe(ctx)
	}
}
