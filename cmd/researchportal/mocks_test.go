// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package main

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lnmiit/researchportal/internal/scopus"
	"github.com/lnmiit/researchportal/internal/store"
)

// mockMigrator implements Migrator for testing.
type mockMigrator struct {
	mu       sync.Mutex
	calls    []string
	upErr    error
	downErr  error
	steps    []int
	forced   []int
	status   store.Status
	closeErr error
}

func (m *mockMigrator) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockMigrator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockMigrator) Up() error {
	m.record("up")
	return m.upErr
}

func (m *mockMigrator) Down() error {
	m.record("down")
	return m.downErr
}

func (m *mockMigrator) Steps(n int) error {
	m.record("steps")
	m.steps = append(m.steps, n)
	return m.downErr
}

func (m *mockMigrator) Force(version int) error {
	m.record("force")
	m.forced = append(m.forced, version)
	return nil
}

func (m *mockMigrator) Status() (store.Status, error) {
	m.record("status")
	return m.status, nil
}

func (m *mockMigrator) Close() error {
	m.record("close")
	return m.closeErr
}

// mockServer implements HTTPServer and ObservabilityServer for testing.
type mockServer struct {
	addr     string
	startErr error
	errCh    chan error
	registry *prometheus.Registry

	mu      sync.Mutex
	started bool
	stopped bool
}

func newMockServer(addr string) *mockServer {
	return &mockServer{addr: addr, errCh: make(chan error, 1), registry: prometheus.NewRegistry()}
}

func (m *mockServer) Start() (<-chan error, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	return m.errCh, nil
}

func (m *mockServer) Stop(context.Context) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	return nil
}

func (m *mockServer) Addr() string { return m.addr }

func (m *mockServer) Registry() *prometheus.Registry { return m.registry }

func (m *mockServer) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// stubScopus implements ScopusClient without network access.
type stubScopus struct{}

func (stubScopus) ValidateAuthorID(context.Context, string) (bool, error) { return true, nil }

func (stubScopus) FetchPublications(context.Context, string) ([]scopus.Document, error) {
	return nil, nil
}
