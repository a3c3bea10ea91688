// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
)

func createTestAccountRepository(t *testing.T) *sqliteAccountRepository {
	t.Helper()

	db, err := migrate(log.NewNopLogger(), filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatal(err)
	}
	repo := &sqliteAccountRepository{db}
	t.Cleanup(func() { repo.close() })
	return repo
}

func TestSqlite__path(t *testing.T) {
	cases := []struct {
		input, expected string
	}{
		{"", "auth.db"},
		{"../../etc/auth.db", "auth.db"},
		{"/var/lib/auth/auth.db", "/var/lib/auth/auth.db"},
	}
	for i := range cases {
		if res := sqlitePath(cases[i].input); res != cases[i].expected {
			t.Errorf("input=%q got %q", cases[i].input, res)
		}
	}
}

func TestSqlite__migrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	for i := 0; i < 2; i++ {
		db, err := migrate(log.NewNopLogger(), path)
		if err != nil {
			t.Fatalf("run #%d: %v", i, err)
		}
		db.Close()
	}
}

func TestSqliteAccountRepository(t *testing.T) {
	repo := createTestAccountRepository(t)
	ctx := context.Background()

	// nothing yet
	if _, err := repo.lookupByEmail(ctx, "a@x.com"); !errors.Is(err, errAccountNotFound) {
		t.Errorf("got %v", err)
	}

	account := &Account{
		ID:           generateID(),
		Name:         "Alice",
		Email:        "a@x.com",
		Phone:        "12345678",
		PasswordHash: "hash",
		Role:         defaultRole,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.create(ctx, account); err != nil {
		t.Fatal(err)
	}

	byEmail, err := repo.lookupByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	byID, err := repo.lookupByID(ctx, account.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range []*Account{byEmail, byID} {
		if a.ID != account.ID || a.Name != "Alice" || a.Phone != "12345678" || a.PasswordHash != "hash" || a.Role != defaultRole {
			t.Errorf("got %#v", a)
		}
		if !a.CreatedAt.Equal(account.CreatedAt) {
			t.Errorf("created_at=%v expected %v", a.CreatedAt, account.CreatedAt)
		}
	}

	if _, err := repo.lookupByID(ctx, "missing"); !errors.Is(err, errAccountNotFound) {
		t.Errorf("got %v", err)
	}
}

func TestSqliteAccountRepository__duplicateEmail(t *testing.T) {
	repo := createTestAccountRepository(t)
	ctx := context.Background()

	first := &Account{ID: generateID(), Name: "Alice", Email: "a@x.com", Phone: "12345678", PasswordHash: "hash", CreatedAt: time.Now()}
	if err := repo.create(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &Account{ID: generateID(), Name: "Bob", Email: "a@x.com", Phone: "87654321", PasswordHash: "hash", CreatedAt: time.Now()}
	if err := repo.create(ctx, second); !errors.Is(err, errDuplicateEmail) {
		t.Errorf("got %v", err)
	}
	if err := repo.create(ctx, nil); err == nil {
		t.Error("expected error")
	}
}

func TestSqlite__metricCollector(t *testing.T) {
	repo := createTestAccountRepository(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		promMetricCollector{interval: time.Millisecond}.run(ctx, repo.db)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("collector didn't stop")
	}
}
