// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/go-kit/kit/log"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	stdprom "github.com/prometheus/client_golang/prometheus"
)

var (
	// migrations holds all our SQL migrations to be done (in order)
	migrations = []string{
		`create table if not exists pet_owners(id primary key, name not null, email not null unique, phone not null, password_hash not null, role, created_at timestamp);`,
	}

	// Metrics
	connections = kitprom.NewGaugeFrom(stdprom.GaugeOpts{
		Name: "sqlite_connections",
		Help: "How many sqlite connections and what status they're in.",
	}, []string{"state"})
)

type promMetricCollector struct {
	interval time.Duration
}

// run records db.Stats() until ctx is done.
func (p promMetricCollector) run(ctx context.Context, db *sql.DB) {
	if db == nil {
		return
	}
	if p.interval <= 0 {
		p.interval = time.Second
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		stats := db.Stats()
		connections.With("state", "idle").Set(float64(stats.Idle))
		connections.With("state", "inuse").Set(float64(stats.InUse))
		connections.With("state", "open").Set(float64(stats.OpenConnections))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sqlitePath cleans up the configured path.
func sqlitePath(path string) string {
	if path == "" || strings.Contains(path, "..") {
		// set default if empty or trying to escape
		// don't filepath.ABS to avoid full-fs reads
		path = "auth.db"
	}
	return path
}

func createConnection(logger log.Logger, path string) (*sql.DB, error) {
	// Concurrent writers wait on the lock rather than failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", path))
	if err != nil {
		err = fmt.Errorf("problem opening sqlite3 file: %v", err)
		logger.Log("sqlite", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("problem connecting to sqlite3 file: %v", err)
	}
	return db, nil
}

// migrate runs our database migrations (defined at the top of this file)
// over a sqlite database it creates first.
//
// You use db like any other database/sql driver.
//
// https://github.com/mattn/go-sqlite3/blob/master/_example/simple/simple.go
func migrate(logger log.Logger, path string) (*sql.DB, error) {
	path = sqlitePath(path)
	db, err := createConnection(logger, path)
	if err != nil {
		return nil, err
	}

	logger.Log("sqlite", fmt.Sprintf("migrating %s", path))
	for i := range migrations {
		row := migrations[i]
		res, err := db.Exec(row)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("migration #%d [%s...] had problem: %v", i, row[:40], err)
		}
		n, err := res.RowsAffected()
		if err == nil {
			logger.Log("sqlite", fmt.Sprintf("migration #%d [%s...] changed %d rows", i, row[:40], n))
		}
	}
	logger.Log("sqlite", "finished migrations")

	return db, nil
}

type sqliteAccountRepository struct {
	db *sql.DB
}

func (s *sqliteAccountRepository) close() error {
	return s.db.Close()
}

func (s *sqliteAccountRepository) create(ctx context.Context, a *Account) error {
	if a == nil {
		return errors.New("nil Account")
	}
	query := `insert into pet_owners (id, name, email, phone, password_hash, role, created_at) values (?, ?, ?, ?, ?, ?, ?);`
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, a.ID, a.Name, a.Email, a.Phone, a.PasswordHash, a.Role, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errDuplicateEmail
		}
		return fmt.Errorf("problem inserting account %s: %v", a.ID, err)
	}
	return nil
}

func (s *sqliteAccountRepository) lookupByEmail(ctx context.Context, email string) (*Account, error) {
	query := `select id, name, email, phone, password_hash, role, created_at from pet_owners where email = ? limit 1;`
	return s.queryOne(ctx, query, email)
}

func (s *sqliteAccountRepository) lookupByID(ctx context.Context, id string) (*Account, error) {
	query := `select id, name, email, phone, password_hash, role, created_at from pet_owners where id = ? limit 1;`
	return s.queryOne(ctx, query, id)
}

func (s *sqliteAccountRepository) queryOne(ctx context.Context, query string, arg string) (*Account, error) {
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var a Account
	var role sql.NullString
	err = stmt.QueryRowContext(ctx, arg).Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.PasswordHash, &role, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errAccountNotFound
		}
		return nil, err
	}
	a.Role = role.String
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
