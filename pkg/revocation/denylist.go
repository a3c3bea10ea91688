// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package revocation keeps a denylist of revoked token ids
// using BuntDB (https://github.com/tidwall/buntdb).
//
// Entries expire alongside the token they revoke, so the set
// only ever holds ids which could still pass signature checks.
package revocation

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"
)

// Denylist records revoked token ids. It's safe for concurrent use.
type Denylist struct {
	db  *buntdb.DB
	now func() time.Time
}

// New opens (or creates) a Denylist at path. ":memory:" keeps
// the denylist in memory only.
func New(path string) (*Denylist, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("revocation: open %s: %v", path, err)
	}
	return &Denylist{
		db:  db,
		now: time.Now,
	}, nil
}

func (d *Denylist) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func key(id string) string {
	return fmt.Sprintf("revoked:%s", id)
}

// Revoke adds id to the denylist until expiresAt. Ids which have
// already expired are not stored since verification rejects them anyway.
func (d *Denylist) Revoke(id string, expiresAt time.Time) error {
	if id == "" {
		return errors.New("revocation: empty token id")
	}
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}

	err := d.db.Update(func(tx *buntdb.Tx) error {
		opts := &buntdb.SetOptions{
			Expires: true,
			TTL:     ttl,
		}
		_, _, err := tx.Set(key(id), expiresAt.UTC().Format(time.RFC3339), opts)
		return err
	})
	if err != nil {
		return fmt.Errorf("revocation: problem revoking %s: %v", id, err)
	}
	return nil
}

// IsRevoked reports whether id is on the denylist.
func (d *Denylist) IsRevoked(id string) (bool, error) {
	var revoked bool
	err := d.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get(key(id))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return err
		}
		revoked = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("revocation: problem reading %s: %v", id, err)
	}
	return revoked, nil
}
