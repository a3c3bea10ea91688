// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var errPasswordMismatch = errors.New("password mismatch")

type passwordHasher struct {
	cost int

	// dummy is compared against when no account matches a login so
	// both failure paths spend the same time in bcrypt.
	dummy []byte
}

func newPasswordHasher(cost int) (*passwordHasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(generateID()), cost)
	if err != nil {
		return nil, fmt.Errorf("password: %v", err)
	}
	return &passwordHasher{
		cost:  cost,
		dummy: dummy,
	}, nil
}

func (h *passwordHasher) hash(pass string) (string, error) {
	bs, err := bcrypt.GenerateFromPassword([]byte(pass), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(bs), nil
}

// check compares pass against hash. A non-nil error is returned
// if they don't match.
func (h *passwordHasher) check(hash, pass string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)); err != nil {
		return errPasswordMismatch
	}
	return nil
}

// burn runs a comparison which always fails.
func (h *passwordHasher) burn(pass string) {
	bcrypt.CompareHashAndPassword(h.dummy, []byte(pass))
}
