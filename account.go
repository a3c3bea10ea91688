// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// defaultRole is stored on every account created through registration.
const defaultRole = "pet_owner"

var (
	errAccountNotFound = errors.New("account not found")
	errDuplicateEmail  = errors.New("email already registered")
)

// Account is a pet owner who can login.
//
// PasswordHash is never serialized; always respond with
// Account.response() which lists the exposed fields explicitly.
type Account struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// accountResponse is the only JSON representation of an Account
// we write to clients.
type accountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Account) response() *accountResponse {
	if a == nil {
		return nil
	}
	return &accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}

// normalizeEmail trims and lowercases an email address so lookups
// and the unique constraint agree on what "the same email" means.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateID creates a new ID for our auth system.
// Do no assume anything about these ID's other than
// they are strings. Case matters
func generateID() string {
	return uuid.NewString()
}

type accountRepository interface {
	// create inserts a new account. errDuplicateEmail is returned
	// if another account already has the same email.
	create(ctx context.Context, a *Account) error

	// lookupByEmail finds an account by the given email address.
	// errAccountNotFound is returned if no account matches.
	lookupByEmail(ctx context.Context, email string) (*Account, error)

	lookupByID(ctx context.Context, id string) (*Account, error)
}
