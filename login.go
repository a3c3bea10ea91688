// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

var (
	errMissingCredentials = errors.New("email and password are required")

	// errInvalidCredentials is returned for unknown emails and wrong
	// passwords alike.
	errInvalidCredentials = errors.New("invalid credentials")
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	TokenType string           `json:"token_type"`
	ExpiresIn int64            `json:"expires_in"`
	Account   *accountResponse `json:"account"`
}

func addLoginRoutes(router *mux.Router, svc *authService) {
	router.Methods("POST").Path("/login").HandlerFunc(loginRoute(svc))
}

func loginRoute(svc *authService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var login loginRequest
		if err := decodeJSON(r, &login); err != nil {
			encodeError(w, http.StatusBadRequest, err)
			return
		}
		login.Email = normalizeEmail(login.Email)
		if login.Email == "" || login.Password == "" {
			encodeError(w, http.StatusBadRequest, errMissingCredentials)
			return
		}

		// find account by email
		a, err := svc.accounts.lookupByEmail(r.Context(), login.Email)
		if err != nil {
			if !errors.Is(err, errAccountNotFound) {
				internalError(svc.logger, w, err, "login", "could not login")
				return
			}
			svc.hasher.burn(login.Password)
			// Mark this (and password check) as failure only because
			// the account is involved at this point. Otherwise it's their
			// developer's problem (i.e. bad json).
			authFailures.With("method", "password").Add(1)
			encodeError(w, http.StatusUnauthorized, errInvalidCredentials)
			return
		}

		if err := svc.hasher.check(a.PasswordHash, login.Password); err != nil {
			authFailures.With("method", "password").Add(1)
			svc.logger.Log("login", fmt.Sprintf("accountId=%s failed: %v", a.ID, err))
			encodeError(w, http.StatusUnauthorized, errInvalidCredentials)
			return
		}

		// success route, let's finish!
		authSuccesses.With("method", "password").Add(1)
		token, claims, err := svc.tokens.issue(a)
		if err != nil {
			internalError(svc.logger, w, err, "login", "could not create token")
			return
		}
		tokenGenerations.With("method", "login").Add(1)

		resp := loginResponse{
			Token:     token,
			TokenType: "bearer",
			ExpiresIn: int64(claims.ExpiresAt.Sub(claims.IssuedAt.Time).Seconds()),
			Account:   a.response(),
		}
		if err := writeJSON(w, http.StatusOK, resp); err != nil {
			svc.logger.Log("login", err)
		}
	}
}
