// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

const (
	// maxReadBytes is the number of bytes to read
	// from a request body. It's intended to be used
	// with an io.LimitReader
	maxReadBytes = 1 * 1024 * 1024

	// apiPrefix is where every auth route is mounted.
	apiPrefix = "/v1/auth"
)

var errBodyTooLarge = errors.New("request body too large")

// read consumes an io.Reader (wrapping with io.LimitReader)
// and returns either the resulting bytes or a non-nil error.
func read(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil body")
	}
	bs, err := io.ReadAll(io.LimitReader(r, maxReadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(bs) > maxReadBytes {
		return nil, errBodyTooLarge
	}
	return bs, nil
}

// decodeJSON reads the request body into v. Errors returned are
// meant for the client.
func decodeJSON(r *http.Request, v interface{}) error {
	bs, err := read(r.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bs, v); err != nil {
		return errors.New("malformed JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// encodeError JSON encodes the supplied error message
// under the "error" key and writes status.
func encodeError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		return
	}
	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

// internalError logs err and responds with a generic 500. The
// message sent to the client is msg, never err itself.
func internalError(logger log.Logger, w http.ResponseWriter, err error, component string, msg string) {
	internalServerErrors.With("component", component).Add(1)
	logger.Log(component, err)
	encodeError(w, http.StatusInternalServerError, errors.New(msg))
}

// identity is the verified bearer of a request.
type identity struct {
	accountID string
	claims    *tokenClaims
}

// authedHandlerFunc is a handler which runs only after a bearer token
// has been verified. The caller's identity is passed explicitly.
type authedHandlerFunc func(w http.ResponseWriter, r *http.Request, id identity)

// extractBearerToken pulls the token out of an "Authorization: Bearer <token>" header.
func extractBearerToken(r *http.Request) (string, error) {
	if r == nil {
		return "", errors.New("nil request")
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization header format")
	}
	return token, nil
}

// requireToken verifies the request's bearer token before calling next.
func requireToken(logger log.Logger, tokens *tokenService, next authedHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := extractBearerToken(r)
		if err != nil {
			authFailures.With("method", "bearer").Add(1)
			encodeError(w, http.StatusUnauthorized, err)
			return
		}
		claims, err := tokens.verify(raw)
		if err != nil {
			if errors.Is(err, errInvalidToken) || errors.Is(err, errTokenRevoked) {
				authFailures.With("method", "bearer").Add(1)
				encodeError(w, http.StatusUnauthorized, err)
				return
			}
			internalError(logger, w, fmt.Errorf("verify token: %v", err), "bearer", "could not verify token")
			return
		}
		authSuccesses.With("method", "bearer").Add(1)
		next(w, r, identity{
			accountID: claims.Subject,
			claims:    claims,
		})
	}
}

// authService bundles what the auth routes need.
type authService struct {
	logger   log.Logger
	accounts accountRepository
	hasher   *passwordHasher
	tokens   *tokenService
}

func (svc *authService) handler() http.Handler {
	r := mux.NewRouter()
	r.Methods("GET").Path("/ping").HandlerFunc(pingRoute)

	api := r.PathPrefix(apiPrefix).Subrouter()
	addRegisterRoutes(api, svc)
	addLoginRoutes(api, svc)
	addProfileRoutes(api, svc)
	addLogoutRoutes(api, svc)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		encodeError(w, http.StatusNotFound, errors.New("not found"))
	})
	return r
}

func pingRoute(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("PONG"))
}
