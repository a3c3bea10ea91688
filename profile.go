// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

var errPetOwnerNotFound = errors.New("pet owner not found")

type profileResponse struct {
	Account *accountResponse `json:"account"`
}

func addProfileRoutes(router *mux.Router, svc *authService) {
	router.Methods("GET").Path("/profile").HandlerFunc(requireToken(svc.logger, svc.tokens, profileRoute(svc)))
}

func profileRoute(svc *authService) authedHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, id identity) {
		a, err := svc.accounts.lookupByID(r.Context(), id.accountID)
		if err != nil {
			// the token was valid, but its account is gone
			if errors.Is(err, errAccountNotFound) {
				encodeError(w, http.StatusNotFound, errPetOwnerNotFound)
				return
			}
			internalError(svc.logger, w, err, "profile", "could not load profile")
			return
		}
		if err := writeJSON(w, http.StatusOK, profileResponse{Account: a.response()}); err != nil {
			svc.logger.Log("profile", err)
		}
	}
}
