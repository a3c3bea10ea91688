// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

func addLogoutRoutes(router *mux.Router, svc *authService) {
	router.Methods("POST").Path("/logout").HandlerFunc(requireToken(svc.logger, svc.tokens, logoutRoute(svc)))
}

func logoutRoute(svc *authService) authedHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, id identity) {
		if err := svc.tokens.invalidate(id.claims); err != nil {
			err = fmt.Errorf("accountId=%s: %v", id.accountID, err)
			internalError(svc.logger, w, err, "logout", "could not invalidate token")
			return
		}
		authInactivations.With("method", "bearer").Add(1)
		if err := writeJSON(w, http.StatusOK, map[string]string{
			"message": "Successfully logged out",
		}); err != nil {
			svc.logger.Log("logout", err)
		}
	}
}
