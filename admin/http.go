// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupServer returns an admin Server which will bind to addr and
// serve the pprof profiles enabled in pprofCfg.
func SetupServer(addr string, pprofCfg ProfileConfig) *Server {
	timeout, _ := time.ParseDuration("45s")
	s := &Server{
		checks: make(map[string]LivenessCheck),
	}
	s.svc = &http.Server{
		Addr:         addr,
		Handler:      s.handler(pprofCfg),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  timeout,
	}
	return s
}

// LivenessCheck reports a dependency as unhealthy by returning an error.
type LivenessCheck func(ctx context.Context) error

// Server represents a holder around a net/http Server which
// is used for admin endpoints. (i.e. metrics, healthcheck)
type Server struct {
	svc *http.Server

	mu     sync.RWMutex
	checks map[string]LivenessCheck
}

func (s *Server) BindAddress() string {
	return s.svc.Addr
}

// AddLivenessCheck registers a check which is run on each GET /live
func (s *Server) AddLivenessCheck(name string, check LivenessCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Listen brings up the admin HTTP service. This call blocks.
func (s *Server) Listen() error {
	if s == nil || s.svc == nil {
		return nil
	}
	return s.svc.ListenAndServe()
}

// Shutdown unbinds the HTTP server.
func (s *Server) Shutdown() {
	if s == nil || s.svc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.svc.Shutdown(ctx)
}

// Handler returns the admin routes, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.svc.Handler
}

func (s *Server) handler(cfg ProfileConfig) http.Handler {
	r := mux.NewRouter()

	// prometheus metrics
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	r.Methods("GET").Path("/live").HandlerFunc(s.livenessRoute)

	// add all pprof handlers we've configured
	r.HandleFunc("/debug/pprof/", pprof.Index)
	for _, name := range profiles {
		if cfg.Enabled(name) {
			r.Handle(fmt.Sprintf("/debug/pprof/%s", name), pprof.Handler(name))
		}
	}

	return r
}

// livenessRoute runs every registered check, responding with
// "200 OK" only if all of them pass.
func (s *Server) livenessRoute(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]LivenessCheck, len(names))
	for i := range names {
		checks[i] = s.checks[names[i]]
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for i := range names {
		if err := checks[i](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[names[i]] = err.Error()
			continue
		}
		results[names[i]] = "good"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
