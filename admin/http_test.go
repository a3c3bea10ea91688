// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caarlos0/env/v11"
)

func TestAdmin__metrics(t *testing.T) {
	svc := SetupServer(":0", ProfileConfig{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	svc.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected go runtime metrics")
	}
}

func TestAdmin__live(t *testing.T) {
	svc := SetupServer(":0", ProfileConfig{})

	// no checks
	w := httptest.NewRecorder()
	svc.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	if w.Code != http.StatusOK {
		t.Errorf("got %d", w.Code)
	}

	svc.AddLivenessCheck("good", func(context.Context) error { return nil })
	w = httptest.NewRecorder()
	svc.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	if w.Code != http.StatusOK {
		t.Errorf("got %d", w.Code)
	}

	svc.AddLivenessCheck("bad", func(context.Context) error { return errors.New("db down") })
	w = httptest.NewRecorder()
	svc.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/live", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "db down") {
		t.Errorf("got %s", w.Body.String())
	}
}

func TestAdmin__profileConfig(t *testing.T) {
	t.Setenv("PPROF_HEAP", "no")
	t.Setenv("PPROF_TRACE", "yes")

	var cfg ProfileConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name     string
		expected bool
	}{
		{"heap", false},         // disabled
		{"trace", true},         // enabled
		{"goroutine", true},     // default on
		{"threadcreate", false}, // default off
		{"unknown", false},
	}
	for i := range cases {
		if v := cfg.Enabled(cases[i].name); v != cases[i].expected {
			t.Errorf("%s: got %v", cases[i].name, v)
		}
	}

	// routes follow the config
	svc := SetupServer(":0", cfg)
	for path, code := range map[string]int{
		"/debug/pprof/heap":      http.StatusNotFound,
		"/debug/pprof/goroutine": http.StatusOK,
	} {
		w := httptest.NewRecorder()
		svc.Handler().ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != code {
			t.Errorf("%s: got %d", path, w.Code)
		}
	}
}

func TestAdmin__toggle(t *testing.T) {
	cases := []struct {
		input    string
		expected Toggle
		valid    bool
	}{
		{"", toggleUnset, true},
		{"yes", toggleOn, true},
		{"YES", toggleOn, true},
		{"true", toggleOn, true},
		{"no", toggleOff, true},
		{" off ", toggleOff, true},
		{"maybe", toggleUnset, false},
	}
	for i := range cases {
		var tog Toggle
		err := tog.UnmarshalText([]byte(cases[i].input))
		if cases[i].valid && (err != nil || tog != cases[i].expected) {
			t.Errorf("input=%q got %v, err=%v", cases[i].input, tog, err)
		}
		if !cases[i].valid && err == nil {
			t.Errorf("input=%q expected error", cases[i].input)
		}
	}

	var bad ProfileConfig
	t.Setenv("PPROF_HEAP", "maybe")
	if err := env.Parse(&bad); err == nil {
		t.Error("expected error")
	}
}
