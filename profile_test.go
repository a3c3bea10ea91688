// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"strings"
	"testing"
)

func TestProfile(t *testing.T) {
	ta := newTestAuth(t)

	w := ta.register(t, "Alice", "a@x.com", "12345678", "secret12", "secret12")
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	var signup signupResponse
	decodeBody(t, w, &signup)

	w = ta.do(t, "GET", "/v1/auth/profile", nil, signup.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("password leaked: %s", w.Body.String())
	}
	var resp profileResponse
	decodeBody(t, w, &resp)
	if resp.Account.ID != signup.Account.ID || resp.Account.Name != "Alice" || resp.Account.Phone != "12345678" {
		t.Errorf("got %#v", resp.Account)
	}
}

func TestProfile__unauthorized(t *testing.T) {
	ta := newTestAuth(t)

	if w := ta.do(t, "GET", "/v1/auth/profile", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("got %d", w.Code)
	}
	if w := ta.do(t, "GET", "/v1/auth/profile", nil, "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("got %d", w.Code)
	}
}

func TestProfile__deletedAccount(t *testing.T) {
	ta := newTestAuth(t)

	w := ta.register(t, "Alice", "a@x.com", "12345678", "secret12", "secret12")
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	var signup signupResponse
	decodeBody(t, w, &signup)

	if _, err := ta.db.Exec(`delete from pet_owners where id = ?`, signup.Account.ID); err != nil {
		t.Fatal(err)
	}

	w = ta.do(t, "GET", "/v1/auth/profile", nil, signup.Token)
	if w.Code != http.StatusNotFound {
		t.Errorf("got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "pet owner not found") {
		t.Errorf("got %s", w.Body.String())
	}
}
