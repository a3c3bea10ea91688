// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"fmt"
	"strings"
)

// Toggle is an on/off switch read from the environment. The zero
// value means unset, so a profile's default applies.
type Toggle int8

const (
	toggleUnset Toggle = iota
	toggleOn
	toggleOff
)

// UnmarshalText accepts yes/no (and true/false, on/off, 1/0).
func (t *Toggle) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "":
		*t = toggleUnset
	case "yes", "true", "on", "1":
		*t = toggleOn
	case "no", "false", "off", "0":
		*t = toggleOff
	default:
		return fmt.Errorf("admin: unknown toggle %q, expected yes or no", text)
	}
	return nil
}

func (t Toggle) or(zero bool) bool {
	switch t {
	case toggleOn:
		return true
	case toggleOff:
		return false
	}
	return zero
}

// ProfileConfig selects which pprof profiles the admin listener serves.
//
// Profiles stay off the public listener since heap dumps can hold
// password hashes, signing secrets and emails.
type ProfileConfig struct {
	Allocs       Toggle `env:"PPROF_ALLOCS"`
	Block        Toggle `env:"PPROF_BLOCK"`
	Cmdline      Toggle `env:"PPROF_CMDLINE"`
	Goroutine    Toggle `env:"PPROF_GOROUTINE"`
	Heap         Toggle `env:"PPROF_HEAP"`
	Mutex        Toggle `env:"PPROF_MUTEX"`
	Profile      Toggle `env:"PPROF_PROFILE"`
	ThreadCreate Toggle `env:"PPROF_THREADCREATE"`
	Trace        Toggle `env:"PPROF_TRACE"`
}

// profiles lists every pprof profile we know of, in route order.
var profiles = []string{
	"allocs", "block", "cmdline", "goroutine", "heap",
	"mutex", "profile", "threadcreate", "trace",
}

// Enabled reports whether the named profile is served. threadcreate
// and trace are opt-in, everything else is on unless disabled.
func (c ProfileConfig) Enabled(name string) bool {
	switch name {
	case "allocs":
		return c.Allocs.or(true)
	case "block":
		return c.Block.or(true)
	case "cmdline":
		return c.Cmdline.or(true)
	case "goroutine":
		return c.Goroutine.or(true)
	case "heap":
		return c.Heap.or(true)
	case "mutex":
		return c.Mutex.or(true)
	case "profile":
		return c.Profile.or(true)
	case "threadcreate":
		return c.ThreadCreate.or(false)
	case "trace":
		return c.Trace.or(false)
	}
	return false
}
