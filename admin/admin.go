// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package admin serves the operator endpoints (metrics, liveness
// and pprof) on a listener separate from the public API.
package admin

import (
	"runtime"
)

// Init turns on runtime sampling for the block and mutex profiles
// when cfg serves them.
func Init(cfg ProfileConfig) {
	if cfg.Enabled("block") {
		runtime.SetBlockProfileRate(1)
	}
	if cfg.Enabled("mutex") {
		runtime.SetMutexProfileFraction(1)
	}
}
