//go:build windows && !winonoff

package main

import (
	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/ime"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// defaultBackendFactory selects the keyboard-layout backend by default.
// Building with -tags winonoff swaps this file out for
// backend_windows_onoff.go.
func defaultBackendFactory(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg ime.Config) (ime.Backend, error) {
	return ime.NewLayoutBackend(wc, tw, cfg)
}
