//go:build windows && winonoff

package main

import (
	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/ime"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// defaultBackendFactory selects the IME on/off backend, built with
// -tags winonoff.
func defaultBackendFactory(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg ime.Config) (ime.Backend, error) {
	return ime.NewOnOffBackend(wc, tw, cfg)
}
