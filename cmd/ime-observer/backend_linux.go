//go:build linux && !fcitx

package main

import (
	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/ime"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// defaultBackendFactory selects ibus by default. Building with -tags
// fcitx swaps this file out for backend_linux_fcitx.go.
func defaultBackendFactory(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg ime.Config) (ime.Backend, error) {
	return ime.NewIBusBackend(wc, tw, cfg)
}
