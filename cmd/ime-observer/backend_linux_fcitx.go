//go:build linux && fcitx

package main

import (
	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/ime"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// defaultBackendFactory selects fcitx, built with -tags fcitx.
func defaultBackendFactory(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg ime.Config) (ime.Backend, error) {
	return ime.NewFcitxBackend(wc, tw, cfg)
}
