//go:build darwin

package main

import (
	"github.com/kimeobserver/ime-observer/internal/fatalerr"
	"github.com/kimeobserver/ime-observer/internal/ime"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

func defaultBackendFactory(wc *wakeup.Channel, tw *fatalerr.Tripwire, cfg ime.Config) (ime.Backend, error) {
	return ime.NewMacOSBackend(wc, tw, cfg)
}
