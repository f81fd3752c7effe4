package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/kimeobserver/ime-observer/internal/ime"
)

// Flags shared by all three subcommands: debug logging plus the
// per-backend tuning knobs that only apply on some platforms. Unused
// flags on other platforms are accepted but silently have no effect.
var (
	debugFlag bool

	pollingMS        int
	withoutPolling   bool
	retryNumberFlag  int
	sendMsgTimeoutMS int
	retrySpanMS      int
	delayMS          int
)

func addCommonFlags(flags *pflag.FlagSet) {
	flags.BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging")
	flags.IntVar(&pollingMS, "polling", -1, "polling span in milliseconds (windows, windows-onoff only)")
	flags.BoolVar(&withoutPolling, "without-polling", false, "disable polling (windows, windows-onoff only)")
	flags.IntVar(&retryNumberFlag, "retry-number", -1, "SendMessageTimeout retry count (windows-onoff only)")
	flags.IntVar(&sendMsgTimeoutMS, "sendmessage-timeout", -1, "SendMessageTimeout timeout in milliseconds (windows-onoff only)")
	flags.IntVar(&retrySpanMS, "retry-span", -1, "sleep between SendMessageTimeout retries, in milliseconds (windows-onoff only)")
	flags.IntVar(&delayMS, "delay", -1, "settle delay before querying IME status, in milliseconds (windows, windows-onoff, macos only)")
}

// backendConfigFromFlags overlays whatever the user set on top of
// ime.DefaultConfig, leaving platform defaults alone for anything left at
// its sentinel (-1/unset) value.
func backendConfigFromFlags() ime.Config {
	cfg := ime.DefaultConfig()

	switch {
	case withoutPolling:
		zero := time.Duration(0)
		cfg.PollingInterval = &zero
	case pollingMS >= 0:
		d := time.Duration(pollingMS) * time.Millisecond
		cfg.PollingInterval = &d
	}
	if retryNumberFlag >= 0 {
		cfg.RetryNumber = retryNumberFlag
	}
	if sendMsgTimeoutMS >= 0 {
		cfg.SendMessageTimeout = time.Duration(sendMsgTimeoutMS) * time.Millisecond
	}
	if retrySpanMS >= 0 {
		cfg.RetrySpan = time.Duration(retrySpanMS) * time.Millisecond
	}
	if delayMS >= 0 {
		cfg.Delay = time.Duration(delayMS) * time.Millisecond
	}

	return cfg
}
