// Package protocol implements the engine wire format: one JSON object per
// line, UTF-8, no framing. Grounded directly on
// original_source/src/kanata_tcp_types.rs, adapted from Rust's tagged enum
// to Go's usual "exactly one field set" wire struct.
package protocol

import "encoding/json"

// ClientMessage is one outbound command. Exactly one of ChangeLayer or
// ReloadNum is non-nil; MarshalJSON enforces that at encode time.
type ClientMessage struct {
	ChangeLayer *ChangeLayer
	ReloadNum   *ReloadNum
}

// ChangeLayer requests a named-layer switch.
type ChangeLayer struct {
	New string `json:"new"`
}

// ReloadNum requests a configuration-file swap by index.
type ReloadNum struct {
	Index uint `json:"index"`
}

// NewChangeLayer builds a ClientMessage requesting a layer switch.
func NewChangeLayer(layer string) ClientMessage {
	return ClientMessage{ChangeLayer: &ChangeLayer{New: layer}}
}

// NewReloadNum builds a ClientMessage requesting a config-file swap.
func NewReloadNum(index uint) ClientMessage {
	return ClientMessage{ReloadNum: &ReloadNum{Index: index}}
}

// MarshalJSON renders {"ChangeLayer":{"new":"..."}} or
// {"ReloadNum":{"index":N}}, matching the Rust source's serde-derived enum
// tagging.
func (m ClientMessage) MarshalJSON() ([]byte, error) {
	switch {
	case m.ChangeLayer != nil:
		return json.Marshal(struct {
			ChangeLayer ChangeLayer `json:"ChangeLayer"`
		}{*m.ChangeLayer})
	case m.ReloadNum != nil:
		return json.Marshal(struct {
			ReloadNum ReloadNum `json:"ReloadNum"`
		}{*m.ReloadNum})
	default:
		return nil, errEmptyMessage
	}
}

// ServerResponse is one inbound line from the engine:
// {"status":"Ok"} or {"status":"Error","msg":"..."}.
type ServerResponse struct {
	Status string  `json:"status"`
	Msg    *string `json:"msg,omitempty"`
}

const (
	StatusOK    = "Ok"
	StatusError = "Error"
)

var errEmptyMessage = jsonError("protocol: ClientMessage has neither ChangeLayer nor ReloadNum set")

type jsonError string

func (e jsonError) Error() string { return string(e) }
