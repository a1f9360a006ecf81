package forwarder

import (
	"encoding/hex"
	"strconv"

	"kudomarket/core/types"
)

const (
	EventTypeExecuted = "forwarder.executed"
)

// NewExecutedEvent returns the canonical payload for a verified relay
// execution. ok reflects the outcome of the dispatched call; the nonce is
// consumed either way.
func NewExecutedEvent(req *ForwardRequest, ok bool) *types.Event {
	attrs := make(map[string]string)
	if req != nil {
		attrs["from"] = hex.EncodeToString(req.From[:])
		attrs["to"] = hex.EncodeToString(req.To[:])
		attrs["nonce"] = strconv.FormatUint(req.Nonce, 10)
	}
	attrs["ok"] = strconv.FormatBool(ok)
	return &types.Event{Type: EventTypeExecuted, Attributes: attrs}
}
