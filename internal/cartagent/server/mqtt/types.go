package mqtt

import "github.com/autopeer-io/assistcart/internal/cartagent/service"

// CommandMessage is published by an operator on the command topic.
type CommandMessage struct {
	// RequestID is echoed in the acknowledgement.
	RequestID string `json:"requestId,omitempty"`
	Text      string `json:"text,omitempty"`
	// Command is accepted as an alias of Text.
	Command string `json:"command,omitempty"`
	Skip    bool   `json:"skip,omitempty"`
}

// AckMessage is the dispatch result published on the ack topic.
type AckMessage struct {
	RequestID string `json:"requestId,omitempty"`
	service.Result
}

// OnlineStatus is the retained presence flag of a cart.
// The offline variant doubles as the MQTT last will.
type OnlineStatus struct {
	CartID string `json:"cartID"`
	Online bool   `json:"online"`
	Reason string `json:"reason,omitempty"`
}
