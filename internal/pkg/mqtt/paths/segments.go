package paths

// Topic segments for the assistcart bridge.
// Every topic is built as {root}/{segment}/{cartID}.

// Downstream: operator -> cart
const (
	// Command carries a free-text or device-token command.
	// Payload: { "text": "시동 켜", "skip": false }
	// Pattern: {root}/command/{cartID}
	Command = "command"
)

// Upstream: cart -> operator
const (
	// CommandAck carries the dispatch result of one command.
	// Payload: { "status": "ok", "ack": "...", "sentCommand": "0", "skipped": false }
	// Pattern: {root}/command/ack/{cartID}
	CommandAck = "command/ack"

	// Status carries the retained vehicle status snapshot.
	// Pattern: {root}/status/{cartID}
	Status = "status"

	// Online carries the retained online flag; the broker publishes the
	// offline variant as the last will.
	// Payload: { "cartID": "...", "online": true/false, "reason": "..." }
	// Pattern: {root}/online/{cartID}
	Online = "online"
)
