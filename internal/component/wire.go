package component

// Wire envelopes for the signal endpoint. Encoded with msgpack; one
// Invoke per request, one Reply per response, streamed over a single
// connection.

// Invoke asks a component to perform an action.
type Invoke struct {
	Target  GID    `msgpack:"target"`
	Action  string `msgpack:"action"`
	Code    int64  `msgpack:"code,omitempty"`
	Message string `msgpack:"message,omitempty"`
}

// Reply reports the outcome of an Invoke.
type Reply struct {
	OK    bool   `msgpack:"ok"`
	Error string `msgpack:"error,omitempty"`
}
