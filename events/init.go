package events

import (
	"encoding/json"

	"github.com/r3labs/sse/v2"
)

var Server *sse.Server

func Init() {
	server := sse.New()
	server.AutoReplay = false
	Server = server
}

// Publish sends v as a JSON payload on the named stream. Clients are
// expected to rehydrate themselves from the snapshot rather than apply
// diffs, so a frame that fails to marshal is simply dropped.
func Publish(stream string, v any) {
	if Server == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	Server.Publish(stream, &sse.Event{Data: data})
}
