package message

import (
	"fmt"

	"github.com/hellocym/SwarmClone/internal/role"
)

// KV is one payload field rendered for the get_messages control-plane
// response: {key, value}, value stringified the way the reference
// implementation's repr()-based wire format does.
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DictEntry is the exact shape get_messages returns per history entry.
type DictEntry struct {
	MessageName         string        `json:"message_name"`
	SendTime            int64         `json:"send_time"`
	MessageType         Kind          `json:"message_type"`
	MessageSource       string        `json:"message_source"`
	MessageDestinations []role.Role   `json:"message_destinations"`
	Message             []KV          `json:"message"`
	Getters             []Observation `json:"getters"`
}

// DictRepr renders the message into the get_messages wire shape. Field
// ordering within Payload is unspecified in Go maps, so callers that need a
// stable order should have built Payload with that in mind (the catalog
// constructors above always use small, fixed key sets).
func (m *Message) DictRepr() DictEntry {
	kvs := make([]KV, 0, len(m.Payload))
	for k, v := range m.Payload {
		kvs = append(kvs, KV{Key: k, Value: fmt.Sprintf("%v", v)})
	}
	return DictEntry{
		MessageName:         m.Name,
		SendTime:            m.SendTime,
		MessageType:         m.Kind,
		MessageSource:       m.Source.Name,
		MessageDestinations: m.Destinations,
		Message:             kvs,
		Getters:             m.ObservedBy(),
	}
}
