// Package realtime is the push side of the store: every write publishes a
// Change on a topic and sessions subscribe to the topics they watch.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
)

type Kind string

const (
	Added    Kind = "added"
	Modified Kind = "modified"
	Removed  Kind = "removed"
)

// Change is one document-level event on a topic.
type Change struct {
	Kind  Kind            `json:"kind"`
	Topic string          `json:"topic"`
	DocID string          `json:"doc_id"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the change payload into v.
func (c Change) Decode(v any) error {
	if len(c.Data) == 0 {
		return fmt.Errorf("change %s on %s has no data", c.Kind, c.Topic)
	}
	return json.Unmarshal(c.Data, v)
}

// NewChange builds a Change with data marshalled as JSON.
func NewChange(kind Kind, topic, docID string, data any) (Change, error) {
	ch := Change{Kind: kind, Topic: topic, DocID: docID}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Change{}, err
		}
		ch.Data = raw
	}
	return ch, nil
}

// Broker fans changes out to subscribers. Delivery is in publish order per
// topic. There is no ordering across topics.
type Broker interface {
	Publish(ctx context.Context, change Change) error
	// Subscribe returns a channel of changes for topic and a cancel func that
	// must be called to release the subscription. The subscription is live
	// when Subscribe returns.
	Subscribe(ctx context.Context, topic string) (<-chan Change, func(), error)
}

func MessagesTopic(channelKey string) string {
	return "messages:" + channelKey
}

func NotificationsTopic(recipientID string) string {
	return "dm_notifications:" + recipientID
}

func UserTopic(userID string) string {
	return "users:" + userID
}
