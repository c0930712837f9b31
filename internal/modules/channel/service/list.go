package channel

import "encoding/json"

// Channel is one entry of a user's joined-channel list.
type Channel struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsDM   bool   `json:"isDm"`
	Unread bool   `json:"unread"`
}

// UpsertEvent asks the list to create or refresh a channel.
type UpsertEvent struct {
	ID              string
	Name            string
	IsDM            bool
	UnreadCandidate bool
}

// Upsert returns a new list with the event's channel at the front and no
// other entry sharing its id. A known channel keeps its cached name. The
// channel is never marked unread while it is the active one.
func Upsert(list []Channel, ev UpsertEvent, activeID string) []Channel {
	name := ev.Name
	if existing, ok := find(list, ev.ID); ok {
		name = existing.Name
	}

	out := make([]Channel, 0, len(list)+1)
	out = append(out, Channel{
		ID:     ev.ID,
		Name:   name,
		IsDM:   ev.IsDM,
		Unread: ev.UnreadCandidate && ev.ID != activeID,
	})
	for _, c := range list {
		if c.ID != ev.ID {
			out = append(out, c)
		}
	}
	return out
}

// Delete returns a new list without id.
func Delete(list []Channel, id string) []Channel {
	out := make([]Channel, 0, len(list))
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// MarkRead returns a new list with the unread flag of id cleared.
func MarkRead(list []Channel, id string) []Channel {
	out := make([]Channel, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == id {
			out[i].Unread = false
		}
	}
	return out
}

func find(list []Channel, id string) (Channel, bool) {
	for _, c := range list {
		if c.ID == id {
			return c, true
		}
	}
	return Channel{}, false
}

// DefaultList is the list a user starts with.
func DefaultList() []Channel {
	return []Channel{{ID: UserSearchID, Name: VirtualName(UserSearchID), IsDM: false}}
}

// Decode parses a cached list. Anything that is not a JSON array of channel
// objects yields DefaultList. Entries without an id are dropped and later
// duplicates of an id are ignored.
func Decode(raw []byte) []Channel {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return DefaultList()
	}

	out := make([]Channel, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		var c Channel
		if err := json.Unmarshal(item, &c); err != nil || c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return DefaultList()
	}
	return out
}

func Encode(list []Channel) ([]byte, error) {
	if list == nil {
		list = []Channel{}
	}
	return json.Marshal(list)
}
