package channel

import (
	"sort"
	"strings"
)

// Virtual channels exist for every user and never carry presence.
const (
	UserSearchID = "user-search"
	AIID         = "ai"
	NotebookID   = "notebook"

	dmPrefix = "dm_"
)

var virtualNames = map[string]string{
	UserSearchID: "Find User",
	AIID:         "Poly",
	NotebookID:   "My Notebook",
}

// DMID is the canonical channel id for the pair. It does not depend on
// argument order.
func DMID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return dmPrefix + strings.Join(ids, "_")
}

// IsVirtual reports whether id is one of the fixed virtual channels.
func IsVirtual(id string) bool {
	_, ok := virtualNames[id]
	return ok
}

// VirtualName returns the display name of a virtual channel.
func VirtualName(id string) string {
	return virtualNames[id]
}

// IsDM reports whether id has the shape of a direct-message channel.
func IsDM(id string) bool {
	_, _, ok := Participants(id)
	return ok
}

// Participants splits a DM id into its two user ids.
// User ids are uuids and never contain an underscore.
func Participants(id string) (string, string, bool) {
	rest, ok := strings.CutPrefix(id, dmPrefix)
	if !ok {
		return "", "", false
	}
	a, b, ok := strings.Cut(rest, "_")
	if !ok || a == "" || b == "" || strings.Contains(b, "_") {
		return "", "", false
	}
	return a, b, true
}

// PartnerID returns the other participant of a DM channel, or false when
// userID is not part of it.
func PartnerID(id, userID string) (string, bool) {
	a, b, ok := Participants(id)
	if !ok {
		return "", false
	}
	switch userID {
	case a:
		return b, true
	case b:
		return a, true
	}
	return "", false
}
