package events

import (
	"encoding/json"
	"time"
)

type Action string

const (
	ActionCreated Action = "entry.created"
	ActionUpdated Action = "entry.updated"
	ActionDeleted Action = "entry.deleted"
)

// EntryEvent is the audit record published after each successful mutation.
// It carries identifiers only; consumers that need the full entry fetch it
// from the store.
type EntryEvent struct {
	EntryID    string    `json:"entry_id"`
	Owner      string    `json:"owner"`
	Action     Action    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEntryEvent stamps an event with the current time.
func NewEntryEvent(action Action, entryID, owner string) EntryEvent {
	return EntryEvent{
		EntryID:    entryID,
		Owner:      owner,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
}

func (m EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryEventFromJSON(data []byte) (EntryEvent, error) {
	var msg EntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return EntryEvent{}, err
	}
	return msg, nil
}
