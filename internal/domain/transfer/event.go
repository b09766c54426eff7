package transfer

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventCreated  EventKind = "transfer.created"
	EventConsumed EventKind = "transfer.consumed"
	EventExpired  EventKind = "transfer.expired"
	EventDeleted  EventKind = "transfer.deleted"
)

var EventKinds = []EventKind{EventCreated, EventConsumed, EventExpired, EventDeleted}

type Event struct {
	ID       uuid.UUID `json:"event_id"`
	Kind     EventKind `json:"event_kind"`
	TS       time.Time `json:"time_stamp"`
	Code     string    `json:"code"`
	Owner    string    `json:"owner"`
	Filename string    `json:"filename"`
	Actor    string    `json:"actor,omitempty"`
}

func NewEvent(kind EventKind, rec *Record, actor string, ts time.Time) Event {
	return Event{
		ID:       uuid.New(),
		Kind:     kind,
		TS:       ts,
		Code:     rec.Code,
		Owner:    rec.Owner,
		Filename: rec.Filename,
		Actor:    actor,
	}
}
