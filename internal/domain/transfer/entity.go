package transfer

import (
	"time"
)

type (
	Policy string
	State  string

	Record struct {
		Code     string
		Filename string
		Location string
		Size     int64
		Expiry   time.Time
		Policy   Policy
		Owner    string
		State    State

		CreatedAt time.Time
	}
	Records []*Record

	CreateRequest struct {
		Filename string
		// Size is the declared content length, -1 when the caller does not know it.
		Size   int64
		Owner  string
		TTL    time.Duration
		Policy Policy
	}

	// Resolution is what a successful download resolution hands to the caller.
	Resolution struct {
		Code     string
		Filename string
		Location string
		Size     int64
		Policy   Policy
		Expiry   time.Time
	}
)

const (
	PolicyOneShot    Policy = "one_shot"
	PolicyPersistent Policy = "persistent"

	// StatePending marks a reserved code whose blob is not published yet.
	StatePending  State = "pending"
	StateActive   State = "active"
	StateConsumed State = "consumed"
	StateExpired  State = "expired"
	StateDeleted  State = "deleted"
)

func (p Policy) Valid() bool {
	return p == PolicyOneShot || p == PolicyPersistent
}

// ParsePolicy maps stored values to a Policy. Rows written before the
// policy column existed carry an empty value and read as persistent.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyOneShot {
		return PolicyOneShot
	}
	return PolicyPersistent
}

// IsExpired reports whether the record is past its expiry at now.
// A zero ttl yields a record that is already expired.
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.Expiry)
}

// Retired reports whether the record is a tombstone that only keeps its code reserved.
func (r *Record) Retired() bool {
	return r.State == StateConsumed || r.State == StateExpired || r.State == StateDeleted
}

func (r *Record) Resolution() *Resolution {
	return &Resolution{
		Code:     r.Code,
		Filename: r.Filename,
		Location: r.Location,
		Size:     r.Size,
		Policy:   r.Policy,
		Expiry:   r.Expiry,
	}
}
