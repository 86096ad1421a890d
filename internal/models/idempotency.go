package models

import "time"

// IdempotencyState marks whether the guarded operation has finished.
type IdempotencyState string

const (
	IdempotencyStatePending   IdempotencyState = "pending"
	IdempotencyStateCompleted IdempotencyState = "completed"
)

// IdempotencyRecord stores the first successful response for a given
// (operation scope, key) pair. Replays within the retention window return
// ResponseBody verbatim instead of re-executing the mutation.
type IdempotencyRecord struct {
	Scope          string           `db:"scope" json:"scope"`
	Key            string           `db:"key" json:"key"`
	State          IdempotencyState `db:"state" json:"state"`
	ResponseStatus int              `db:"response_status" json:"response_status"`
	ResponseBody   []byte           `db:"response_body" json:"-"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	ExpiresAt      time.Time        `db:"expires_at" json:"expires_at"`
}
