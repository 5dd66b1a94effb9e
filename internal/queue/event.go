package queue

import "time"

// AuditQueue is the durable queue auth activity events are published to.
const AuditQueue = "auth.audit"

// Event kinds.
const (
	KindRegister      = "register"
	KindLogin         = "login"
	KindRefreshDenied = "refresh_denied"
	KindRevoke        = "revoke"
)

// AuthEvent is one auth activity record. UserID and Email may be zero when
// the actor could not be identified (a denied refresh, for example).
type AuthEvent struct {
	EventID string    `json:"eventId"`
	Kind    string    `json:"kind"`
	UserID  uint64    `json:"userId,omitempty"`
	Email   string    `json:"email,omitempty"`
	IP      string    `json:"ip,omitempty"`
	At      time.Time `json:"at"`
}
