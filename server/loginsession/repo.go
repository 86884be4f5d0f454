package loginsession

import (
	"time"

	"github.com/fishmapai/fishmap-gateway/adminapi"
	"github.com/fishmapai/fishmap-gateway/session"
)

// Session is one browser's admin session: the in-memory token store and the
// backend client whose cookie jar holds the refresh cookie.
type Session struct {
	ID    string
	Store *session.Store
	Admin *adminapi.Client

	CreatedAt time.Time
	LastSeen  time.Time
}

type Repo interface {
	Upsert(sessionID string, session Session) error
	Get(sessionID string) (Session, error)
	Touch(sessionID string, at time.Time) error
	Delete(sessionID string) error
	// IdleSince returns the sessions not seen since the given time.
	IdleSince(cutoff time.Time) []Session
	List() []Session
	Len() int
}
