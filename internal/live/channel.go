// Package live manages push channels that deliver full state snapshots for
// one resource class at a time.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/partnest/sparesync/pkg/enums"
)

// Topic identifies one push channel.
type Topic struct {
	Class  enums.ResourceClass
	UserID uuid.UUID
	Role   enums.MemberRole
}

// Validate checks the topic can be turned into a channel name.
func (t Topic) Validate() error {
	if !t.Class.IsValid() {
		return fmt.Errorf("invalid resource class %q", t.Class)
	}
	if t.UserID == uuid.Nil {
		return fmt.Errorf("live topic requires a user id")
	}
	if t.Class == enums.ResourceClassCatalog && !t.Role.IsValid() {
		return fmt.Errorf("catalog topic requires a role")
	}
	return nil
}

// Qualifiers are the channel name parts after the user id.
func (t Topic) Qualifiers() []string {
	if t.Class == enums.ResourceClassCatalog {
		return []string{t.Role.String()}
	}
	return nil
}

// Snapshot is one complete replacement payload.
type Snapshot struct {
	Class      enums.ResourceClass
	Data       json.RawMessage
	ReceivedAt time.Time
}

// Stream delivers snapshots until Close. The Snapshots channel is closed once
// the stream stops.
type Stream interface {
	Snapshots() <-chan Snapshot
	Close() error
}

// Channel opens streams.
type Channel interface {
	Open(ctx context.Context, topic Topic) (Stream, error)
}

// Envelope is the wire format of a pushed snapshot.
type Envelope struct {
	Class enums.ResourceClass `json:"class"`
	Data  json.RawMessage     `json:"data"`
}

// Encode wraps data in an Envelope for publishing.
func Encode(class enums.ResourceClass, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s snapshot: %w", class, err)
	}
	return json.Marshal(Envelope{Class: class, Data: raw})
}
