package fanout

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/events"
)

// Envelope is the wire format for events sent over the fanout WebSocket.
type Envelope struct {
	Type      string            `json:"type"`
	ID        string            `json:"id,omitempty"`
	Kind      events.Kind       `json:"kind"`
	Mode      string            `json:"mode"`
	Entity    string            `json:"entity"`
	Code      string            `json:"code"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary"`
	Timestamp time.Time         `json:"ts"`
	Matches   []state.MatchInfo `json:"matches,omitempty"`
}

const envelopeType = "notification"

// MarshalEvent serializes an Event into a JSON-encoded Envelope.
func MarshalEvent(evt events.Event) ([]byte, error) {
	env := Envelope{
		Type:      envelopeType,
		ID:        evt.ID,
		Kind:      evt.Kind,
		Mode:      evt.Mode.String(),
		Entity:    evt.EntityID,
		Code:      evt.Code(),
		Title:     evt.Title(),
		Summary:   evt.Snapshot.Summary(),
		Timestamp: evt.Timestamp,
	}
	if m := evt.Snapshot.Match; m != nil {
		env.Matches = []state.MatchInfo{*m}
	} else {
		env.Matches = evt.Snapshot.Matches
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// UnmarshalEnvelope decodes one message received from the server.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type != envelopeType {
		return env, fmt.Errorf("unknown envelope type: %s", env.Type)
	}
	return env, nil
}
