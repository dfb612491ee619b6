package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	SubjectID uuid.UUID `json:"subjectId"`
	Role      string    `json:"role,omitempty"`
}

// PayloadEnvelope is the versioned wrapper stored in outbox_events and
// shipped to consumers. Data holds the event-specific payload.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
