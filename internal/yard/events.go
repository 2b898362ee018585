package yard

import (
	"encoding/json"
	"time"
)

const EventCarChanged = "YardCarChanged"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // car id
	Payload       json.RawMessage `json:"payload"`
}

// ChangeNotification says a car was written or deleted. It is only a pointer:
// consumers must re-read the current record instead of trusting these flags.
type ChangeNotification struct {
	OwnerID       string `json:"owner_id"`
	CarID         string `json:"car_id"`
	ExistedBefore bool   `json:"existed_before"`
	ExistsAfter   bool   `json:"exists_after"`
}
