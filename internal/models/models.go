// Package models holds the Contex domain types: DataItem, Agent,
// Subscription and Event, as defined in the data model.
package models

import "time"

// Format is the detected format tag for a published data item.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
	FormatXML      Format = "xml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatCode     Format = "code"
	FormatText     Format = "text"
)

// NotificationMethod selects an agent's delivery sink.
type NotificationMethod string

const (
	NotificationBroker  NotificationMethod = "broker"
	NotificationWebhook NotificationMethod = "webhook"
)

// DataItem is a project-scoped, data_key-unique published item (§3).
type DataItem struct {
	ProjectID string
	DataKey   string

	Raw        any
	Format     Format
	Normalized map[string]any // structured form, or {content, content_type} for unstructured
	IsStructured bool

	EmbeddingText   string
	EmbeddingVector []float32

	Sequence  int64
	Metadata  map[string]any
	UpdatedAt time.Time
}

// Agent is a project-scoped registered consumer (§3).
type Agent struct {
	ProjectID string
	AgentID   string

	Needs          []string
	NeedVectors    [][]float32
	Method         NotificationMethod
	BrokerChannel  string
	WebhookURL     string
	WebhookSecret  string

	LastSeenSequence int64
	Lagging          bool
	RegisteredAt     time.Time
}

// BrokerChannelName returns the canonical broker topic for this agent.
func (a *Agent) BrokerChannelName() string {
	return "agent:" + a.ProjectID + ":" + a.AgentID
}

// MatchEntry is one element of a Subscription's match set: a data_key that
// currently matches a need above threshold tau.
type MatchEntry struct {
	DataKey    string
	Similarity float32
	EntrySeq   int64
}

// Subscription is the derived, per-(agent,need) match set (§3). Not
// user-visible; owned and recomputed by the matcher (C5).
type Subscription struct {
	AgentID string
	NeedIdx int
	Need    string
	Matches map[string]MatchEntry // data_key -> entry
}

// EventType enumerates the three notification payload shapes (§6).
type EventType string

const (
	EventInitialContext EventType = "initial_context"
	EventDataUpdate     EventType = "event_data_update"
	EventGeneric        EventType = "event"
)

// Wire-level constant matching the literal spec'd JSON "type" value, kept
// distinct from the Go identifier above to avoid an awkward name collision
// with the "event" EventType.
const (
	WireTypeInitialContext = "initial_context"
	WireTypeDataUpdate     = "data_update"
	WireTypeEvent          = "event"
)

// Event is one entry in a project's event log (C6).
type Event struct {
	ProjectID string
	Sequence  int64
	Type      EventType
	Payload   any // one of InitialContextPayload, DataUpdatePayload, GenericEventPayload
	CreatedAt time.Time
}

// MatchedItem is a single matched data item, as delivered in notification
// payloads (§6).
type MatchedItem struct {
	DataKey    string  `json:"data_key"`
	Data       any     `json:"data"`
	Similarity float32 `json:"similarity"`
	Sequence   int64   `json:"sequence"`
}

// InitialContextPayload is the body of an initial_context notification.
type InitialContextPayload struct {
	Type     string                   `json:"type"`
	Sequence int64                    `json:"sequence"`
	Context  map[string][]MatchedItem `json:"context"`
}

// DataUpdatePayload is the body of a data_update notification.
type DataUpdatePayload struct {
	Type        string   `json:"type"`
	Sequence    int64    `json:"sequence"`
	DataKey     string   `json:"data_key"`
	Data        any      `json:"data"`
	MatchedNeeds []string `json:"matched_needs"`
}

// GenericEventPayload is the body of a generic "event" notification.
type GenericEventPayload struct {
	Type      string `json:"type"`
	EventType string `json:"event_type"`
	Sequence  int64  `json:"sequence"`
	Data      any    `json:"data"`
}
