// Package handlers translates the HTTP surface (§6) into orchestrator
// calls: request decoding and struct-tag validation via
// go-playground/validator (the teacher's
// internal/workers/processing/signal_analysis_schema.go pattern), then
// contexerr-to-status mapping on the way out.
package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/contex/internal/models"
)

var validate = validator.New()

// PublishRequest is the body of POST /data/publish (§6).
type PublishRequest struct {
	ProjectID  string         `json:"project_id" validate:"required"`
	DataKey    string         `json:"data_key" validate:"required"`
	Data       any            `json:"data" validate:"required"`
	DataFormat string         `json:"data_format"`
	Metadata   map[string]any `json:"metadata"`
}

func (r *PublishRequest) Validate() error { return validate.Struct(r) }

// RegisterRequest is the body of POST /agents/register (§6). LastSeen
// accepts either a JSON number or numeric string, matching the original
// SDK's looser wire contract (SPEC_FULL.md §C.3).
type RegisterRequest struct {
	AgentID            string          `json:"agent_id" validate:"required"`
	ProjectID          string          `json:"project_id" validate:"required"`
	DataNeeds          []string        `json:"data_needs" validate:"required,min=1"`
	NotificationMethod string          `json:"notification_method" validate:"required"`
	WebhookURL         string          `json:"webhook_url"`
	WebhookSecret      string          `json:"webhook_secret"`
	LastSeenSequence   json.RawMessage `json:"last_seen_sequence"`
}

func (r *RegisterRequest) Validate() error { return validate.Struct(r) }

// Method resolves the wire notification_method, accepting "redis" as a
// synonym for the broker sink (SPEC_FULL.md §C.1).
func (r *RegisterRequest) Method() (models.NotificationMethod, bool) {
	switch r.NotificationMethod {
	case "redis", "broker":
		return models.NotificationBroker, true
	case "webhook":
		return models.NotificationWebhook, true
	default:
		return "", false
	}
}

// ParsedLastSeenSequence decodes LastSeenSequence whether it arrived as a
// JSON number or a numeric string; ok is false if the field was absent.
func (r *RegisterRequest) ParsedLastSeenSequence() (value int64, ok bool) {
	if len(r.LastSeenSequence) == 0 {
		return 0, false
	}

	var asNumber int64
	if err := json.Unmarshal(r.LastSeenSequence, &asNumber); err == nil {
		return asNumber, true
	}

	var asString string
	if err := json.Unmarshal(r.LastSeenSequence, &asString); err == nil {
		if asString == "" {
			return 0, false
		}
		n, err := strconv.ParseInt(asString, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	return 0, false
}

// QueryRequest is the body of POST /query (§6).
type QueryRequest struct {
	ProjectID  string `json:"project_id" validate:"required"`
	Query      string `json:"query" validate:"required"`
	MaxResults int    `json:"max_results"`
}

func (r *QueryRequest) Validate() error { return validate.Struct(r) }
