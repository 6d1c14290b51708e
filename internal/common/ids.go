package common

import (
	"github.com/google/uuid"
)

// NewDeliveryID generates a unique per-delivery correlation ID. The webhook
// sink generates one per Deliver call and attaches the same ID to every
// retry attempt of that delivery, so retries can be traced together.
// Format: dlv_<uuid>
func NewDeliveryID() string {
	return "dlv_" + uuid.New().String()
}
