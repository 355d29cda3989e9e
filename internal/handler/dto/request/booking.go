package request

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	Kind        string          `json:"kind" binding:"required"`
	ScheduledAt time.Time       `json:"scheduledAt" binding:"required"`
	Location    string          `json:"location" binding:"required"`
	Details     json.RawMessage `json:"details,omitempty"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (r CancelBookingRequest) TrimmedReason() string {
	return strings.TrimSpace(r.Reason)
}

type ReviewBookingRequest struct {
	Score   int            `json:"score" binding:"required"`
	Review  string         `json:"review,omitempty"`
	Aspects map[string]int `json:"aspects,omitempty"`
}

type AssignCaregiverRequest struct {
	CaregiverID uuid.UUID `json:"caregiverId" binding:"required"`
}
