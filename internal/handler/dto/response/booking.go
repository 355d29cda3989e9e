package response

import (
	"encoding/json"
	"time"

	"homecare-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type PriceResponse struct {
	BaseCents        int64 `json:"baseCents"`
	PlatformFeeCents int64 `json:"platformFeeCents"`
	TaxCents         int64 `json:"taxCents"`
	PayableCents     int64 `json:"payableCents"`
}

type BookingResponse struct {
	ID           uuid.UUID                 `json:"id"`
	ClientID     uuid.UUID                 `json:"clientId"`
	CaregiverID  *uuid.UUID                `json:"caregiverId,omitempty"`
	Kind         string                    `json:"kind"`
	ScheduledAt  time.Time                 `json:"scheduledAt"`
	Location     string                    `json:"location"`
	Details      json.RawMessage           `json:"details,omitempty"`
	Status       string                    `json:"status"`
	Price        PriceResponse             `json:"price"`
	Cancellation *queries.CancellationView `json:"cancellation,omitempty"`
	Rating       *queries.RatingView       `json:"rating,omitempty"`
	History      []queries.StatusStampView `json:"history,omitempty"`
	CreatedAt    time.Time                 `json:"createdAt"`
	UpdatedAt    time.Time                 `json:"updatedAt"`
}

type BookingListResponse struct {
	ID           uuid.UUID `json:"id"`
	Kind         string    `json:"kind"`
	ScheduledAt  time.Time `json:"scheduledAt"`
	Location     string    `json:"location"`
	Status       string    `json:"status"`
	PayableCents int64     `json:"payableCents"`
	CreatedAt    time.Time `json:"createdAt"`
}

func FromBookingView(v *queries.BookingView) *BookingResponse {
	return &BookingResponse{
		ID:          v.ID,
		ClientID:    v.ClientID,
		CaregiverID: v.CaregiverID,
		Kind:        v.Kind,
		ScheduledAt: v.ScheduledAt,
		Location:    v.Location,
		Details:     v.Details,
		Status:      v.Status,
		Price: PriceResponse{
			BaseCents:        v.BaseCents,
			PlatformFeeCents: v.PlatformFeeCents,
			TaxCents:         v.TaxCents,
			PayableCents:     v.PayableCents,
		},
		Cancellation: v.Cancellation,
		Rating:       v.Rating,
		History:      v.History,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func FromBookingListItem(item *queries.BookingListItem) *BookingListResponse {
	return &BookingListResponse{
		ID:           item.ID,
		Kind:         item.Kind,
		ScheduledAt:  item.ScheduledAt,
		Location:     item.Location,
		Status:       item.Status,
		PayableCents: item.PayableCents,
		CreatedAt:    item.CreatedAt,
	}
}
