//go:build e2e

package booking_test

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"homecare-booking/internal/handler/dto/request"
	"homecare-booking/internal/handler/dto/response"
	"homecare-booking/tests/common/authtest"
	"homecare-booking/tests/common/httptest"
	"homecare-booking/tests/e2e"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	bookingsURL         = "/api/bookings"
	operatorBookingsURL = "/api/operator/bookings"
)

type BookingSuite struct {
	e2e.SharedSuite
}

func (s *BookingSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestBookingSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(BookingSuite))
}

func (s *BookingSuite) createBooking(t *testing.T, token string, scheduledAt time.Time) response.BookingResponse {
	t.Helper()

	reqBody := request.CreateBookingRequest{
		Kind:        "nursing",
		ScheduledAt: scheduledAt,
		Location:    "12 Rosewood Lane",
	}
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, bookingsURL, reqBody, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created response.BookingResponse
	httptest.DecodeResponseBody(t, w.Body, &created)
	require.NotEqual(t, uuid.Nil, created.ID)

	return created
}

func (s *BookingSuite) operatorPost(t *testing.T, token string, bookingID uuid.UUID, action string, body any) *response.BookingResponse {
	t.Helper()

	url := operatorBookingsURL + "/" + bookingID.String() + "/" + action
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, url, body, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated response.BookingResponse
	httptest.DecodeResponseBody(t, w.Body, &updated)
	return &updated
}

// =============================================================================
// TestBookingLifecycle - full path from request to review
// =============================================================================

func (s *BookingSuite) TestBookingLifecycle() {
	s.Run("Normal case: booking moves through the full lifecycle and gets reviewed", func() {
		t := s.T()

		clientID := uuid.New()
		clientToken := authtest.ClientToken(t, s.Config.JWT, clientID)
		operatorToken := authtest.OperatorToken(t, s.Config.JWT)

		created := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))
		require.Equal(t, "requested", created.Status)
		require.Equal(t, clientID, created.ClientID)
		require.Equal(t, int64(1000), created.Price.BaseCents)
		require.Equal(t, int64(150), created.Price.PlatformFeeCents)
		require.Equal(t, int64(207), created.Price.TaxCents)
		require.Equal(t, int64(1357), created.Price.PayableCents)
		require.Len(t, created.History, 1)

		searching := s.operatorPost(t, operatorToken, created.ID, "search", nil)
		require.Equal(t, "searching", searching.Status)

		caregiverID := uuid.New()
		assigned := s.operatorPost(t, operatorToken, created.ID, "assign",
			request.AssignCaregiverRequest{CaregiverID: caregiverID})
		require.Equal(t, "assigned", assigned.Status)
		require.NotNil(t, assigned.CaregiverID)
		require.Equal(t, caregiverID, *assigned.CaregiverID)

		confirmed := s.operatorPost(t, operatorToken, created.ID, "confirm", nil)
		require.Equal(t, "confirmed", confirmed.Status)

		completed := s.operatorPost(t, operatorToken, created.ID, "complete", nil)
		require.Equal(t, "completed", completed.Status)
		require.Len(t, completed.History, 5)

		reviewURL := bookingsURL + "/" + created.ID.String() + "/review"
		reviewBody := request.ReviewBookingRequest{
			Score:   5,
			Review:  "Attentive and punctual",
			Aspects: map[string]int{"punctuality": 5, "communication": 4},
		}
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, reviewURL, reviewBody, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var reviewed response.BookingResponse
		httptest.DecodeResponseBody(t, w.Body, &reviewed)
		require.Equal(t, "completed", reviewed.Status)
		require.NotNil(t, reviewed.Rating)
		require.Equal(t, 5, reviewed.Rating.Score)

		// Second review must be rejected
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, reviewURL, reviewBody, clientToken)
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})

	s.Run("Error case: transitions cannot skip states", func() {
		t := s.T()

		clientToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		operatorToken := authtest.OperatorToken(t, s.Config.JWT)

		created := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))

		url := operatorBookingsURL + "/" + created.ID.String() + "/confirm"
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, url, nil, operatorToken)
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})

	s.Run("Error case: operator endpoints reject client tokens", func() {
		t := s.T()

		clientToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		created := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))

		url := operatorBookingsURL + "/" + created.ID.String() + "/search"
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, url, nil, clientToken)
		require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	})
}

// =============================================================================
// TestCancelBooking - refund tiers and visibility
// =============================================================================

func (s *BookingSuite) TestCancelBooking() {
	s.Run("Normal case: cancelling 48 hours ahead refunds in full", func() {
		t := s.T()

		clientToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		created := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))

		url := bookingsURL + "/" + created.ID.String() + "/cancel"
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, url,
			request.CancelBookingRequest{Reason: "recovered early"}, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var cancelled response.BookingResponse
		httptest.DecodeResponseBody(t, w.Body, &cancelled)
		require.Equal(t, "cancelled", cancelled.Status)
		require.NotNil(t, cancelled.Cancellation)
		require.Equal(t, "client", cancelled.Cancellation.By)
		require.Equal(t, "recovered early", cancelled.Cancellation.Reason)
		require.Equal(t, created.Price.PayableCents, cancelled.Cancellation.RefundCents)
		require.Equal(t, int64(0), cancelled.Cancellation.FeeCents)
	})

	s.Run("Normal case: cancelling inside 24 hours splits refund and fee", func() {
		t := s.T()

		clientToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		created := s.createBooking(t, clientToken, time.Now().Add(12*time.Hour))

		url := bookingsURL + "/" + created.ID.String() + "/cancel"
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, url,
			request.CancelBookingRequest{Reason: "schedule clash"}, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var cancelled response.BookingResponse
		httptest.DecodeResponseBody(t, w.Body, &cancelled)
		require.NotNil(t, cancelled.Cancellation)
		require.Equal(t, cancelled.Cancellation.RefundCents+cancelled.Cancellation.FeeCents, created.Price.PayableCents)
		require.Equal(t, created.Price.PayableCents/2, cancelled.Cancellation.RefundCents)
	})

	s.Run("Error case: completed bookings cannot be cancelled", func() {
		t := s.T()

		clientToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		operatorToken := authtest.OperatorToken(t, s.Config.JWT)

		created := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))
		s.operatorPost(t, operatorToken, created.ID, "search", nil)
		s.operatorPost(t, operatorToken, created.ID, "assign",
			request.AssignCaregiverRequest{CaregiverID: uuid.New()})
		s.operatorPost(t, operatorToken, created.ID, "confirm", nil)
		s.operatorPost(t, operatorToken, created.ID, "complete", nil)

		url := bookingsURL + "/" + created.ID.String() + "/cancel"
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, url,
			request.CancelBookingRequest{Reason: "too late"}, clientToken)
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	})
}

// =============================================================================
// TestConcurrentTransitions - one winner per CAS slot
// =============================================================================

func (s *BookingSuite) TestConcurrentTransitions() {
	s.Run("Normal case: simultaneous cancel and complete produce exactly one winner", func() {
		t := s.T()

		clientToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		operatorToken := authtest.OperatorToken(t, s.Config.JWT)

		created := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))
		s.operatorPost(t, operatorToken, created.ID, "search", nil)
		s.operatorPost(t, operatorToken, created.ID, "assign",
			request.AssignCaregiverRequest{CaregiverID: uuid.New()})
		s.operatorPost(t, operatorToken, created.ID, "confirm", nil)

		cancelURL := bookingsURL + "/" + created.ID.String() + "/cancel"
		completeURL := operatorBookingsURL + "/" + created.ID.String() + "/complete"

		start := make(chan struct{})
		codes := make(chan int, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			w := httptest.PerformRequest(t, s.Router, http.MethodPost, cancelURL,
				request.CancelBookingRequest{Reason: "changed my mind"}, clientToken)
			codes <- w.Code
		}()
		go func() {
			defer wg.Done()
			<-start
			w := httptest.PerformRequest(t, s.Router, http.MethodPost, completeURL, nil, operatorToken)
			codes <- w.Code
		}()
		close(start)
		wg.Wait()
		close(codes)

		var got []int
		for code := range codes {
			got = append(got, code)
		}
		sort.Ints(got)
		require.Equal(t, []int{http.StatusOK, http.StatusConflict}, got,
			"exactly one of the racing transitions must commit")

		var status string
		err := s.DB.QueryRow(context.Background(),
			"SELECT status FROM bookings WHERE id = $1", created.ID).Scan(&status)
		require.NoError(t, err)
		require.Contains(t, []string{"cancelled", "completed"}, status)
	})
}

// =============================================================================
// TestPricingImmutability - snapshot survives catalog changes
// =============================================================================

func (s *BookingSuite) TestPricingImmutability() {
	s.Run("Normal case: catalog price changes never touch existing bookings", func() {
		t := s.T()

		clientToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		created := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))
		require.Equal(t, int64(1357), created.Price.PayableCents)

		_, err := s.DB.Exec(context.Background(),
			"UPDATE catalog_entries SET base_price_cents = 9999 WHERE kind = 'nursing'")
		require.NoError(t, err)

		url := bookingsURL + "/" + created.ID.String()
		w := httptest.PerformRequest(t, s.Router, http.MethodGet, url, nil, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var fetched response.BookingResponse
		httptest.DecodeResponseBody(t, w.Body, &fetched)
		require.Equal(t, int64(1000), fetched.Price.BaseCents)
		require.Equal(t, int64(150), fetched.Price.PlatformFeeCents)
		require.Equal(t, int64(207), fetched.Price.TaxCents)
		require.Equal(t, int64(1357), fetched.Price.PayableCents)
	})
}

// =============================================================================
// TestBookingVisibility - client scoping of reads
// =============================================================================

func (s *BookingSuite) TestBookingVisibility() {
	s.Run("Error case: a booking is invisible to other clients", func() {
		t := s.T()

		ownerToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		strangerToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())

		created := s.createBooking(t, ownerToken, time.Now().Add(48*time.Hour))

		url := bookingsURL + "/" + created.ID.String()
		w := httptest.PerformRequest(t, s.Router, http.MethodGet, url, nil, strangerToken)
		require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

		w = httptest.PerformRequest(t, s.Router, http.MethodGet, url, nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var fetched response.BookingResponse
		httptest.DecodeResponseBody(t, w.Body, &fetched)

		opts := []cmp.Option{
			cmpopts.IgnoreFields(response.BookingResponse{}, "ScheduledAt", "History", "CreatedAt", "UpdatedAt"),
		}
		if diff := cmp.Diff(&created, &fetched, opts...); diff != "" {
			t.Errorf("Booking response mismatch (-want +got):\n%s", diff)
		}
	})

	s.Run("Normal case: upcoming list excludes cancelled bookings", func() {
		t := s.T()

		clientID := uuid.New()
		clientToken := authtest.ClientToken(t, s.Config.JWT, clientID)

		kept := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))
		dropped := s.createBooking(t, clientToken, time.Now().Add(72*time.Hour))

		url := bookingsURL + "/" + dropped.ID.String() + "/cancel"
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, url,
			request.CancelBookingRequest{Reason: "no longer needed"}, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = httptest.PerformRequest(t, s.Router, http.MethodGet, bookingsURL, nil, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var list []response.BookingListResponse
		httptest.DecodeResponseBody(t, w.Body, &list)
		require.Len(t, list, 1)
		require.Equal(t, kept.ID, list[0].ID)
	})
}

// =============================================================================
// TestOutboxDelivery - events reach the broker after commit
// =============================================================================

func (s *BookingSuite) TestOutboxDelivery() {
	s.Run("Normal case: lifecycle events drain from the outbox", func() {
		t := s.T()

		// Bind a capture queue before acting so no event is missed
		conn, err := amqp.Dial(s.Config.Broker.URL)
		require.NoError(t, err)
		defer conn.Close()
		ch, err := conn.Channel()
		require.NoError(t, err)
		require.NoError(t, ch.ExchangeDeclare("booking.events", "topic", true, false, false, false, nil))
		q, err := ch.QueueDeclare("", false, true, true, false, nil)
		require.NoError(t, err)
		require.NoError(t, ch.QueueBind(q.Name, "#", "booking.events", false, nil))
		deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
		require.NoError(t, err)

		clientToken := authtest.ClientToken(t, s.Config.JWT, uuid.New())
		created := s.createBooking(t, clientToken, time.Now().Add(48*time.Hour))

		url := bookingsURL + "/" + created.ID.String() + "/cancel"
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, url,
			request.CancelBookingRequest{Reason: "change of plans"}, clientToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		require.Eventually(t, func() bool {
			var pending int64
			err := s.DB.QueryRow(context.Background(),
				"SELECT COUNT(*) FROM booking_outbox WHERE booking_id = $1 AND delivered_at IS NULL",
				created.ID).Scan(&pending)
			return err == nil && pending == 0
		}, 10*time.Second, 100*time.Millisecond, "outbox rows were not delivered")

		var delivered int64
		err = s.DB.QueryRow(context.Background(),
			"SELECT COUNT(*) FROM booking_outbox WHERE booking_id = $1 AND delivered_at IS NOT NULL",
			created.ID).Scan(&delivered)
		require.NoError(t, err)
		require.Equal(t, int64(2), delivered)

		var routingKeys []string
		timeout := time.After(10 * time.Second)
		for len(routingKeys) < 2 {
			select {
			case d := <-deliveries:
				routingKeys = append(routingKeys, d.RoutingKey)
				require.Equal(t, "application/json", d.ContentType)
			case <-timeout:
				t.Fatalf("expected 2 broker messages, got %v", routingKeys)
			}
		}
		require.Equal(t, []string{"booking.created", "booking.cancelled"}, routingKeys)
	})
}
