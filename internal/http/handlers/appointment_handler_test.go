package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/randevuhq/go-booking-backend/internal/config"
	"github.com/randevuhq/go-booking-backend/internal/domain"
	"github.com/randevuhq/go-booking-backend/internal/services"
)

func newBookingRouter(t *testing.T, svc MessageService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := New(svc, stubNoShowSvc{}, nil, config.WebhookConfig{})
	r := gin.New()
	r.POST("/appointments", h.CreateAppointment)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAppointment(t *testing.T) {
	starts := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	r := newBookingRouter(t, stubMsgSvc{
		book: func(ctx context.Context, tenantID, phone string, startsAt time.Time) (*domain.Appointment, error) {
			if tenantID != "salon-34" || phone != "+905551234567" || !startsAt.Equal(starts) {
				t.Errorf("unexpected args tenant=%q phone=%q starts=%v", tenantID, phone, startsAt)
			}
			return &domain.Appointment{
				ID:            "a1",
				TenantID:      tenantID,
				CustomerPhone: "905551234567",
				StartsAt:      startsAt,
				Status:        domain.AppointmentConfirmed,
			}, nil
		},
	})

	w := postJSON(t, r, "/appointments", CreateAppointmentRequest{
		TenantID:      "salon-34",
		CustomerPhone: "+905551234567",
		StartsAt:      starts,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp CreateAppointmentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Appointment == nil || resp.Appointment.Status != domain.AppointmentConfirmed {
		t.Fatalf("unexpected response %+v", resp.Appointment)
	}
}

func TestCreateAppointment_BlockedCustomer(t *testing.T) {
	r := newBookingRouter(t, stubMsgSvc{
		book: func(ctx context.Context, tenantID, phone string, startsAt time.Time) (*domain.Appointment, error) {
			return nil, services.ErrCustomerBlocked
		},
	})

	w := postJSON(t, r, "/appointments", CreateAppointmentRequest{
		TenantID:      "salon-34",
		CustomerPhone: "+905551234567",
		StartsAt:      time.Now().Add(24 * time.Hour),
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Code != ErrCodeCustomerBlocked {
		t.Fatalf("unexpected envelope %s", w.Body.String())
	}
}

func TestCreateAppointment_BadRequests(t *testing.T) {
	r := newBookingRouter(t, stubMsgSvc{
		book: func(ctx context.Context, tenantID, phone string, startsAt time.Time) (*domain.Appointment, error) {
			t.Fatal("service must not be called for invalid payloads")
			return nil, nil
		},
	})

	for name, payload := range map[string]any{
		"missing tenant": gin.H{"customer_phone": "+905551234567", "starts_at": "2026-09-01T14:00:00Z"},
		"missing phone":  gin.H{"tenant_id": "t1", "starts_at": "2026-09-01T14:00:00Z"},
		"missing start":  gin.H{"tenant_id": "t1", "customer_phone": "+905551234567"},
	} {
		w := postJSON(t, r, "/appointments", payload)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, w.Code)
		}
	}
}

func TestCreateAppointment_InternalError(t *testing.T) {
	r := newBookingRouter(t, stubMsgSvc{
		book: func(ctx context.Context, tenantID, phone string, startsAt time.Time) (*domain.Appointment, error) {
			return nil, errors.New("disk full")
		},
	})

	w := postJSON(t, r, "/appointments", CreateAppointmentRequest{
		TenantID:      "t1",
		CustomerPhone: "+905551234567",
		StartsAt:      time.Now().Add(time.Hour),
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
