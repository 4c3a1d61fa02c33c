package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/randevuhq/go-booking-backend/internal/domain"
	"github.com/randevuhq/go-booking-backend/internal/intent"
	"github.com/randevuhq/go-booking-backend/internal/notify"
	"github.com/randevuhq/go-booking-backend/internal/ratelimit"
	"github.com/randevuhq/go-booking-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(
		&domain.Appointment{},
		&domain.NoShowRecord{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ----- Fakes -----

type fakeAdmitter struct {
	decision ratelimit.Decision
	err      error
	calls    int
}

func (f *fakeAdmitter) Allow(ctx context.Context, phone string) (ratelimit.Decision, error) {
	f.calls++
	return f.decision, f.err
}

type fakeNotifier struct {
	recipients []string
	texts      []string
	outcome    notify.Outcome
}

func (f *fakeNotifier) Dispatch(ctx context.Context, recipient, text string) notify.Outcome {
	f.recipients = append(f.recipients, recipient)
	f.texts = append(f.texts, text)
	return f.outcome
}

type fakeResponder struct {
	reply string
	err   error
}

func (f *fakeResponder) Respond(ctx context.Context, tenantID, phone, text string) (string, error) {
	return f.reply, f.err
}

func admitAll() *fakeAdmitter {
	return &fakeAdmitter{decision: ratelimit.Decision{Allowed: true}}
}

// ----- HandleInbound -----

func TestHandleInbound_EmptyMessage(t *testing.T) {
	s := &MessageService{DB: newServiceDB(t), Limiter: admitAll(), Notifier: &fakeNotifier{}}

	if _, err := s.HandleInbound(context.Background(), "t1", "+905551234567", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
}

func TestHandleInbound_BlockedCustomerSkipsLimiter(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := repo.IncrementNoShow(ctx, db, "t1", "905551234567", 3, BlockReason); err != nil {
			t.Fatalf("seed block: %v", err)
		}
	}

	lim := admitAll()
	n := &fakeNotifier{}
	s := &MessageService{DB: db, Limiter: lim, Notifier: n}

	_, err := s.HandleInbound(ctx, "t1", "+905551234567", "merhaba")
	if !errors.Is(err, ErrCustomerBlocked) {
		t.Fatalf("err = %v, want ErrCustomerBlocked", err)
	}
	if lim.calls != 0 {
		t.Fatalf("blocked sender must not consume rate budget, limiter calls=%d", lim.calls)
	}
	if len(n.texts) != 0 {
		t.Fatalf("blocked sender must not trigger notifications: %v", n.texts)
	}
}

func TestHandleInbound_RateLimitedRepliesWithWaitMessage(t *testing.T) {
	lim := &fakeAdmitter{decision: ratelimit.Decision{
		Gate:       ratelimit.WindowMinute,
		Minute:     61,
		RetryAfter: time.Minute,
	}}
	n := &fakeNotifier{}
	s := &MessageService{DB: newServiceDB(t), Limiter: lim, Notifier: n}

	res, err := s.HandleInbound(context.Background(), "t1", "+905551234567", "merhaba")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if !res.RateLimited || res.Decision.Gate != ratelimit.WindowMinute {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(n.texts) != 1 || !strings.Contains(n.texts[0], "dakika") {
		t.Fatalf("expected Turkish wait message, got %v", n.texts)
	}
}

func TestHandleInbound_StoreFailurePropagates(t *testing.T) {
	lim := &fakeAdmitter{err: fmt.Errorf("%w: dial tcp", ratelimit.ErrStoreUnavailable)}
	s := &MessageService{DB: newServiceDB(t), Limiter: lim, Notifier: &fakeNotifier{}}

	_, err := s.HandleInbound(context.Background(), "t1", "+905551234567", "merhaba")
	if !errors.Is(err, ratelimit.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestHandleInbound_CancelIntentCancelsAppointment(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	a, err := repo.CreateAppointment(ctx, db, "t1", "905551234567", time.Now().UTC().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	n := &fakeNotifier{}
	s := &MessageService{DB: db, Limiter: admitAll(), Notifier: n}

	res, err := s.HandleInbound(ctx, "t1", "+90 555 123 45 67", "Randevumu iptal etmek istiyorum")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if res.Intent.Kind != intent.Cancel {
		t.Fatalf("intent = %v, want Cancel", res.Intent)
	}

	got, err := repo.GetAppointment(ctx, db, a.ID)
	if err != nil || got.Status != domain.AppointmentCancelled {
		t.Fatalf("status = %q err=%v, want cancelled", got.Status, err)
	}
	if len(n.texts) != 1 || !strings.Contains(n.texts[0], "iptal edildi") {
		t.Fatalf("expected cancellation reply, got %v", n.texts)
	}
}

func TestHandleInbound_LateIntentAppliesDelay(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	a, err := repo.CreateAppointment(ctx, db, "t1", "905551234567", time.Now().UTC().Add(30*time.Minute))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	n := &fakeNotifier{}
	s := &MessageService{DB: db, Limiter: admitAll(), Notifier: n}

	res, err := s.HandleInbound(ctx, "t1", "+905551234567", "trafikteyim, 10 dk gec kalacagim")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if res.Intent.Kind != intent.Late || res.Intent.DelayMinutes != 10 {
		t.Fatalf("intent = %+v, want Late{10}", res.Intent)
	}

	got, err := repo.GetAppointment(ctx, db, a.ID)
	if err != nil || got.LateMinutes != 10 {
		t.Fatalf("late_minutes = %d err=%v, want 10", got.LateMinutes, err)
	}
	if len(n.texts) != 1 || !strings.Contains(n.texts[0], "10 dakika") {
		t.Fatalf("expected delay acknowledgement, got %v", n.texts)
	}
}

func TestHandleInbound_LateWithoutAppointmentStillReplies(t *testing.T) {
	n := &fakeNotifier{}
	s := &MessageService{DB: newServiceDB(t), Limiter: admitAll(), Notifier: n}

	res, err := s.HandleInbound(context.Background(), "t1", "+905551234567", "geciktim")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if res.Intent.Kind != intent.Late {
		t.Fatalf("intent = %v, want Late", res.Intent)
	}
	if len(n.texts) != 1 || n.texts[0] == "" {
		t.Fatalf("customer must still get a reply, got %v", n.texts)
	}
}

func TestHandleInbound_NoneDefersToResponder(t *testing.T) {
	n := &fakeNotifier{}
	s := &MessageService{
		DB:        newServiceDB(t),
		Limiter:   admitAll(),
		Notifier:  n,
		Responder: &fakeResponder{reply: "Yarin 14:00 uygun."},
	}

	res, err := s.HandleInbound(context.Background(), "t1", "+905551234567", "yarin bos saatiniz var mi")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if res.Intent.Kind != intent.None {
		t.Fatalf("intent = %v, want None", res.Intent)
	}
	if res.Reply != "Yarin 14:00 uygun." || len(n.texts) != 1 {
		t.Fatalf("responder reply not dispatched: %+v %v", res, n.texts)
	}
}

func TestHandleInbound_ResponderFailureFallsBack(t *testing.T) {
	n := &fakeNotifier{}
	s := &MessageService{
		DB:        newServiceDB(t),
		Limiter:   admitAll(),
		Notifier:  n,
		Responder: &fakeResponder{err: errors.New("llm down")},
	}

	res, err := s.HandleInbound(context.Background(), "t1", "+905551234567", "merhaba")
	if err != nil {
		t.Fatalf("HandleInbound: %v", err)
	}
	if res.Reply == "" || len(n.texts) != 1 {
		t.Fatalf("fallback reply missing: %+v", res)
	}
}

// ----- BookAppointment -----

func TestBookAppointment_BlockedPairRejected(t *testing.T) {
	db := newServiceDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := repo.IncrementNoShow(ctx, db, "t1", "905551234567", 3, BlockReason); err != nil {
			t.Fatalf("seed block: %v", err)
		}
	}
	s := &MessageService{DB: db, Limiter: admitAll(), Notifier: &fakeNotifier{}}

	_, err := s.BookAppointment(ctx, "t1", "+905551234567", time.Now().UTC().Add(time.Hour))
	if !errors.Is(err, ErrCustomerBlocked) {
		t.Fatalf("err = %v, want ErrCustomerBlocked", err)
	}

	// Other tenants are unaffected.
	if _, err := s.BookAppointment(ctx, "t2", "+905551234567", time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("cross-tenant booking: %v", err)
	}
}
