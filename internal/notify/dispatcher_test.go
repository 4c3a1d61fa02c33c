package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ----- Fake channel -----

type fakeChannel struct {
	name  string
	err   error
	calls int
	order *[]string // shared across channels to assert attempt ordering
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, recipient, text string) error {
	f.calls++
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	return f.err
}

// ----- Tests -----

func TestDispatch_FallbackMode_PrimarySucceeds(t *testing.T) {
	p := &fakeChannel{name: "whatsapp"}
	s := &fakeChannel{name: "sms"}
	d := &Dispatcher{Primary: p, Secondary: s, SecondaryEnabled: true, Mode: ModeFallback}

	out := d.Dispatch(context.Background(), "905551234567", "merhaba")

	if !out.PrimaryDelivered || out.SecondaryDelivered {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if s.calls != 0 {
		t.Fatalf("secondary must not be attempted when primary delivered, calls=%d", s.calls)
	}
}

func TestDispatch_FallbackMode_PrimaryFails(t *testing.T) {
	p := &fakeChannel{name: "whatsapp", err: newChannelError("whatsapp", KindNetwork, errors.New("refused"))}
	s := &fakeChannel{name: "sms"}
	d := &Dispatcher{Primary: p, Secondary: s, SecondaryEnabled: true, Mode: ModeFallback}

	out := d.Dispatch(context.Background(), "905551234567", "merhaba")

	if out.PrimaryDelivered || !out.SecondaryDelivered {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if s.calls != 1 {
		t.Fatalf("secondary attempted %d times; want exactly 1", s.calls)
	}
}

func TestDispatch_AlwaysMode_BothAttempted(t *testing.T) {
	var order []string
	cases := map[string]error{
		"primary ok":    nil,
		"primary fails": newChannelError("whatsapp", KindTimeout, errors.New("deadline")),
	}
	for name, perr := range cases {
		order = order[:0]
		p := &fakeChannel{name: "whatsapp", err: perr, order: &order}
		s := &fakeChannel{name: "sms", order: &order}
		d := &Dispatcher{Primary: p, Secondary: s, SecondaryEnabled: true, Mode: ModeAlways}

		out := d.Dispatch(context.Background(), "905551234567", "x")

		if p.calls != 1 || s.calls != 1 {
			t.Fatalf("%s: both channels must be attempted, p=%d s=%d", name, p.calls, s.calls)
		}
		if len(order) != 2 || order[0] != "whatsapp" || order[1] != "sms" {
			t.Fatalf("%s: primary must go first, order=%v", name, order)
		}
		if !out.SecondaryDelivered {
			t.Fatalf("%s: secondary should deliver", name)
		}
	}
}

func TestDispatch_SecondaryDisabled_ModeIrrelevant(t *testing.T) {
	for _, mode := range []Mode{ModeFallback, ModeAlways} {
		p := &fakeChannel{name: "whatsapp", err: newChannelError("whatsapp", KindNetwork, errors.New("down"))}
		s := &fakeChannel{name: "sms"}
		d := &Dispatcher{Primary: p, Secondary: s, SecondaryEnabled: false, Mode: mode}

		out := d.Dispatch(context.Background(), "905551234567", "x")

		if s.calls != 0 {
			t.Fatalf("mode %s: disabled secondary was attempted", mode)
		}
		if out.Delivered() {
			t.Fatalf("mode %s: nothing should have delivered, got %+v", mode, out)
		}
	}
}

func TestDispatch_NilPrimaryDegrades(t *testing.T) {
	s := &fakeChannel{name: "sms"}
	d := &Dispatcher{Primary: nil, Secondary: s, SecondaryEnabled: true, Mode: ModeFallback}

	out := d.Dispatch(context.Background(), "905551234567", "x")
	if out.PrimaryDelivered {
		t.Fatalf("nil primary cannot deliver")
	}
	if !out.SecondaryDelivered {
		t.Fatalf("fallback should cover a nil primary")
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("always") != ModeAlways {
		t.Fatalf("always not recognized")
	}
	for _, s := range []string{"fallback", "", "bogus"} {
		if ParseMode(s) != ModeFallback {
			t.Errorf("ParseMode(%q) should default to fallback", s)
		}
	}
}

func TestWhatsAppChannel_ClassifiesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ch := NewWhatsAppChannel(srv.URL, "tok", time.Second)
	err := ch.Send(context.Background(), "905551234567", "merhaba")

	var cerr *ChannelError
	if !errors.As(err, &cerr) || cerr.Kind != KindRejected {
		t.Fatalf("expected KindRejected, got %v", err)
	}
}

func TestSMSChannel_SendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad form: %v", err)
		}
		if r.PostForm.Get("to") != "905551234567" {
			t.Errorf("to = %q", r.PostForm.Get("to"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewSMSChannel(srv.URL, "tok", time.Second)
	if err := ch.Send(context.Background(), "905551234567", "sms yolu"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWhatsAppChannel_NetworkErrorClassified(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	ch := NewWhatsAppChannel(url, "tok", time.Second)
	err := ch.Send(context.Background(), "905551234567", "x")

	var cerr *ChannelError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ChannelError, got %v", err)
	}
	if cerr.Kind != KindNetwork && cerr.Kind != KindTimeout {
		t.Fatalf("expected network/timeout kind, got %v", cerr.Kind)
	}
}
