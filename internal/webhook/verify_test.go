package webhook

import (
	"strings"
	"testing"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	body := []byte(`{"event_id":"evt-1","from":"+905551234567","text":"merhaba"}`)
	sig := Sign(body, "s3cret")

	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("signature missing algorithm tag: %q", sig)
	}
	if !VerifySignature(body, sig, "s3cret") {
		t.Fatalf("expected valid verdict for matching secret")
	}
	if VerifySignature(body, sig, "other-secret") {
		t.Fatalf("expected invalid verdict for different secret")
	}
}

func TestVerifySignature_SingleByteMutationFlipsVerdict(t *testing.T) {
	body := []byte("hello world")
	sig := Sign(body, "k")

	// Mutate one body byte.
	mutated := append([]byte(nil), body...)
	mutated[0] ^= 0x01
	if VerifySignature(mutated, sig, "k") {
		t.Fatalf("mutated body must not verify")
	}

	// Mutate one signature hex digit (keep length identical).
	bs := []byte(sig)
	last := bs[len(bs)-1]
	if last == 'a' {
		bs[len(bs)-1] = 'b'
	} else {
		bs[len(bs)-1] = 'a'
	}
	if VerifySignature(body, string(bs), "k") {
		t.Fatalf("mutated signature must not verify")
	}
}

func TestVerifySignature_FailClosed(t *testing.T) {
	body := []byte("payload")
	sig := Sign(body, "k")

	cases := map[string]struct {
		provided string
		secret   string
	}{
		"empty secret":     {provided: sig, secret: ""},
		"empty signature":  {provided: "", secret: "k"},
		"both empty":       {provided: "", secret: ""},
		"length mismatch":  {provided: "sha256=abc", secret: "k"},
		"missing tag":      {provided: strings.TrimPrefix(sig, "sha256="), secret: "k"},
		"garbage encoding": {provided: "sha256=zzzz", secret: "k"},
	}
	for name, tc := range cases {
		if VerifySignature(body, tc.provided, tc.secret) {
			t.Errorf("%s: expected invalid verdict", name)
		}
	}
}
