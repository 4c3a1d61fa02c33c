package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// WhatsAppChannel sends messages through the WhatsApp Business API over HTTP.
// It is the primary channel.
type WhatsAppChannel struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewWhatsAppChannel constructs the channel with a dedicated HTTP client so
// the per-attempt timeout is bounded even when the caller's ctx is generous.
func NewWhatsAppChannel(baseURL, token string, timeout time.Duration) *WhatsAppChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WhatsAppChannel{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Channel.
func (c *WhatsAppChannel) Name() string { return "whatsapp" }

// whatsappPayload is the provider wire shape for a text message.
type whatsappPayload struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send implements Channel. Provider failures are classified at this boundary:
// context/client timeouts become KindTimeout, transport errors KindNetwork,
// and non-2xx responses KindRejected.
func (c *WhatsAppChannel) Send(ctx context.Context, recipient, text string) error {
	p := whatsappPayload{To: recipient, Type: "text"}
	p.Text.Body = text
	body, err := json.Marshal(p)
	if err != nil {
		return newChannelError(c.Name(), KindUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return newChannelError(c.Name(), KindUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return newChannelError(c.Name(), classifyTransportErr(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newChannelError(c.Name(), KindRejected, fmt.Errorf("provider status %d", resp.StatusCode))
	}
	return nil
}

// classifyTransportErr maps a transport-level error to a kind.
func classifyTransportErr(err error) ErrKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
