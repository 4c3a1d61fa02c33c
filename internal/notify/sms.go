package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSChannel sends messages through an SMS gateway over HTTP form posts. It
// is the secondary (fallback) channel, gated globally by configuration.
type SMSChannel struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewSMSChannel constructs the channel with its own bounded HTTP client.
func NewSMSChannel(baseURL, token string, timeout time.Duration) *SMSChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSChannel{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Channel.
func (c *SMSChannel) Name() string { return "sms" }

// Send implements Channel with the same edge classification as the primary:
// the dispatcher only ever sees ChannelError kinds, never gateway fields.
func (c *SMSChannel) Send(ctx context.Context, recipient, text string) error {
	form := url.Values{
		"to":   {recipient},
		"body": {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/send", strings.NewReader(form.Encode()))
	if err != nil {
		return newChannelError(c.Name(), KindUnknown, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return newChannelError(c.Name(), classifyTransportErr(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newChannelError(c.Name(), KindRejected, fmt.Errorf("gateway status %d", resp.StatusCode))
	}
	return nil
}
