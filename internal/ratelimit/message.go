package ratelimit

import (
	"fmt"
	"time"
)

// WaitMessage renders a customer-facing Turkish wait estimate for a rejected
// decision. An allowed decision yields the empty string.
func (d Decision) WaitMessage() string {
	if d.Allowed {
		return ""
	}
	switch d.Gate {
	case GateCooldown:
		return fmt.Sprintf("Çok fazla mesaj gönderdiniz. Lütfen %s sonra tekrar deneyin.", humanDuration(d.RetryAfter))
	case WindowMinute:
		return "Çok hızlı mesaj gönderiyorsunuz. Lütfen bir dakika bekleyip tekrar deneyin."
	case WindowHour:
		return fmt.Sprintf("Saatlik mesaj limitine ulaştınız. Lütfen %s sonra tekrar deneyin.", humanDuration(d.RetryAfter))
	case WindowDay:
		return "Günlük mesaj limitine ulaştınız. Lütfen yarın tekrar deneyin."
	default:
		return "Lütfen daha sonra tekrar deneyin."
	}
}

// humanDuration renders a duration in coarse Turkish units; seconds-level
// precision would read oddly in a chat message.
func humanDuration(d time.Duration) string {
	if d <= 0 {
		return "birkaç dakika"
	}
	if d < time.Hour {
		mins := int((d + time.Minute - 1) / time.Minute)
		if mins < 1 {
			mins = 1
		}
		return fmt.Sprintf("%d dakika", mins)
	}
	hours := int((d + time.Hour - 1) / time.Hour)
	return fmt.Sprintf("%d saat", hours)
}
