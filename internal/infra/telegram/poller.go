package telegram

import (
	"fmt"
	"time"

	"gopkg.in/telebot.v4"
)

// NewPoller создаёт Poller в зависимости от режима.
func NewPoller(mode, webhookURL, listenAddr string, pollInterval time.Duration) (telebot.Poller, error) {
	switch mode {
	case "webhook":
		if webhookURL == "" {
			return nil, fmt.Errorf("webhook mode requires webhook url")
		}
		return &telebot.Webhook{
			Listen: listenAddr,
			Endpoint: &telebot.WebhookEndpoint{
				PublicURL: webhookURL,
			},
		}, nil
	case "", "polling":
		return &telebot.LongPoller{Timeout: pollInterval}, nil
	default:
		return nil, fmt.Errorf("unknown bot mode %q", mode)
	}
}
