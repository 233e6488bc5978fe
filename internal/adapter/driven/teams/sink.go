// Package teams implements the Notifier port against a Teams-style incoming
// webhook using the legacy MessageCard payload.
package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/evoliveira/qasops/internal/domain/model"
	"github.com/evoliveira/qasops/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Sink)(nil)

// defaultTimeout bounds a single delivery attempt. There are no retries;
// a slow webhook should not stall the watch loop for longer than this.
const defaultTimeout = 30 * time.Second

// messageCard is the legacy Office 365 connector payload the channel
// webhook accepts.
type messageCard struct {
	Type       string `json:"@type"`
	Context    string `json:"@context"`
	Summary    string `json:"summary"`
	ThemeColor string `json:"themeColor"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

// Sink delivers build messages to a single webhook URL.
type Sink struct {
	webhookURL string
	httpClient *http.Client
}

// NewSink creates a Sink for the given webhook URL.
func NewSink(webhookURL string) *Sink {
	return &Sink{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewSinkWithHTTPClient creates a Sink with a custom http.Client. Intended
// for tests injecting an httptest server client.
func NewSinkWithHTTPClient(webhookURL string, httpClient *http.Client) *Sink {
	return &Sink{webhookURL: webhookURL, httpClient: httpClient}
}

// Notify posts msg as a MessageCard. Any 2xx response is success; anything
// else returns a *model.DeliveryError carrying the status and body. The
// caller surfaces the error but does not retry.
func (s *Sink) Notify(ctx context.Context, msg model.BuildMessage) error {
	lines := make([]string, 0, len(msg.Lines))
	for _, line := range msg.Lines {
		if line != "" {
			lines = append(lines, line)
		}
	}

	color := msg.ThemeColor
	if color == "" {
		color = model.ColorBlue
	}

	payload, err := json.Marshal(messageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		Summary:    msg.Title,
		ThemeColor: color,
		Title:      msg.Title,
		Text:       strings.Join(lines, "\n"),
	})
	if err != nil {
		return fmt.Errorf("encoding message card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &model.DeliveryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}
