package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// WebhookNotifier POSTs notifications as JSON to an incoming-webhook URL
// (slack-compatible). HTTP-level retries are handled by retryablehttp in
// addition to the Dispatcher's policy, so transient network errors don't
// consume dispatch attempts.
type WebhookNotifier struct {
	URL    string
	client *retryablehttp.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	return &WebhookNotifier{URL: url, client: client}
}

type webhookBody struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(webhookBody{Type: string(n.Type), Subject: n.Subject, Text: n.Text})
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
