package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteClient uploads check-in batches to the attendance backend over
// HTTP. A non-2xx response or transport error fails the whole batch.
type RemoteClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewRemoteClient(endpoint, apiKey string, timeout time.Duration) *RemoteClient {
	return &RemoteClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type batchRequest struct {
	CheckIns []RemoteCheckIn `json:"checkins"`
}

// WriteBatch POSTs the records as one JSON batch.
func (r *RemoteClient) WriteBatch(ctx context.Context, records []RemoteCheckIn) error {
	payload, err := json.Marshal(batchRequest{CheckIns: records})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote rejected batch: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
