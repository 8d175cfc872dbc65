package doctypes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Record is one entry of the document type distribution as served upstream.
type Record struct {
	DocTypePredicted string `json:"doc_type_predicted"`
	Count            int    `json:"count"`
}

// ErrUnexpectedShape is returned when the response decodes as JSON but is not
// an array of records with a doc_type_predicted string.
var ErrUnexpectedShape = errors.New("unexpected response shape")

type wireRecord struct {
	DocTypePredicted *string `json:"doc_type_predicted"`
	Count            int     `json:"count"`
}

type Client struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// New returns a client for the given endpoint. A zero timeout means the
// request is never timed out by the client itself.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: slog.Default().With("module", "doctypes"),
	}
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) GetDocTypes(ctx context.Context) ([]Record, error) {
	c.logger.Debug("fetching document types...", slog.String("url", c.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document types: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var wire []*wireRecord
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if wire == nil {
		return nil, fmt.Errorf("%w: null body", ErrUnexpectedShape)
	}

	records := make([]Record, 0, len(wire))
	for i, w := range wire {
		if w == nil || w.DocTypePredicted == nil {
			return nil, fmt.Errorf("%w: record %d has no doc_type_predicted", ErrUnexpectedShape, i)
		}
		records = append(records, Record{DocTypePredicted: *w.DocTypePredicted, Count: w.Count})
	}
	return records, nil
}
