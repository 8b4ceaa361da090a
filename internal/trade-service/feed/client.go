package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ev "github.com/radieske/sports-trade-engine/pkg/contracts/events"
)

// Client busca eventos mock no simulador
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) FetchMockEvent(ctx context.Context) (ev.FeedUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/mock/events", nil)
	if err != nil {
		return ev.FeedUpdate{}, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return ev.FeedUpdate{}, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return ev.FeedUpdate{}, fmt.Errorf("simulator mock events http %d", res.StatusCode)
	}
	var out ev.FeedUpdate
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return ev.FeedUpdate{}, fmt.Errorf("decode mock event: %w", err)
	}
	if out.EventID == "" {
		return ev.FeedUpdate{}, fmt.Errorf("mock event without id")
	}
	return out, nil
}
