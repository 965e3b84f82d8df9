package status

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/hearthlab/hearth-hub-go/broadcast"
	"github.com/hearthlab/hearth-hub-go/pending"
	"github.com/hearthlab/hearth-hub-go/tool"
	"github.com/hearthlab/hearth-hub-go/types"
)

// Producer recomputes the aggregate discovery status on every call. Snapshots
// have no identity or persistence of their own.
type Producer struct {
	listener *broadcast.Listener
	queue    *pending.Queue
	hubID    string
	interval int // beacon interval, seconds
	localIP  func() string
}

func NewProducer(listener *broadcast.Listener, queue *pending.Queue, hubID string, interval int) *Producer {
	return &Producer{
		listener: listener,
		queue:    queue,
		hubID:    hubID,
		interval: interval,
		localIP:  tool.GetLocalIPv4,
	}
}

// Snapshot pulls the current state from the listener and queue.
func (p *Producer) Snapshot() *types.StatusSnapshot {
	return &types.StatusSnapshot{
		Enabled:           p.listener.Enabled(),
		Available:         p.listener.Available(),
		Port:              broadcast.Port(),
		BroadcastInterval: p.interval,
		HubID:             p.hubID,
		LocalIP:           p.localIP(),
		PendingDevices:    p.queue.Len(),
	}
}

// Fetch adapts the producer to the coordinator's Fetcher signature.
func (p *Producer) Fetch(_ context.Context) (*types.StatusSnapshot, error) {
	return p.Snapshot(), nil
}

// NewHTTPFetcher returns a Fetcher that polls a remote hub's status endpoint.
// Used by panel processes running apart from the hub daemon. A nil client
// falls back to the shared status polling client.
func NewHTTPFetcher(client *http.Client, url string) Fetcher {
	if client == nil {
		client = tool.GetHttpClient()
	}
	return func(ctx context.Context) (*types.StatusSnapshot, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrFetchFailed, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrFetchFailed, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: unexpected status %d", types.ErrFetchFailed, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrFetchFailed, err)
		}
		var envelope struct {
			Data types.StatusSnapshot `json:"data"`
		}
		if err := sonic.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrFetchFailed, err)
		}
		return &envelope.Data, nil
	}
}
