package broadcast

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/hearthlab/hearth-hub-go/types"
)

// ParseAnnounceFromBody parses an AnnounceMessage from a datagram or HTTP body.
// Public for reuse in the API server's announce fallback endpoint.
func ParseAnnounceFromBody(body []byte) (*types.AnnounceMessage, error) {
	var incoming types.AnnounceMessage
	if err := sonic.Unmarshal(body, &incoming); err != nil {
		return nil, fmt.Errorf("failed to parse announce message: %v", err)
	}
	return &incoming, nil
}
