package stellar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/walletd-network/walletd/pkg/httputil"
)

// Directory looks up well-known accounts in a stellar.expert-compatible
// public directory to learn whether a recipient expects a memo.
type Directory struct {
	baseURL string
}

// NewDirectory returns a directory client.
func NewDirectory(baseURL string) *Directory {
	return &Directory{baseURL: baseURL}
}

// SuggestedMemoType returns the memo type the recipient is known to
// expect, or the empty string when the directory has no opinion. Unknown
// addresses are not an error.
func (d *Directory) SuggestedMemoType(ctx context.Context, address string) (string, error) {
	url := fmt.Sprintf("%s/api/explorer/public/directory/%s", d.baseURL, address)
	status, body, err := httputil.Get(ctx, url, nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("directory lookup: status %d", status)
	}

	var entry struct {
		Accepts struct {
			Memo string `json:"memo"`
		} `json:"accepts"`
	}
	if err := json.Unmarshal(body, &entry); err != nil {
		return "", fmt.Errorf("parsing directory entry: %w", err)
	}
	return entry.Accepts.Memo, nil
}
