package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aeolun/votefeed/pkg/protocol"
)

// ErrExchangeStatus is returned when the server answers the one-shot
// exchange with a non-2xx status
var ErrExchangeStatus = errors.New("unexpected status from login endpoint")

// HTTPExchanger posts encoded frames to {base}/login
type HTTPExchanger struct {
	URL    string
	Client *http.Client
}

// NewHTTPExchanger creates an exchanger for the server at base
func NewHTTPExchanger(base string, timeout time.Duration) (*HTTPExchanger, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/login"
	u.RawQuery = ""
	return &HTTPExchanger{
		URL:    u.String(),
		Client: &http.Client{Timeout: timeout},
	}, nil
}

// Exchange sends body and returns the response frame
func (e *HTTPExchanger) Exchange(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", e.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s", ErrExchangeStatus, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, protocol.MaxFrameSize+4))
	if err != nil {
		return nil, fmt.Errorf("read login response: %w", err)
	}
	return data, nil
}
