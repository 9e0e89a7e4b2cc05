package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Client connects to a running daemon over its loopback TCP address.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
}

// NewClient creates a new daemon client, reading the bound address and
// auth cookie from the files the daemon wrote at Start.
func NewClient(addrPath, cookiePath string) (*Client, error) {
	addr, err := os.ReadFile(addrPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}

	token, err := os.ReadFile(cookiePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read daemon cookie: %w", err)
	}

	c := &Client{
		baseURL:    "http://" + strings.TrimSpace(string(addr)),
		authToken:  strings.TrimSpace(string(token)),
		httpClient: &http.Client{},
	}
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// doJSON sends a request and decodes the JSON {"data": ...} envelope into target.
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, target any) error {
	data, status, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("daemon: %s", errResp.Error)
		}
		return fmt.Errorf("daemon returned HTTP %d", status)
	}
	if target == nil {
		return nil
	}
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(raw.Data, target); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(string(data)), nil
}

// --- Query methods ---

// Status returns the daemon's status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.doJSON(ctx, "GET", "/v1/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Interfaces returns the last observed network interface summary.
func (c *Client) Interfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var resp []InterfaceInfo
	if err := c.doJSON(ctx, "GET", "/v1/interfaces", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Peers returns the list of discovered peers.
func (c *Client) Peers(ctx context.Context) ([]PeerInfo, error) {
	var resp []PeerInfo
	if err := c.doJSON(ctx, "GET", "/v1/peers", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CheckPeer asks the daemon to verify a peer is reachable.
func (c *Client) CheckPeer(ctx context.Context, address string) (*CheckPeerResponse, error) {
	body, err := jsonBody(CheckPeerRequest{Address: address})
	if err != nil {
		return nil, err
	}
	var resp CheckPeerResponse
	if err := c.doJSON(ctx, "POST", "/v1/peers/check", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DownloadsDir returns the current downloads directory.
func (c *Client) DownloadsDir(ctx context.Context) (string, error) {
	var resp DownloadsDirResponse
	if err := c.doJSON(ctx, "GET", "/v1/downloads-dir", nil, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

// --- Mutation methods ---

// StartDiscovery begins LAN peer discovery.
func (c *Client) StartDiscovery(ctx context.Context) error {
	return c.doJSON(ctx, "POST", "/v1/discovery/start", nil, nil)
}

// StopDiscovery halts LAN peer discovery.
func (c *Client) StopDiscovery(ctx context.Context) error {
	return c.doJSON(ctx, "POST", "/v1/discovery/stop", nil, nil)
}

// SendBatch requests a batch transfer of filePaths to peerAddresses.
func (c *Client) SendBatch(ctx context.Context, batchID string, peerAddresses, filePaths []string) (string, error) {
	body, err := jsonBody(SendBatchRequest{BatchID: batchID, PeerAddresses: peerAddresses, FilePaths: filePaths})
	if err != nil {
		return "", err
	}
	var resp SendBatchResponse
	if err := c.doJSON(ctx, "POST", "/v1/transfers", body, &resp); err != nil {
		return "", err
	}
	return resp.BatchID, nil
}

// CancelTransfer cancels an in-flight transfer.
func (c *Client) CancelTransfer(ctx context.Context, id string) error {
	return c.doJSON(ctx, "POST", "/v1/transfers/"+id+"/cancel", nil, nil)
}

// PauseTransfer pauses an in-flight transfer.
func (c *Client) PauseTransfer(ctx context.Context, id string) error {
	return c.doJSON(ctx, "POST", "/v1/transfers/"+id+"/pause", nil, nil)
}

// ResumeTransfer resumes a paused transfer.
func (c *Client) ResumeTransfer(ctx context.Context, id string) error {
	return c.doJSON(ctx, "POST", "/v1/transfers/"+id+"/resume", nil, nil)
}

// SetDownloadsDir changes the directory received files are written to.
func (c *Client) SetDownloadsDir(ctx context.Context, path string) error {
	body, err := jsonBody(SetDownloadsDirRequest{Path: path})
	if err != nil {
		return err
	}
	return c.doJSON(ctx, "POST", "/v1/downloads-dir", body, nil)
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.doJSON(ctx, "POST", "/v1/shutdown", nil, nil)
}

// Events opens the Server-Sent Events stream and invokes onEvent for each
// event received until ctx is cancelled or the stream ends. onEvent receives
// the raw "event: <kind>\ndata: <json>" framing split into kind and payload.
func (c *Client) Events(ctx context.Context, onEvent func(kind string, data []byte)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon event stream: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var kind string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			kind = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			onEvent(kind, []byte(strings.TrimPrefix(line, "data: ")))
		}
	}
	return scanner.Err()
}
