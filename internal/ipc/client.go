package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"snatch/internal/settings"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Info resolves a source URL into selectable encodings.
func (c *Client) Info(url string) (*InfoResponse, error) {
	var resp InfoResponse
	if err := c.client.Call("Snatch.Info", InfoRequest{URL: url}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Add submits a new download.
func (c *Client) Add(url, formatID, title string, audioOnly bool) (*AddResponse, error) {
	var resp AddResponse
	req := AddRequest{URL: url, FormatID: formatID, Title: title, AudioOnly: audioOnly}
	if err := c.client.Call("Snatch.Add", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns jobs optionally filtered by statuses.
func (c *Client) List(statuses []string) (*ListResponse, error) {
	var resp ListResponse
	if err := c.client.Call("Snatch.List", ListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Describe returns details for a single job.
func (c *Client) Describe(id string) (*DescribeResponse, error) {
	var resp DescribeResponse
	if err := c.client.Call("Snatch.Describe", DescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel cancels a job.
func (c *Client) Cancel(id string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.client.Call("Snatch.Cancel", CancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry clones a finished job into a fresh queued one.
func (c *Client) Retry(id string) (*RetryResponse, error) {
	var resp RetryResponse
	if err := c.client.Call("Snatch.Retry", RetryRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove deletes a job from history.
func (c *Client) Remove(id string) (*RemoveResponse, error) {
	var resp RemoveResponse
	if err := c.client.Call("Snatch.Remove", RemoveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCompleted removes all completed downloads from history.
func (c *Client) ClearCompleted() (*ClearCompletedResponse, error) {
	var resp ClearCompletedResponse
	if err := c.client.Call("Snatch.ClearCompleted", ClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSettings fetches the active runtime settings.
func (c *Client) GetSettings() (*SettingsResponse, error) {
	var resp SettingsResponse
	if err := c.client.Call("Snatch.GetSettings", GetSettingsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveSettings replaces the runtime settings.
func (c *Client) SaveSettings(s settings.Settings) (*SettingsResponse, error) {
	var resp SettingsResponse
	if err := c.client.Call("Snatch.SaveSettings", SaveSettingsRequest{Settings: s}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Snatch.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events polls for change events after the given cursor.
func (c *Client) Events(after int64, wait time.Duration) (*EventsResponse, error) {
	var resp EventsResponse
	req := EventsRequest{After: after, WaitMillis: int(wait / time.Millisecond)}
	if err := c.client.Call("Snatch.Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Snatch.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
