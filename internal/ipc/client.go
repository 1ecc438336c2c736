package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/khigy/internal/runtimepath"
)

const defaultTimeout = 5 * time.Second

// Client sends control requests to a running compositor. Each request uses
// its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient targets the default control socket.
func NewClient() *Client {
	socketPath, err := runtimepath.ControlSocketPath()
	if err != nil {
		// Keep constructor non-failing; roundTrip surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

func NewClientAt(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: defaultTimeout}
}

// call sends one request and decodes the response data into out, which may
// be nil.
func (c *Client) call(cmd CommandType, payload, out any) error {
	req, err := NewRequest(cmd, payload)
	if err != nil {
		return err
	}
	resp, err := c.roundTrip(req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", cmd, err)
	}
	return nil
}

func (c *Client) roundTrip(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to compositor: %w (is khigy running?)", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	respData, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		return nil, fmt.Errorf("compositor error: %s", resp.Error)
	}
	return &resp, nil
}

func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListToplevels returns every mapped toplevel in stacking order.
func (c *Client) ListToplevels() (*ToplevelsData, error) {
	return c.ListToplevelsByApp("")
}

// ListToplevelsByApp returns the mapped toplevels whose app_id equals appID.
// An empty appID matches all.
func (c *Client) ListToplevelsByApp(appID string) (*ToplevelsData, error) {
	var payload any
	if appID != "" {
		payload = ListToplevelsPayload{AppID: appID}
	}
	var data ToplevelsData
	if err := c.call(CommandListToplevels, payload, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Quit asks the compositor to stop its event loop.
func (c *Client) Quit() error {
	return c.call(CommandQuit, nil, nil)
}

// Ping checks that the compositor answers.
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
