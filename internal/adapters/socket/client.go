package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Client connects to the keyspot daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Scan sends text to the daemon and returns every keyword match.
func (c *Client) Scan(text string) (*ScanResult, error) {
	resp, err := c.call(newRequest(MethodScan, ScanParams{Text: text}))
	if err != nil {
		return nil, err
	}
	return decodeResult[ScanResult](resp)
}

// Fragments sends text to the daemon's fragment recognizer.
func (c *Client) Fragments(text string) (*FragmentsResult, error) {
	resp, err := c.call(newRequest(MethodFragments, ScanParams{Text: text}))
	if err != nil {
		return nil, err
	}
	return decodeResult[FragmentsResult](resp)
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	resp, err := c.call(newRequest(MethodHealth, nil))
	if err != nil {
		return nil, err
	}
	return decodeResult[HealthResult](resp)
}

// Stats sends a stats request.
func (c *Client) Stats() (*StatsResult, error) {
	resp, err := c.call(newRequest(MethodStats, nil))
	if err != nil {
		return nil, err
	}
	return decodeResult[StatsResult](resp)
}

// Reload asks the daemon to reload its keyword source, with an extended timeout.
func (c *Client) Reload() (*ReloadResult, error) {
	resp, err := c.callWithTimeout(newRequest(MethodReload, nil), 90*time.Second)
	if err != nil {
		return nil, err
	}
	return decodeResult[ReloadResult](resp)
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(newRequest(MethodShutdown, nil))
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func newRequest(method string, params interface{}) Request {
	return Request{ID: uuid.NewString(), Method: method, Params: params}
}

// decodeResult re-marshals the generic result into T.
func decodeResult[T any](resp *Response) (*T, error) {
	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var result T
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func (c *Client) call(req Request) (*Response, error) {
	return c.callWithTimeout(req, 10*time.Second)
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxMessage)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	return &resp, nil
}
