package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"ownership/internal/daemon"
	"ownership/internal/ingest"
	"ownership/internal/matching"
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

func (c *Client) call(method string, args, reply any) error {
	return c.client.Call(ServiceName+"."+method, args, reply)
}

// Check runs a batch of fingerprint requests on the daemon.
func (c *Client) Check(reqs []matching.Request) (matching.BatchResult, error) {
	var resp CheckResponse
	if err := c.call("Check", CheckRequest{Requests: reqs}, &resp); err != nil {
		return matching.BatchResult{}, err
	}
	return resp.BatchResult(), nil
}

// CheckFile asks the daemon for the verdict on a file it can read.
func (c *Client) CheckFile(path string) (ingest.Outcome, error) {
	var resp OutcomeResponse
	if err := c.call("CheckFile", FileRequest{Path: path}, &resp); err != nil {
		return ingest.Outcome{}, err
	}
	return resp.Outcome, resp.Failure.Err()
}

// Register asks the daemon to register a file for owner.
func (c *Client) Register(path, owner string) (ingest.Outcome, error) {
	var resp OutcomeResponse
	if err := c.call("Register", RegisterRequest{Path: path, Owner: owner}, &resp); err != nil {
		return ingest.Outcome{}, err
	}
	return resp.Outcome, resp.Failure.Err()
}

// Stats retrieves engine statistics.
func (c *Client) Stats() (matching.Stats, error) {
	var resp StatsResponse
	if err := c.call("Stats", StatsRequest{}, &resp); err != nil {
		return matching.Stats{}, err
	}
	return resp.Stats, nil
}

// Status retrieves the daemon status.
func (c *Client) Status(includeChecks bool) (daemon.Status, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{IncludeChecks: includeChecks}, &resp); err != nil {
		return daemon.Status{}, err
	}
	return resp.Status, nil
}

// Reload asks the daemon to rebuild its index.
func (c *Client) Reload() (int, error) {
	var resp ReloadResponse
	if err := c.call("Reload", ReloadRequest{}, &resp); err != nil {
		return 0, err
	}
	return resp.Records, nil
}

// TestNotification triggers a test notification.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
