package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
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

// Start requests install and activation.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Shellcache.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop serving.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Shellcache.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Shellcache.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetVersion asks the controller for its deployment version.
func (c *Client) GetVersion() (*GetVersionResponse, error) {
	var resp GetVersionResponse
	if err := c.client.Call("Shellcache.GetVersion", GetVersionRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SkipWaiting promotes the controller past the waiting phase.
func (c *Client) SkipWaiting() (*SkipWaitingResponse, error) {
	var resp SkipWaitingResponse
	if err := c.client.Call("Shellcache.SkipWaiting", SkipWaitingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CacheURLs caches URLs into the dynamic store.
func (c *Client) CacheURLs(urls []string) (*CacheURLsResponse, error) {
	var resp CacheURLsResponse
	req := CacheURLsRequest{URLs: urls}
	if err := c.client.Call("Shellcache.CacheURLs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Message delivers a raw control message to the controller.
func (c *Client) Message(req MessageRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.client.Call("Shellcache.Message", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Push delivers a push payload to the notification handler.
func (c *Client) Push(payload []byte) (*PushResponse, error) {
	var resp PushResponse
	req := PushRequest{Payload: payload}
	if err := c.client.Call("Shellcache.Push", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Shellcache.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StoreList returns summaries of every named cache store.
func (c *Client) StoreList() (*StoreListResponse, error) {
	var resp StoreListResponse
	if err := c.client.Call("Shellcache.StoreList", StoreListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StoreEntries returns entry summaries for one named store.
func (c *Client) StoreEntries(store string) (*StoreEntriesResponse, error) {
	var resp StoreEntriesResponse
	req := StoreEntriesRequest{Store: store}
	if err := c.client.Call("Shellcache.StoreEntries", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
