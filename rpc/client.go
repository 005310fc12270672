package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pflow-xyz/go-mona/host"
	"github.com/pflow-xyz/go-mona/token"
)

// Client talks to a node over HTTP. Methods mirror the node's
// endpoints one for one.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the node at base, e.g.
// "http://localhost:8700".
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Deploy creates the ledger for the deployer, or reports the existing
// one when the same deployer deploys again.
func (c *Client) Deploy(ctx context.Context, deployer token.Address) (*DeployResponse, error) {
	var resp DeployResponse
	err := c.post(ctx, "/deploy", DeployRequest{Deployer: deployer.String()}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit sends a transaction and returns its receipt. A rejected
// receipt is not an error; the receipt's Status and Error fields carry
// the rejection.
func (c *Client) Submit(ctx context.Context, req TxRequest) (*host.Receipt, error) {
	var receipt host.Receipt
	if err := c.post(ctx, "/tx", req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Status reports the ledger the node serves.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get(ctx, "/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports node liveness.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Balance returns an account's balance.
func (c *Client) Balance(ctx context.Context, addr token.Address) (*BalanceResponse, error) {
	var resp BalanceResponse
	if err := c.get(ctx, "/balance/"+addr.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Allowance returns the remaining allowance from owner to spender.
func (c *Client) Allowance(ctx context.Context, owner, spender token.Address) (*AllowanceResponse, error) {
	var resp AllowanceResponse
	path := "/allowance/" + owner.String() + "/" + spender.String()
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Roles returns role membership for an account.
func (c *Client) Roles(ctx context.Context, account token.Address) (*RolesResponse, error) {
	var resp RolesResponse
	if err := c.get(ctx, "/roles/"+account.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Schema returns the contract declaration and its content address.
func (c *Client) Schema(ctx context.Context) (*SchemaResponse, error) {
	var resp SchemaResponse
	if err := c.get(ctx, "/schema", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns committed history starting at fromVersion.
func (c *Client) Events(ctx context.Context, fromVersion int) ([]token.Event, error) {
	var resp EventsResponse
	path := fmt.Sprintf("/events?from=%d", fromVersion)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Verify re-checks the schema constraints against the node's live
// snapshot.
func (c *Client) Verify(ctx context.Context) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.get(ctx, "/verify", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Circuits lists the node's registered proof circuits.
func (c *Client) Circuits(ctx context.Context) ([]CircuitInfo, error) {
	var resp CircuitsResponse
	if err := c.get(ctx, "/circuits", &resp); err != nil {
		return nil, err
	}
	return resp.Circuits, nil
}

// Prove asks the node to build a proof against its live snapshot.
func (c *Client) Prove(ctx context.Context, circuit string, req ProveRequest) (*ProveResponse, error) {
	var resp ProveResponse
	if err := c.post(ctx, "/prove/"+circuit, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verifier fetches the Solidity verifier contract for a circuit.
func (c *Client) Verifier(ctx context.Context, circuit string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/verifier/"+circuit, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rpc: GET /verifier/%s: %s: %s", circuit, resp.Status, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// Watch opens the event stream. The returned channel carries committed
// events until ctx is done or the connection drops, then closes.
func (c *Client) Watch(ctx context.Context) (<-chan token.Event, error) {
	streamURL, err := c.streamURL()
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", streamURL, err)
	}

	// The node sends hello once the stream is registered. Waiting for
	// it means events committed after Watch returns cannot be missed.
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("rpc: stream handshake: %w", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == MsgTypeHello {
			break
		}
	}
	conn.SetReadDeadline(time.Time{})

	events := make(chan token.Event, 64)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type != MsgTypeEvent {
				continue
			}
			var ev token.Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// streamURL rewrites the base URL to the WebSocket endpoint.
func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("rpc: parse base url %q: %w", c.base, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("rpc: %s %s: %s: %s",
			req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
