package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/devsync/internal/device"
)

const (
	defaultTimeout = 10 * time.Second

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 10 << 20 // 10 MB

	apiPrefix = "/api/Devices/"
)

// Client calls the device inventory REST service.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL.
// A non-positive timeout selects the 10 second default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// envelope is the response wrapper shared by every endpoint.
type envelope struct {
	IsSuccessful *bool           `json:"isSuccessful"`
	IsSuccesful  *bool           `json:"isSuccesful"`
	Data         json.RawMessage `json:"data"`
	ErrorMessage string          `json:"errorMessage"`
}

func (e envelope) successful() bool {
	if e.IsSuccessful != nil {
		return *e.IsSuccessful
	}
	return e.IsSuccesful != nil && *e.IsSuccesful
}

func (e envelope) hasData() bool {
	return len(e.Data) > 0 && !bytes.Equal(e.Data, []byte("null"))
}

// GetAll fetches the full device set.
func (c *Client) GetAll(ctx context.Context) ([]device.Device, error) {
	env, err := c.call(ctx, OpGetAll, struct{}{})
	if err != nil {
		return nil, err
	}

	devices := []device.Device{}
	if env.hasData() {
		if err := json.Unmarshal(env.Data, &devices); err != nil {
			return nil, &RequestFailure{Op: OpGetAll, Err: fmt.Errorf("decoding devices: %w", err)}
		}
	}
	return devices, nil
}

// Create submits a draft and returns the server's canonical record.
func (c *Client) Create(ctx context.Context, draft device.Device) (device.Device, error) {
	env, err := c.call(ctx, OpCreate, draft)
	if err != nil {
		return device.Device{}, err
	}

	if !env.hasData() {
		return device.Device{}, &RequestFailure{Op: OpCreate, Err: errors.New("response has no device")}
	}
	var created device.Device
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return device.Device{}, &RequestFailure{Op: OpCreate, Err: fmt.Errorf("decoding device: %w", err)}
	}
	if created.ID == "" {
		return device.Device{}, &RequestFailure{Op: OpCreate, Err: errors.New("returned device has no id")}
	}
	return created, nil
}

// Update submits the full record. It returns the server's record when the
// response carries one, otherwise the submitted record.
func (c *Client) Update(ctx context.Context, d device.Device) (device.Device, error) {
	env, err := c.call(ctx, OpUpdate, d)
	if err != nil {
		return device.Device{}, err
	}

	if env.hasData() {
		var updated device.Device
		if err := json.Unmarshal(env.Data, &updated); err == nil && updated.ID == d.ID {
			return updated, nil
		}
	}
	return d, nil
}

// Delete removes the record with the given ID.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.call(ctx, OpDelete, struct {
		ID string `json:"id"`
	}{ID: id})
	return err
}

// call posts body to the operation's endpoint and decodes the envelope.
// Any outcome other than a decoded, successful envelope is a *RequestFailure.
func (c *Client) call(ctx context.Context, op string, body any) (envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, &RequestFailure{Op: op, Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+op, bytes.NewReader(payload))
	if err != nil {
		return envelope{}, &RequestFailure{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, &RequestFailure{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return envelope{}, &RequestFailure{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return envelope{}, &RequestFailure{Op: op, StatusCode: resp.StatusCode, Message: env.ErrorMessage}
	}
	if decodeErr != nil {
		return envelope{}, &RequestFailure{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", decodeErr)}
	}
	if !env.successful() {
		msg := env.ErrorMessage
		if msg == "" {
			msg = "unsuccessful response"
		}
		return envelope{}, &RequestFailure{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	return env, nil
}
