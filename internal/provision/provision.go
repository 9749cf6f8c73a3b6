package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/config"
)

const (
	defaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response is read for logging.
	maxErrorBody = 512
)

// Request is the registration body.
type Request struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	MACAddress string `json:"macAddress,omitempty"`
}

// Device is the server's view of the device after registration.
type Device struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	MACAddress string `json:"macAddress"`
	Status     string `json:"status"`
}

// Result describes a successful registration.
type Result struct {
	Created bool // true for 201, false for an update (200)
	Device  Device
}

// Client posts registrations to the server.
type Client struct {
	url        string
	httpClient *http.Client
	lookupMAC  func(iface string) (string, error)
	iface      string
}

// New creates a client for the provisioning settings in cfg.
func New(cfg config.ProvisionConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("provision: url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		lookupMAC:  InterfaceMAC,
		iface:      cfg.Interface,
	}, nil
}

// Register posts the device id, type and MAC address.
//
// A missing MAC does not prevent registration; the field is omitted.
//
// Returns:
//   - Result: On 200 or 201
//   - error: ErrRejected on 400, ErrRegistrationFailed (wrapped) otherwise
func (c *Client) Register(ctx context.Context, deviceID, deviceType string) (Result, error) {
	req := Request{ID: deviceID, Type: deviceType}
	if c.iface != "" {
		if mac, err := c.lookupMAC(c.iface); err == nil {
			req.MACAddress = mac
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: encoding request: %w", ErrRegistrationFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: building request: %w", ErrRegistrationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var dev Device
		if err := json.NewDecoder(resp.Body).Decode(&dev); err != nil {
			// The registration happened; only the echo is unreadable.
			dev = Device{ID: deviceID, Type: deviceType, MACAddress: req.MACAddress}
		}
		return Result{Created: resp.StatusCode == http.StatusCreated, Device: dev}, nil
	case http.StatusBadRequest:
		return Result{}, fmt.Errorf("%w: %s", ErrRejected, readSnippet(resp.Body))
	default:
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrRegistrationFailed, resp.StatusCode, readSnippet(resp.Body))
	}
}

// InterfaceMAC returns the hardware address of the named interface in the
// aa:bb:cc:dd:ee:ff form.
func InterfaceMAC(name string) (string, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", fmt.Errorf("looking up interface %s: %w", name, err)
	}
	if len(iface.HardwareAddr) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoMAC, name)
	}
	return iface.HardwareAddr.String(), nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody)) //nolint:errcheck // Best-effort for the error message
	return string(bytes.TrimSpace(b))
}
