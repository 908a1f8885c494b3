// Package crm is a client for the restaurant CRM contact API.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	apiKeyHeader   = "XApiKey"
	customerCode   = "C"
	maxBodyBytes   = 1 << 20
)

var (
	ErrTimeout  = errors.New("crm timeout")
	ErrNetwork  = errors.New("crm network error")
	ErrRejected = errors.New("crm rejected request")
	ErrConfig   = errors.New("crm config error")
)

var customerNumberPattern = regexp.MustCompile(`(?i)Customer\s+Number\s+(\d+)`)

// Client talks to the CRM contact endpoints.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Contact is a CRM customer record.
type Contact struct {
	Number int64  `json:"CNO"`
	Name   string `json:"CNAME"`
	Phone  string `json:"TEL1"`
	Email  string `json:"EMAIL"`
}

type imagePayload struct {
	Base64Data string `json:"Base64Data"`
}

type savePayload struct {
	Code        string       `json:"CCODE"`
	Con         string       `json:"CON"`
	Number      string       `json:"CNO"`
	Name        string       `json:"CNAME"`
	ForeignName string       `json:"FORDES"`
	Phone       string       `json:"TEL1"`
	Phone2      string       `json:"TEL2"`
	Email       string       `json:"EMAIL"`
	Email2      string       `json:"EMAIL1"`
	Image       imagePayload `json:"IMG"`
}

// NewClient creates a CRM client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout, Transport: transport},
	}
}

// GetContact looks a contact up by number, phone or email. It returns
// nil, nil when the CRM does not know the key.
func (c *Client) GetContact(ctx context.Context, key string) (*Contact, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: empty contact key", ErrConfig)
	}

	status, body, err := c.do(ctx, http.MethodGet, "/api/concmd/GETCON/"+customerCode+"/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound || isErrBody(body) || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrRejected, status, truncate(body))
	}

	var contact Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return nil, fmt.Errorf("crm decode contact: %w", err)
	}
	return &contact, nil
}

// SaveContact creates the contact when Number is 0 and updates it
// otherwise. It returns the contact number assigned by the CRM.
func (c *Client) SaveContact(ctx context.Context, contact Contact) (int64, error) {
	payload := savePayload{
		Code:        customerCode,
		Con:         "1",
		Number:      strconv.FormatInt(contact.Number, 10),
		Name:        contact.Name,
		ForeignName: contact.Name,
		Phone:       contact.Phone,
		Email:       contact.Email,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("crm encode contact: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, "/api/CONCMD/ADDCON", raw)
	if err != nil {
		return 0, err
	}
	if status < 200 || status >= 300 || isErrBody(body) {
		return 0, fmt.Errorf("%w: status=%d body=%s", ErrRejected, status, truncate(body))
	}

	if contact.Number != 0 {
		return contact.Number, nil
	}
	m := customerNumberPattern.FindSubmatch(body)
	if m == nil {
		return 0, fmt.Errorf("%w: no customer number in response: %s", ErrRejected, truncate(body))
	}
	return strconv.ParseInt(string(m[1]), 10, 64)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	if c == nil || c.http == nil {
		return 0, nil, fmt.Errorf("%w: client is nil", ErrConfig)
	}
	if c.baseURL == "" {
		return 0, nil, fmt.Errorf("%w: base_url is empty", ErrConfig)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("crm request error: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, classifyRequestError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, classifyRequestError(ctx, err)
	}
	return resp.StatusCode, respBody, nil
}

// isErrBody reports the CRM's in-band failure marker.
func isErrBody(body []byte) bool {
	return bytes.Contains(body, []byte("ERR"))
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "...<truncated>"
	}
	return string(body)
}

func classifyRequestError(ctx context.Context, err error) error {
	if isTimeoutError(ctx, err) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if isNetworkError(err) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return fmt.Errorf("crm request error: %w", err)
}

func isTimeoutError(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}
