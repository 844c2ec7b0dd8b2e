package apiclient

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

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/catalog"
)

const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks JSON to the external booking API.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListServices(ctx context.Context) ([]catalog.Service, error) {
	var out []catalog.Service
	if err := c.do(ctx, http.MethodGet, "/services", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAppointments(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error) {
	q := url.Values{}
	if !f.Date.IsZero() {
		q.Set("date", f.Date.String())
	}
	if f.CustomerEmail != "" {
		q.Set("customerEmail", f.CustomerEmail)
	}
	path := "/appointments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []appointment.Appointment
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// createBody sends totalPrice as a JSON number rather than decimal's
// default quoted string.
type createBody struct {
	Services        []string    `json:"services"`
	TotalPrice      json.Number `json:"totalPrice"`
	AppointmentDate string      `json:"appointmentDate"`
	AppointmentTime string      `json:"appointmentTime"`
	CustomerName    string      `json:"customerName"`
	CustomerEmail   string      `json:"customerEmail"`
	CustomerPhone   string      `json:"customerPhone"`
}

func (c *Client) CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	body := createBody{
		Services:        req.Services,
		TotalPrice:      json.Number(req.TotalPrice.String()),
		AppointmentDate: req.AppointmentDate.String(),
		AppointmentTime: req.AppointmentTime,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
	}
	var out appointment.Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PatchStatus(ctx context.Context, id string, status appointment.Status) (*appointment.Appointment, error) {
	body := map[string]string{"id": id, "status": string(status)}
	var out appointment.Appointment
	if err := c.do(ctx, http.MethodPatch, "/appointments/status", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
