package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"location_form/logger"
	"location_form/metrics"
	"location_form/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Paths relative to the API base URL. Districts and cities share one
// endpoint; the presence of "district" in the payload selects cities.
const (
	pathCountryPositions = "countries/positions"
	pathCountryStates    = "countries/states"
	pathStateCities      = "countries/state/cities"
)

// DefaultBaseURL is the public countriesnow API.
const DefaultBaseURL = "https://countriesnow.space/api/v0.1/"

// maxErrorBody bounds how much of a non-JSON error body ends up in a message.
const maxErrorBody = 512

// envelope wraps every countriesnow response.
type envelope struct {
	Error bool                `json:"error"`
	Msg   string              `json:"msg"`
	Data  jsoniter.RawMessage `json:"data"`
}

type countryPosition struct {
	Name string  `json:"name"`
	ISO2 string  `json:"iso2"`
	Long float64 `json:"long"`
	Lat  float64 `json:"lat"`
}

type countryStates struct {
	Name   string `json:"name"`
	States []struct {
		Name      string `json:"name"`
		StateCode string `json:"state_code"`
	} `json:"states"`
}

type statesRequest struct {
	Country string `json:"country"`
}

type citiesRequest struct {
	Country  string `json:"country"`
	State    string `json:"state"`
	District string `json:"district,omitempty"`
}

// Client talks to the countriesnow API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	log        *zap.SugaredLogger
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero keeps the HTTP client's own timeout.
// The client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient returns a Client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway: invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		log:        logger.For(logger.ComponentGateway),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

func (c *Client) ListCountries(ctx context.Context) ([]models.Country, error) {
	var data []countryPosition
	if err := c.do(ctx, OpListCountries, http.MethodGet, pathCountryPositions, nil, &data); err != nil {
		return nil, err
	}

	countries := make([]models.Country, 0, len(data))
	for _, p := range data {
		countries = append(countries, models.Country{
			Name:     p.Name,
			ISO2:     p.ISO2,
			Position: models.Position{Latitude: p.Lat, Longitude: p.Long},
		})
	}
	return countries, nil
}

func (c *Client) ListStates(ctx context.Context, country string) ([]models.State, error) {
	var data countryStates
	if err := c.do(ctx, OpListStates, http.MethodPost, pathCountryStates, statesRequest{Country: country}, &data); err != nil {
		return nil, err
	}

	states := make([]models.State, 0, len(data.States))
	for _, s := range data.States {
		states = append(states, models.State{Name: s.Name, StateCode: s.StateCode})
	}
	return states, nil
}

func (c *Client) ListDistricts(ctx context.Context, country, state string) ([]string, error) {
	var data []string
	payload := citiesRequest{Country: country, State: state}
	if err := c.do(ctx, OpListDistricts, http.MethodPost, pathStateCities, payload, &data); err != nil {
		return nil, err
	}
	return nonNil(data), nil
}

func (c *Client) ListCities(ctx context.Context, country, state, district string) ([]string, error) {
	var data []string
	payload := citiesRequest{Country: country, State: state, District: district}
	if err := c.do(ctx, OpListCities, http.MethodPost, pathStateCities, payload, &data); err != nil {
		return nil, err
	}
	return nonNil(data), nil
}

// do sends one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, op, method, path string, payload, out interface{}) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveGatewayRequest(op, started, err)
		if err != nil {
			c.log.Warnw("Remote request failed", "operation", op, "error", err, "duration", time.Since(started))
		} else {
			c.log.Debugw("Remote request succeeded", "operation", op, "duration", time.Since(started))
		}
	}()

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &NetworkError{Operation: op, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return &NetworkError{Operation: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Operation: op, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && env.Msg != "" {
			msg = env.Msg
		} else if decodeErr != nil && len(raw) > 0 {
			msg = truncate(string(raw), maxErrorBody)
		}
		return &NetworkError{Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return &NetworkError{Operation: op, StatusCode: resp.StatusCode, Message: "decode response", Err: decodeErr}
	}
	if env.Error {
		return &NetworkError{Operation: op, StatusCode: resp.StatusCode, Message: env.Msg}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &NetworkError{Operation: op, StatusCode: resp.StatusCode, Message: "decode data", Err: err}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
