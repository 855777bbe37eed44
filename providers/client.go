package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hyperblend/config"
)

const userAgent = "hyperblend/1.0 (+https://github.com/hyperblend)"

// userAgentTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type userAgentTransport struct {
	Transport http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

var httpClient = &http.Client{
	Transport: &userAgentTransport{Transport: http.DefaultTransport},
}

// Client kapselt HTTP-Aufrufe an eine Quelle mit Timeout, Wiederholungen und Rate-Limit.
type Client struct {
	Source     string
	HTTP       *http.Client
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Limiter    *rate.Limiter
	Logger     *zap.Logger
}

// NewClient erstellt einen Client für die genannte Quelle.
func NewClient(cfg *config.Config, source string, logger *zap.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.RequestBurst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		Source:     source,
		HTTP:       httpClient,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Limiter:    rate.NewLimiter(limit, burst),
		Logger:     logger.With(zap.String("source", source)),
	}
}

// GetJSON ruft url ab und dekodiert die JSON-Antwort nach out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, nil, out)
}

// GetJSONHeader ist GetJSON mit zusätzlichen Headern (z.B. Authorization).
func (c *Client) GetJSONHeader(ctx context.Context, url string, header http.Header, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, header, out)
}

// PostJSON sendet body als JSON und dekodiert die Antwort nach out.
func (c *Client) PostJSON(ctx context.Context, url string, body any, header http.Header, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &AdapterError{Source: c.Source, Op: "encode", Err: err}
	}
	return c.do(ctx, http.MethodPost, url, payload, header, out)
}

type attemptError struct {
	status     int
	retryAfter time.Duration
	retry      bool
	err        error
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, header http.Header, out any) error {
	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	log := c.Logger.With(zap.String("url", url))

	var last *attemptError
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return &AdapterError{Source: c.Source, Op: method, Err: err}
			}
		}

		ae := c.attempt(ctx, method, url, payload, header, out)
		if ae == nil {
			return nil
		}
		if errors.Is(ae.err, ErrNotFound) {
			return ErrNotFound
		}
		last = ae
		if !ae.retry || ctx.Err() != nil || attempt == attempts {
			break
		}

		wait := c.RetryDelay * time.Duration(attempt)
		if ae.retryAfter > 0 {
			wait = ae.retryAfter
		}
		log.Warn("Anfrage fehlgeschlagen, neuer Versuch",
			zap.Int("attempt", attempt), zap.Int("status", ae.status), zap.Duration("wait", wait), zap.Error(ae.err))

		select {
		case <-ctx.Done():
			return &AdapterError{Source: c.Source, Op: method, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
	return &AdapterError{Source: c.Source, Op: method, StatusCode: last.status, Err: last.err}
}

func (c *Client) attempt(ctx context.Context, method, url string, payload []byte, header http.Header, out any) *attemptError {
	reqCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return &attemptError{err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// Netzwerkfehler und Zeitüberschreitungen werden wiederholt, solange der Aufrufer nicht abbricht.
		return &attemptError{retry: ctx.Err() == nil, err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &attemptError{status: resp.StatusCode, err: ErrNotFound}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &attemptError{status: resp.StatusCode, retry: true, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), err: errors.New("rate limited")}
	case resp.StatusCode >= 500:
		return &attemptError{status: resp.StatusCode, retry: true, err: errors.New(http.StatusText(resp.StatusCode))}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &attemptError{status: resp.StatusCode, err: fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet)))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &attemptError{status: resp.StatusCode, err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// FlexFloat dekodiert Zahlen, die manche Quellen als String liefern ("211.26").
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	f.Value, f.Valid = v, true
	return nil
}

// Ptr liefert den Wert als optionales Feld; nicht positive Werte gelten als unbekannt.
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid || f.Value <= 0 {
		return nil
	}
	v := f.Value
	return &v
}
