package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/olla-project/framework/internal/core/domain"
	"github.com/olla-project/framework/internal/core/ports"
)

const (
	defaultUserAgent      = "olla-framework/1"
	defaultMaxResponseSize = 10 * 1024 * 1024
)

// HTTPProtocolHandler is the default ports.ProtocolHandler: it POSTs
// method+payload to the connection's endpoint and reads back a
// size-bounded response body. Grounded on the teacher's
// discovery.HTTPModelDiscoveryClient (shared *http.Client with tuned
// Transport, request-size limiting via io.LimitReader, User-Agent
// header convention) generalised from model discovery to generic
// method invocation.
type HTTPProtocolHandler struct {
	client *http.Client
}

var _ ports.ProtocolHandler = (*HTTPProtocolHandler)(nil)

func NewHTTPProtocolHandler() *HTTPProtocolHandler {
	return &HTTPProtocolHandler{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     60 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
	}
}

func (h *HTTPProtocolHandler) Start(_ context.Context) error { return nil }
func (h *HTTPProtocolHandler) Stop(_ context.Context) error {
	h.client.CloseIdleConnections()
	return nil
}

// Invoke type-asserts conn.Channel to a *HTTPChannel carrying the
// endpoint's base URL, and POSTs to "<baseURL>/<method>".
func (h *HTTPProtocolHandler) Invoke(ctx context.Context, conn *domain.ManagedConnection, method string, payload []byte) ([]byte, error) {
	ch, ok := conn.Channel.(*HTTPChannel)
	if !ok {
		return nil, domain.NewFrameworkError(domain.ProtocolError, "http protocol: connection channel is not an HTTPChannel")
	}

	url := fmt.Sprintf("%s/%s", ch.BaseURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.WrapFrameworkError(domain.ProtocolError, "http protocol: build request failed", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, domain.WrapFrameworkError(domain.ConnectionError, "http protocol: request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxResponseSize))
	if err != nil {
		return nil, domain.WrapFrameworkError(domain.ProtocolError, "http protocol: read response failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewFrameworkError(domain.ProtocolError, fmt.Sprintf("http protocol: unexpected status %d", resp.StatusCode))
	}
	return body, nil
}

// HTTPChannel is the domain.RawChannel the HTTP dialer opens: it
// carries no persistent socket (net/http.Transport pools those
// itself) but satisfies RawChannel so it can live inside a
// domain.ManagedConnection like any other transport.
type HTTPChannel struct {
	BaseURL string
}

func (c *HTTPChannel) Close() error { return nil }

// NewHTTPDialer adapts an endpoint into a pool.Dialer that opens
// HTTPChannel handles — the pool's connection concept maps onto HTTP's
// pool-less keep-alive model by treating each "connection" as a bound
// base URL rather than a socket.
func NewHTTPDialer() func(ctx context.Context, endpoint *domain.ServiceEndpoint) (domain.RawChannel, error) {
	return func(_ context.Context, endpoint *domain.ServiceEndpoint) (domain.RawChannel, error) {
		return &HTTPChannel{BaseURL: fmt.Sprintf("%s://%s:%d", endpoint.Protocol, endpoint.Address, endpoint.Port)}, nil
	}
}
