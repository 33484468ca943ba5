// Package client reaches the catalog service over HTTP and reports failures
// with the catalog store error kinds.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/book-search/pkg/catalog"
	"github.com/Astemirdum/book-search/pkg/circuit_breaker"
	"github.com/Astemirdum/book-search/pkg/query"
)

const booksPath = "/api/v1/books"

type Client struct {
	log     *zap.Logger
	client  *http.Client
	cb      circuit_breaker.CircuitBreaker
	baseURL string
}

type Option func(*Client)

func WithCircuitBreaker(cb circuit_breaker.CircuitBreaker) Option {
	return func(c *Client) {
		c.cb = cb
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// New builds a client for the catalog at addr, given either as host:port or
// as a base URL. timeout bounds a whole search round trip; zero means none.
func New(addr string, timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	c := &Client{
		log:     log.Named("catalog_client"),
		client:  &http.Client{Timeout: timeout},
		cb:      circuit_breaker.New(20, 5*time.Second, 0.5, 2),
		baseURL: strings.TrimRight(addr, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search asks the catalog for the books matching q. Only unreachable-catalog
// failures count against the circuit breaker; while it is open, Search fails
// fast with ConnectionUnavailable.
func (c *Client) Search(ctx context.Context, q query.Query) ([]catalog.Book, error) {
	var (
		books     []catalog.Book
		searchErr error
	)
	err := c.cb.Call(func() error {
		books, searchErr = c.search(ctx, q)
		if ctx.Err() == nil && errors.Is(searchErr, catalog.ErrConnectionUnavailable) {
			return searchErr
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, circuit_breaker.ErrOpenCB) {
			return nil, catalog.NewError(catalog.KindConnectionUnavailable, err)
		}
		return nil, err
	}
	return books, searchErr
}

func (c *Client) search(ctx context.Context, q query.Query) ([]catalog.Book, error) {
	target := c.baseURL + booksPath + "?" + url.Values{"q": []string{q.Normalized}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, catalog.NewError(catalog.KindConnectionUnavailable, err)
	}
	reqID := uuid.NewString()
	req.Header.Set(echo.HeaderXRequestID, reqID)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, catalog.NewError(catalog.KindConnectionUnavailable, err)
	}
	defer resp.Body.Close()

	c.log.Debug("search",
		zap.String("request_id", reqID),
		zap.String("query", q.Normalized),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode == http.StatusOK {
		var list catalog.ListBooks
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			return nil, catalog.NewError(catalog.KindMalformedResponse, errors.Wrap(err, "decode books"))
		}
		if list.Items == nil {
			list.Items = []catalog.Book{}
		}
		return list.Items, nil
	}
	return nil, decodeError(resp)
}

// decodeError rebuilds the store error the catalog answered with. Statuses
// produced by proxies in front of the catalog carry no kind; those meaning
// "not reachable now" map to ConnectionUnavailable.
func decodeError(resp *http.Response) error {
	var body catalog.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return catalog.NewError(catalog.KindMalformedResponse,
			errors.Wrapf(err, "decode error body, status %d", resp.StatusCode))
	}
	cause := fmt.Errorf("status %d: %s", resp.StatusCode, body.Message)
	if body.Kind.Valid() {
		return catalog.NewError(body.Kind, cause)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return catalog.NewError(catalog.KindConnectionUnavailable, cause)
	default:
		return catalog.NewError(catalog.KindQueryExecutionFailed, cause)
	}
}
