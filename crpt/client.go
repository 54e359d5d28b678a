/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/acronis/go-crptclient/config"
	"github.com/acronis/go-crptclient/httpclient"
	"github.com/acronis/go-crptclient/log"
)

// CreateDocumentPath is a path of the document creation endpoint.
const CreateDocumentPath = "/api/v3/lk/documents/create"

// RequestTypeCreateDocument is a request type of document creation requests in logs and metrics.
const RequestTypeCreateDocument = "create_document"

// CreateDocumentResponse is a successful response of the document creation endpoint.
type CreateDocumentResponse struct {
	StatusCode int
	Body       []byte
}

// Client sends documents to the document creation endpoint.
// It doesn't limit the request rate, it's done by API.
type Client struct {
	httpClient          *http.Client
	createDocumentURL   *url.URL
	maxResponseBodySize config.ByteSize
	logger              log.FieldLogger
}

// ClientOpts contains optional parameters for constructing Client.
type ClientOpts struct {
	Logger log.FieldLogger

	// Transport is the innermost http.RoundTripper. A clone of http.DefaultTransport is used if not specified.
	Transport http.RoundTripper

	// MetricsCollector collects metrics of HTTP requests.
	MetricsCollector httpclient.MetricsCollector
}

// NewClient creates a new Client.
func NewClient(cfg *Config, opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	createDocumentURL, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + CreateDocumentPath)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	httpCfg := httpclient.NewDefaultConfig()
	if cfg.HTTP != nil {
		*httpCfg = *cfg.HTTP
	}
	// One call is one HTTP request. Retries are submitted through the dispatcher by API,
	// so each of them is admitted by the rate limit.
	httpCfg.Retries.Enabled = false
	maxRespBodySize := cfg.MaxResponseBodySize
	if maxRespBodySize == 0 {
		maxRespBodySize = DefaultMaxResponseBodySize
	}
	return &Client{
		httpClient: httpclient.NewWithOpts(httpCfg, httpclient.Opts{
			Delegate:         opts.Transport,
			Logger:           opts.Logger,
			UserAgent:        cfg.UserAgent,
			TokenProvider:    httpclient.StaticTokenProvider(cfg.Token),
			MetricsCollector: opts.MetricsCollector,
		}),
		createDocumentURL:   createDocumentURL,
		maxResponseBodySize: maxRespBodySize,
		logger:              opts.Logger,
	}, nil
}

// CreateDocument sends the document provided by p.
// *ClientError is returned if the request fails or the response status is not 2xx.
func (c *Client) CreateDocument(ctx context.Context, p DocumentProvider) (*CreateDocumentResponse, error) {
	e := &ClientError{Method: http.MethodPost, URL: c.createDocumentURL}

	body, err := p.ProvideJSON()
	if err != nil {
		return nil, e.wrap("providing document", err)
	}
	ctx = httpclient.NewContextWithRequestType(ctx, RequestTypeCreateDocument)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.createDocumentURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, e.wrap("creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, e.wrap("doing request", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Error("error closing response body", log.Error(closeErr))
		}
	}()
	e.StatusCode = resp.StatusCode

	respBody, err := c.readResponseBody(resp)
	if err != nil {
		return nil, e.wrap("reading response body", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		e.Body = respBody
		return nil, e.wrap("unexpected response status", nil)
	}
	return &CreateDocumentResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func (c *Client) readResponseBody(resp *http.Response) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.maxResponseBodySize)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) > uint64(c.maxResponseBodySize) {
		return nil, fmt.Errorf("response body exceeds %s", c.maxResponseBodySize)
	}
	return buf, nil
}
