// Package httpclient wraps net/http for the proxy's one upstream call
// shape — POSTing a JSON body to the Responses endpoint, batch or
// streamed — classifying transport failures into proxyerrors so callers
// never have to sniff error strings.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/anthroshim/msgshim/pkg/proxyerrors"
)

// Client issues upstream POST requests. The zero value is not usable;
// construct with New.
type Client struct {
	http *http.Client
}

// New builds a Client with a transport tuned for a handful of
// long-lived upstream connections (the Responses endpoint).
func New() *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// PostJSON marshals body as JSON and POSTs it to url with headers
// applied on top of a Content-Type: application/json default. The
// caller controls timeout behavior entirely through ctx — batch calls
// should bound ctx with a deadline, stream fetches typically should
// not, mirroring the upstream's own batch-vs-stream timeout split.
//
// A context deadline or transport-level dial/connection failure is
// classified into a *proxyerrors.ProxyError (upstream-timeout or
// upstream-connection respectively) so callers can propagate it
// directly. The caller is responsible for closing the returned
// response's Body, and for checking its status code against 400 (a
// non-2xx status is returned as a normal *http.Response, not an error —
// see ReadUpstreamError).
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	return resp, nil
}

// ReadUpstreamError returns nil without touching resp.Body when resp's
// status is below 400. For a status of 400 or above it reads and closes
// resp.Body and returns a *proxyerrors.ProxyError carrying that status
// verbatim.
func ReadUpstreamError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return proxyerrors.UpstreamStatus(resp.StatusCode, string(body))
}

func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return proxyerrors.UpstreamTimeout(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return proxyerrors.UpstreamTimeout(err)
	}
	return proxyerrors.UpstreamConnection(err)
}
