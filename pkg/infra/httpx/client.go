package httpx

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout             = 10 * time.Second
	DefaultMaxConnsPerHost     = 64
	DefaultMaxIdleConnDuration = 10 * time.Second
	DefaultMaxResponseBodySize = 4 * 1024 * 1024 // 4MB
	defaultUserAgent           = "numgate/1.0"
)

// Client issues bounded GET requests against the lookup sources.
type Client interface {
	Get(ctx context.Context, url string) (status int, body []byte, err error)
}

type fastHTTPClient struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewClient builds a fasthttp-backed client. Every request is bounded by the
// given timeout, or by the context deadline when that is sooner.
func NewClient(timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &fastHTTPClient{
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxConnsPerHost:     DefaultMaxConnsPerHost,
			MaxIdleConnDuration: DefaultMaxIdleConnDuration,
			MaxResponseBodySize: DefaultMaxResponseBodySize,
		},
		timeout: timeout,
	}
}

func (c *fastHTTPClient) Get(ctx context.Context, url string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(defaultUserAgent)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return 0, nil, err
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return resp.StatusCode(), body, nil
}
