// Package httpclient builds the HTTP client shared by the provider clients
// and the OAuth flows.
package httpclient

import (
	"net/http"
	"time"

	"github.com/LucasSabena/codemobile-sub001/pkg/useragent"
)

type headerTransport struct {
	headers http.Header
	rt      http.RoundTripper
}

// RoundTrip sets the configured headers unless the request already
// carries them.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r2 := req.Clone(req.Context())
	for k, vs := range t.headers {
		if r2.Header.Get(k) == "" {
			r2.Header[k] = vs
		}
	}
	return t.rt.RoundTrip(r2)
}

type options struct {
	headers   http.Header
	timeout   time.Duration
	transport http.RoundTripper
}

type Opt func(*options)

func WithHeader(key, value string) Opt {
	return func(o *options) {
		o.headers.Set(key, value)
	}
}

// WithTimeout bounds whole requests. Streaming clients should leave it
// unset and rely on the request context.
func WithTimeout(d time.Duration) Opt {
	return func(o *options) {
		o.timeout = d
	}
}

func WithTransport(rt http.RoundTripper) Opt {
	return func(o *options) {
		o.transport = rt
	}
}

func NewHTTPClient(opts ...Opt) *http.Client {
	o := options{
		headers:   http.Header{},
		transport: http.DefaultTransport,
	}
	o.headers.Set("User-Agent", useragent.Header)
	for _, opt := range opts {
		opt(&o)
	}

	return &http.Client{
		Timeout: o.timeout,
		Transport: &headerTransport{
			headers: o.headers,
			rt:      o.transport,
		},
	}
}
