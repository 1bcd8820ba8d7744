package index

import (
	"net"
	"net/http"
	"time"

	rhttp "github.com/hashicorp/go-retryablehttp"
)

const (
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultRequestTimeout        = 5 * time.Minute

	defaultMaxRetries = 3
	defaultMinWait    = 100 * time.Millisecond
	defaultMaxWait    = 2 * time.Second
)

// NewHTTPClient creates an http.Client which automatically retries on
// non-fatal errors. It is used both for index queries and for archive
// downloads.
func NewHTTPClient() *http.Client {
	rhttpClient := rhttp.NewClient()
	// Don't log every request
	rhttpClient.Logger = nil

	rhttpClient.RetryMax = defaultMaxRetries
	rhttpClient.RetryWaitMin = defaultMinWait
	rhttpClient.RetryWaitMax = defaultMaxWait
	rhttpClient.HTTPClient.Timeout = defaultRequestTimeout

	if t, ok := rhttpClient.HTTPClient.Transport.(*http.Transport); ok {
		t.DialContext = (&net.Dialer{
			Timeout: defaultDialTimeout,
		}).DialContext
		t.ResponseHeaderTimeout = defaultResponseHeaderTimeout
	}

	return rhttpClient.StandardClient()
}
