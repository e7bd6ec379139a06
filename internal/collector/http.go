package collector

import (
	"net/http"
	"net/url"
	"time"
)

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// statusError maps an HTTP status to the source error taxonomy.
func statusError(source string, status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return unavailable(ErrRateLimited, "%s: status %d", source, status)
	case status == http.StatusNotFound:
		return unavailable(ErrNotFound, "%s: status %d", source, status)
	default:
		return unavailable(ErrNetworkFailure, "%s: status %d, body: %s", source, status, truncate(body, 200))
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
