// ABOUTME: Transport for fetching user supplied URLs
// ABOUTME: Dials only public addresses so redirects and DNS names cannot reach internal hosts

package standard

import (
	"net"
	"net/http"
	"time"

	"cropguard-api/pkg/netguard"
)

// maxPageRedirects bounds redirect chains on public page fetches
const maxPageRedirects = 5

// NewPublicTransport returns a transport that refuses non-public
// destinations. Proxies from the environment are ignored since they would
// hide the real destination from the dial check.
func NewPublicTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   netguard.Control,
	}
	return &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// WithPublicRedirectsOnly rejects redirects to literal private hosts before
// they are dialed and caps the chain length
func WithPublicRedirectsOnly() Option {
	return func(c *StandardHTTPClient) {
		c.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxPageRedirects {
				return http.ErrUseLastResponse
			}
			return netguard.CheckHost(req.URL.Hostname())
		}
	}
}
