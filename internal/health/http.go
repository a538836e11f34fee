package health

import (
	"log"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPProbe considers the host healthy while a colocated service answers
// with a 2xx status. One quick retry absorbs a dropped connection without
// stretching the verdict past a tick.
type HTTPProbe struct {
	URL    string
	client *retryablehttp.Client
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 500 * time.Millisecond
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	return &HTTPProbe{URL: url, client: client}
}

func (p *HTTPProbe) Name() string { return "http" }

func (p *HTTPProbe) Check() bool {
	resp, err := p.client.Get(p.URL)
	if err != nil {
		log.Printf("[Health] GET %s failed: %v", p.URL, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Health] GET %s returned %d", p.URL, resp.StatusCode)
		return false
	}
	return true
}
