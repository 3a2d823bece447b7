package formatter

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"voicenote/log"
)

// tracedClient wraps an http.Client and records per-request connection
// timings to the diagnostics log.
type tracedClient struct {
	client *http.Client
}

func newTracedClient(timeout time.Duration) *tracedClient {
	return &tracedClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        2,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type tracedResponse struct {
	Body       []byte
	StatusCode int
	Timings    log.HTTPTimings
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func (c *tracedClient) Do(req *http.Request) (*tracedResponse, error) {
	var timings log.HTTPTimings
	var dnsStart, tlsStart, wroteRequest time.Time

	trace := &httptrace.ClientTrace{
		GotConn:           func(info httptrace.GotConnInfo) { timings.ConnReused = info.Reused },
		DNSStart:          func(_ httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone:           func(_ httptrace.DNSDoneInfo) { timings.DNSMs = ms(time.Since(dnsStart)) },
		TLSHandshakeStart: func() { tlsStart = time.Now() },
		TLSHandshakeDone:  func(_ tls.ConnectionState, _ error) { timings.TLSMs = ms(time.Since(tlsStart)) },
		WroteRequest:      func(_ httptrace.WroteRequestInfo) { wroteRequest = time.Now() },
		GotFirstResponseByte: func() {
			timings.TTFBMs = ms(time.Since(wroteRequest))
		},
	}

	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	timings.TotalMs = ms(time.Since(start))
	timings.Status = resp.StatusCode
	log.FormatRequest(timings)

	return &tracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Timings:    timings,
	}, nil
}
