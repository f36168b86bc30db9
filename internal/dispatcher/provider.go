package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jmehdipour/rh-booking/internal/model"
)

type Provider interface {
	Name() string
	Ready() bool
	Acquire() bool
	Send(ctx context.Context, sms model.SMS) error
}

// HTTPProvider POSTs the SMS as JSON; any non-2xx answer counts as a failure.
type HTTPProvider struct {
	name   string
	url    string
	client *http.Client
	br     *Breaker
}

func NewHTTPProvider(name, baseURL, sendPath string, timeoutMs, failThreshold, openForMs int) *HTTPProvider {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}
	if failThreshold <= 0 {
		failThreshold = 3
	}
	if openForMs <= 0 {
		openForMs = 15000
	}
	if sendPath == "" {
		sendPath = "/sms/send"
	}

	return &HTTPProvider{
		name:   name,
		url:    baseURL + sendPath,
		client: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:     NewBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPProvider) Name() string      { return p.name }
func (p *HTTPProvider) Ready() bool       { return p.br.Ready() }
func (p *HTTPProvider) Acquire() bool     { return p.br.TryAcquire() }
func (p *HTTPProvider) Breaker() *Breaker { return p.br }

func (p *HTTPProvider) Send(ctx context.Context, sms model.SMS) error {
	if err := p.post(ctx, sms); err != nil {
		p.br.OnFailure()
		return err
	}
	p.br.OnSuccess()
	return nil
}

func (p *HTTPProvider) post(ctx context.Context, sms model.SMS) error {
	b, err := json.Marshal(sms)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("provider=%s status=%d", p.name, res.StatusCode)
	}
	return nil
}
