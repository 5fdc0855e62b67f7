// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/expbackoff"
	"github.com/nethergamesmc/lokilogger/app/z"
)

// Outcome is the result of delivering a single push request.
type Outcome struct {
	// Delivered is true if a push attempt returned 204 No Content.
	Delivered bool
	// Attempts is the number of transport calls made.
	Attempts int
	// StatusCode is the status code of the last attempt, zero on transport errors.
	StatusCode int
	// Err is the error of the last failed attempt, nil if delivered.
	Err error
}

// NewDeliverer returns a new Deliverer pushing to the configured endpoint.
func NewDeliverer(conf Config, opts ...Option) (*Deliverer, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions(conf)
	for _, opt := range opts {
		opt(&o)
	}

	return newDeliverer(conf, o)
}

func newDeliverer(conf Config, o options) (*Deliverer, error) {
	pushURL, err := conf.pushURL()
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", conf.userAgent())
	if conf.TenantID != "" {
		header.Set("X-Scope-OrgID", conf.TenantID)
	}
	if user, pass, ok := conf.credentials(); ok {
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
	}

	return &Deliverer{
		url:       pushURL,
		header:    header,
		transport: o.transport,
		clock:     o.clock,
		backoff:   conf.RetryBackoff,
		encode:    json.Marshal,
	}, nil
}

// Deliverer pushes requests to Loki with bounded retries.
type Deliverer struct {
	url       string
	header    http.Header
	transport Transport
	clock     clockwork.Clock
	backoff   expbackoff.Config
	encode    func(any) ([]byte, error)
}

// Deliver encodes and pushes the request, retrying failed attempts up to retries times.
// Failures are never retried beyond that, the returned outcome is for diagnostics only.
// Encoding errors are not retried.
func (d *Deliverer) Deliver(ctx context.Context, req PushRequest, retries int) Outcome {
	body, err := d.encode(req)
	if err != nil {
		droppedCounter.WithLabelValues(reasonEncode).Add(float64(req.entryCount()))
		return Outcome{Err: errors.Wrap(err, "encode push request")}
	}

	header := d.header.Clone()
	header.Set("Content-Length", strconv.Itoa(len(body)))

	var out Outcome
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 && !expbackoff.Sleep(ctx, d.clock, d.backoff, attempt-1) {
			break
		}

		out.Attempts++

		t0 := d.clock.Now()
		status, err := d.transport.Post(ctx, d.url, header, body)
		pushLatency.Observe(d.clock.Since(t0).Seconds())

		out.StatusCode = status
		if err == nil && status == http.StatusNoContent {
			attemptCounter.WithLabelValues("success").Inc()
			deliveredCounter.Add(float64(req.entryCount()))
			out.Delivered = true
			out.Err = nil

			return out
		}

		if status == 0 {
			attemptCounter.WithLabelValues("transport").Inc()
		} else {
			attemptCounter.WithLabelValues("status").Inc()
		}

		if err == nil {
			err = errors.New("unexpected push response status", z.Int("status_code", status))
		}
		out.Err = err
	}

	droppedCounter.WithLabelValues(reasonDelivery).Add(float64(req.entryCount()))

	return out
}
