// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/common/model"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/expbackoff"
	"github.com/nethergamesmc/lokilogger/app/z"
)

const (
	// pushPath is appended to the configured endpoint base URL.
	pushPath = "/loki/api/v1/push"

	// DefaultUserAgent identifies the agent to the Loki endpoint.
	DefaultUserAgent = "NetherGamesMC/libLokiLogger"

	defaultFlushPeriod = 5 * time.Second
	defaultTimeout     = 10 * time.Second
	defaultRetries     = 1
)

// Config defines the construction-time configuration of an Agent.
type Config struct {
	// Endpoint is the base URL of the Loki server, e.g. http://localhost:3100.
	// Basic auth credentials may be provided as URL userinfo.
	Endpoint string
	// Labels are the default stream labels identifying the log source.
	Labels map[string]string
	// Username and Password are static basic auth credentials, they take precedence over URL userinfo.
	Username string
	Password string
	// TenantID is sent as X-Scope-OrgID header if not empty.
	TenantID string
	// UserAgent overrides DefaultUserAgent if not empty.
	UserAgent string
	// FlushPeriod is the fixed cadence of the flush loop.
	FlushPeriod time.Duration
	// Timeout bounds a single push attempt.
	Timeout time.Duration
	// Retries is the number of additional push attempts after the first failed one.
	Retries int
	// RetryBackoff is the delay between push attempts, the zero value retries immediately.
	RetryBackoff expbackoff.Config
	// MaxBufferedEntries bounds the buffer, zero means unbounded.
	MaxBufferedEntries int
}

// DefaultConfig returns the default agent config without an endpoint.
func DefaultConfig() Config {
	return Config{
		Labels:      make(map[string]string),
		UserAgent:   DefaultUserAgent,
		FlushPeriod: defaultFlushPeriod,
		Timeout:     defaultTimeout,
		Retries:     defaultRetries,
	}
}

// Validate returns an error if the config is invalid.
func (c Config) Validate() error {
	if _, err := c.pushURL(); err != nil {
		return err
	}

	if err := ValidateLabels(c.Labels); err != nil {
		return err
	}

	if c.FlushPeriod <= 0 {
		return errors.New("flush period must be positive", z.Dur("flush_period", c.FlushPeriod))
	}
	if c.Timeout <= 0 {
		return errors.New("push timeout must be positive", z.Dur("timeout", c.Timeout))
	}
	if c.Retries < 0 {
		return errors.New("push retries must not be negative", z.Int("retries", c.Retries))
	}
	if c.MaxBufferedEntries < 0 {
		return errors.New("max buffered entries must not be negative", z.Int("max", c.MaxBufferedEntries))
	}

	return nil
}

// ValidateLabels returns an error if any label name is not a valid Loki label name
// or any value is not valid UTF-8.
func ValidateLabels(labels map[string]string) error {
	for name, value := range labels {
		if !model.LabelName(name).IsValidLegacy() {
			return errors.New("invalid label name", z.Str("label", name))
		}
		if !utf8.ValidString(value) {
			return errors.New("invalid label value, not utf8", z.Str("label", name))
		}
	}

	return nil
}

// pushURL returns the push URL without userinfo.
func (c Config) pushURL() (string, error) {
	u, err := c.parseEndpoint()
	if err != nil {
		return "", err
	}

	u.User = nil
	u.Path = strings.TrimRight(u.Path, "/") + pushPath

	return u.String(), nil
}

// credentials returns the basic auth credentials and true if any are configured.
func (c Config) credentials() (string, string, bool) {
	if c.Username != "" || c.Password != "" {
		return c.Username, c.Password, true
	}

	u, err := c.parseEndpoint()
	if err != nil || u.User == nil {
		return "", "", false
	}

	password, _ := u.User.Password()

	return u.User.Username(), password, true
}

func (c Config) parseEndpoint() (*url.URL, error) {
	if c.Endpoint == "" {
		return nil, errors.New("loki endpoint required")
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "parse loki endpoint")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("loki endpoint scheme must be http or https", z.Str("scheme", u.Scheme))
	}
	if u.Host == "" {
		return nil, errors.New("loki endpoint host required")
	}

	return u, nil
}

func (c Config) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}

	return c.UserAgent
}
