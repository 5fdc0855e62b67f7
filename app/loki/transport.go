// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/z"
)

const (
	// maxErrMsgLen bounds the response body included in push errors.
	maxErrMsgLen = 1024
	// maxDrainLen bounds the response body read before closing, larger bodies close the connection.
	maxDrainLen = 64 * 1024
)

// Transport performs a single HTTP POST and returns the response status code.
// A zero status with a non-nil error indicates a transport level failure (connection
// refused, timeout, DNS). A non-zero status may be accompanied by an error describing
// the response.
type Transport interface {
	Post(ctx context.Context, url string, header http.Header, body []byte) (int, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, url string, header http.Header, body []byte) (int, error)

func (f TransportFunc) Post(ctx context.Context, url string, header http.Header, body []byte) (int, error) {
	return f(ctx, url, header, body)
}

// newHTTPTransport returns the default net/http based transport with a per request timeout.
func newHTTPTransport(timeout time.Duration) httpTransport {
	return httpTransport{
		client:  new(http.Client),
		timeout: timeout,
	}
}

type httpTransport struct {
	client  *http.Client
	timeout time.Duration
}

func (t httpTransport) Post(ctx context.Context, url string, header http.Header, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "new loki request")
	}
	req.Header = header.Clone()
	req.ContentLength = int64(len(body))

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "http do")
	}
	defer func() {
		// Drain the body so the keep-alive connection is reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainLen))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	// Include the first line of the response in the error, Loki explains rejections there.
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxErrMsgLen))
	var line string
	if scanner.Scan() {
		line = scanner.Text()
	}

	return resp.StatusCode, errors.New("http nok response",
		z.Int("status_code", resp.StatusCode),
		z.Str("line", line),
	)
}
