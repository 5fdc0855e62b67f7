// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package lokimock_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nethergamesmc/lokilogger/testutil/lokimock"
)

const body = `{"streams":[{"stream":{"service":"test"},"values":[["1","a"],["2","b"]]}]}`

func post(t *testing.T, srv *lokimock.Server, contentType string, payload string, auth bool) int {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL()+"/loki/api/v1/push", strings.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	if auth {
		req.SetBasicAuth("user", "pass")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp.StatusCode
}

func TestServer(t *testing.T) {
	srv := lokimock.New(t, lokimock.WithStatuses(http.StatusTooManyRequests))

	require.Equal(t, http.StatusTooManyRequests, post(t, srv, "application/json", body, false))
	require.Equal(t, http.StatusNoContent, post(t, srv, "application/json", body, false))
	require.Equal(t, http.StatusUnsupportedMediaType, post(t, srv, "text/plain", body, false))
	require.Equal(t, http.StatusBadRequest, post(t, srv, "application/json", "{", false))

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	require.Equal(t, map[string]string{"service": "test"}, reqs[0].Body.Streams[0].Stream)
	require.Equal(t, []string{"a", "b", "a", "b"}, srv.Lines())
}

func TestServerBasicAuth(t *testing.T) {
	srv := lokimock.New(t, lokimock.WithBasicAuth("user", "pass"))

	require.Equal(t, http.StatusUnauthorized, post(t, srv, "application/json", body, false))
	require.Equal(t, http.StatusNoContent, post(t, srv, "application/json", body, true))
	require.Len(t, srv.Requests(), 1)
}
