package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ElementGrid/internal/core"
)

const testBaseURL = "https://backend.test"

// newMockedClient returns a Client whose transport is intercepted by httpmock.
func newMockedClient(t *testing.T, apiKey string) *Client {
	t.Helper()
	c := New(Config{BaseURL: testBaseURL + "/", APIKey: apiKey})
	httpmock.ActivateNonDefault(c.http)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestClient_Pull(t *testing.T) {
	c := newMockedClient(t, "secret")

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+DataPath,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Structural", req.URL.Query().Get("discipline"))
			assert.Equal(t, "secret", req.Header.Get("X-API-Key"))
			return httpmock.NewStringResponse(http.StatusOK,
				`{"data":[{"dbId":1,"Discipline":"Structural","Code":"S1","Volume":2.5,"Area":null},`+
					`{"dbId":2,"Discipline":"Structural","Length":"3"}]}`), nil
		})

	records, err := c.Pull(context.Background(), "Structural")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(1), records[0].DbID)
	assert.Equal(t, "S1", records[0].Code)
	assert.Equal(t, "2.5", records[0].Volume)
	assert.Empty(t, records[0].Area)
	assert.Equal(t, "3", records[1].Length)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestClient_PullAllOmitsQuery(t *testing.T) {
	c := newMockedClient(t, "")

	httpmock.RegisterResponder(http.MethodGet, testBaseURL+DataPath,
		func(req *http.Request) (*http.Response, error) {
			assert.Empty(t, req.URL.RawQuery)
			assert.Empty(t, req.Header.Get("X-API-Key"))
			return httpmock.NewStringResponse(http.StatusOK, `{"data":[]}`), nil
		})

	records, err := c.Pull(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_PullHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"bad_request", http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized},
		{"internal_server_error", http.StatusInternalServerError},
		{"service_unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMockedClient(t, "")
			httpmock.RegisterResponder(http.MethodGet, testBaseURL+DataPath,
				httpmock.NewStringResponder(tt.statusCode, `{"error":"nope"}`))

			records, err := c.Pull(context.Background(), "")
			require.Error(t, err)
			assert.Nil(t, records)
			assert.Contains(t, err.Error(), "unexpected status")
			assert.Equal(t, "NET003", core.MapError(err).Code)
		})
	}
}

func TestClient_PullTransportError(t *testing.T) {
	c := newMockedClient(t, "")
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+DataPath,
		httpmock.NewErrorResponder(errors.New("dial tcp: connection refused")))

	_, err := c.Pull(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, "NET001", core.MapError(err).Code)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "failures are not retried")
}

func TestClient_PullMalformedBody(t *testing.T) {
	c := newMockedClient(t, "")
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+DataPath,
		httpmock.NewStringResponder(http.StatusOK, `{"data":[{"dbId":1,"Volume":{}}]}`))

	_, err := c.Pull(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_Push(t *testing.T) {
	c := newMockedClient(t, "")

	var got []map[string]any
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+DataPath,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &got))
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})

	err := c.Push(context.Background(), []core.ElementRecord{
		{DbID: 9, Discipline: "MEP", Volume: "1.5", Area: "not specified", Width: "abc", RowNumber: 3},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.EqualValues(t, 9, got[0]["dbId"])
	assert.EqualValues(t, 1.5, got[0]["Volume"])
	assert.Nil(t, got[0]["Area"])
	assert.Nil(t, got[0]["Width"])
	assert.Contains(t, got[0], "Area", "null numbers are sent explicitly")
}

func TestClient_PushHTTPError(t *testing.T) {
	c := newMockedClient(t, "")
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+DataPath,
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	err := c.Push(context.Background(), []core.ElementRecord{{DbID: 1}})
	require.Error(t, err)
	assert.Equal(t, "unexpected status 502", err.Error())
}

func TestClient_Delete(t *testing.T) {
	c := newMockedClient(t, "")

	var got DeleteRequest
	httpmock.RegisterResponder(http.MethodDelete, testBaseURL+DataPath,
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			return httpmock.NewJsonResponse(http.StatusOK, DeleteResponse{Deleted: 2})
		})

	n, err := c.Delete(context.Background(), []int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []int64{4, 5}, got.IDs)

	n, err = c.Delete(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "empty delete sends nothing")
}

func TestClient_ImplementsDeleter(t *testing.T) {
	var _ core.Deleter = New(Config{BaseURL: testBaseURL})
}
