package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/provtag/pkg/engine/report"
)

func TestSendRunSummary(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sum := &report.Summary{RunID: "run-1", Listed: 3, Resolved: 1, FailedWrite: 1}
	client := NewSlackClient(srv.URL, "#cloud-ops")
	require.NoError(t, client.SendRunSummary(context.Background(), sum))

	assert.Equal(t, "#cloud-ops", got["channel"])
	blocks, ok := got["blocks"].([]interface{})
	require.True(t, ok)
	assert.Len(t, blocks, 5, "failure section is added")

	raw, _ := json.Marshal(got)
	assert.True(t, strings.Contains(string(raw), "run-1"))
}

func TestSendRunSummary_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackClient(srv.URL, "").SendRunSummary(context.Background(), &report.Summary{})
	assert.Error(t, err)
}

func TestSendRunSummary_NoWebhook(t *testing.T) {
	assert.NoError(t, NewSlackClient("", "").SendRunSummary(context.Background(), &report.Summary{}))
}
