package teams_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evoliveira/qasops/internal/adapter/driven/teams"
	"github.com/evoliveira/qasops/internal/domain/model"
)

type capturedCard struct {
	Type       string `json:"@type"`
	Context    string `json:"@context"`
	Summary    string `json:"summary"`
	ThemeColor string `json:"themeColor"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

func TestNotify_PostsMessageCard(t *testing.T) {
	var got capturedCard
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := teams.NewSinkWithHTTPClient(srv.URL, srv.Client())

	err := sink.Notify(context.Background(), model.BuildMessage{
		Title:      "[QAS] Pipeline finished - billing-api ✅",
		ThemeColor: model.ColorGreen,
		Lines: []string{
			"Repository: **billing-api**",
			"",
			"Result: **succeeded** ✅",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "MessageCard", got.Type)
	assert.Equal(t, "http://schema.org/extensions", got.Context)
	assert.Equal(t, "[QAS] Pipeline finished - billing-api ✅", got.Title)
	assert.Equal(t, got.Title, got.Summary)
	assert.Equal(t, model.ColorGreen, got.ThemeColor)

	// Empty lines are dropped before joining.
	assert.Equal(t, "Repository: **billing-api**\nResult: **succeeded** ✅", got.Text)
}

func TestNotify_DefaultsThemeColor(t *testing.T) {
	var got capturedCard

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := teams.NewSinkWithHTTPClient(srv.URL, srv.Client())

	// 202 is still success, and a missing color falls back to neutral blue.
	err := sink.Notify(context.Background(), model.BuildMessage{Title: "hello"})
	require.NoError(t, err)
	assert.Equal(t, model.ColorBlue, got.ThemeColor)
}

func TestNotify_NonSuccessReturnsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	sink := teams.NewSinkWithHTTPClient(srv.URL, srv.Client())

	err := sink.Notify(context.Background(), model.BuildMessage{Title: "hello"})
	require.Error(t, err)

	var derr *model.DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusTooManyRequests, derr.StatusCode)
	assert.Equal(t, "rate limited", derr.Body)
}

func TestNotify_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	sink := teams.NewSink(srv.URL)

	err := sink.Notify(context.Background(), model.BuildMessage{Title: "hello"})
	require.Error(t, err)

	// Transport failures are plain errors, not delivery errors.
	var derr *model.DeliveryError
	assert.False(t, errors.As(err, &derr))
}
