package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	ok := PingerFunc(func(context.Context) error { return nil })
	down := PingerFunc(func(context.Context) error { return errors.New("refused") })

	handler := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{"postgres": ok})
	c, rec := newTrainingRequestContext(http.MethodGet, "/ready", "", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	handler = NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{"postgres": ok, "redis": down})
	c, rec = newTrainingRequestContext(http.MethodGet, "/ready", "", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"unavailable"`)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordTransition("standard", "under_review", "cc_approved", "advance")
	handler := NewMetricsHandler(metrics, nil)

	c, rec := newTrainingRequestContext(http.MethodGet, "/metrics", "", nil)
	handler.Prometheus(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "workflow_transitions_total"))
}

func TestMetricsHandlerSummary(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordConflict()
	handler := NewMetricsHandler(metrics, nil)

	c, rec := newTrainingRequestContext(http.MethodGet, "/metrics/summary", "", nil)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "workflow_conflicts")
}
