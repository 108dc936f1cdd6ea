package clearml

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gidra39/clearml-results/config"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const scalarsReply = `{
	"meta": {"id": "1", "result_code": 200, "result_subcode": 0, "result_msg": "OK"},
	"data": {
		"name": "yolo-train",
		"status": "completed",
		"last_iter": 1200,
		"metrics": [
			{"name": "mAP", "variants": [{"name": "v1", "last_value": 0.5}]},
			{"name": "loss", "variants": [{"name": "train", "last_value": 0.12}, {"name": "val", "last_value": 0.2}]}
		]
	}
}`

const plotsReply = `{
	"meta": {"result_code": 200, "result_msg": "OK"},
	"data": {
		"plots": [
			{"metric": "PR", "variant": "plot", "iter": 3, "plot_str": "{'data': []}"}
		],
		"total": 1,
		"returned": 1
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg config.Config, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.ClearMLAPIHost = server.URL
	return New(cfg, opts...)
}

func TestGetTaskLatestScalarValues(t *testing.T) {
	var body string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/"+EndpointLatestScalarValues, r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = io.WriteString(w, scalarsReply)
	}, config.Config{})

	snapshot, err := client.GetTaskLatestScalarValues(context.Background(), "task-1")
	require.NoError(t, err)

	assert.JSONEq(t, `{"task": "task-1"}`, body)
	require.NotNil(t, snapshot.Name)
	assert.Equal(t, "yolo-train", *snapshot.Name)
	require.NotNil(t, snapshot.Status)
	assert.Equal(t, "completed", *snapshot.Status)
	require.NotNil(t, snapshot.LastIter)
	assert.Equal(t, int64(1200), *snapshot.LastIter)
	require.Len(t, snapshot.Metrics, 2)
	assert.Equal(t, "loss", snapshot.Metrics[1].Name)
	assert.Equal(t, 0.2, snapshot.Metrics[1].Variants[1].LastValue)
}

func TestGetTaskPlots(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+EndpointTaskPlots, r.URL.Path)
		_, _ = io.WriteString(w, plotsReply)
	}, config.Config{})

	snapshot, err := client.GetTaskPlots(context.Background(), "task-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Plots, 1)
	assert.Equal(t, "PR", snapshot.Plots[0].Metric)
	assert.Equal(t, "{'data': []}", snapshot.Plots[0].PlotStr)
}

func TestLoginOnceAndBearerToken(t *testing.T) {
	var logins atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + EndpointLogin:
			logins.Add(1)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "access", user)
			assert.Equal(t, "secret", pass)
			_, _ = io.WriteString(w, `{"meta": {"result_code": 200}, "data": {"token": "tok-123"}}`)
		case "/" + EndpointLatestScalarValues:
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, scalarsReply)
		case "/" + EndpointTaskPlots:
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, plotsReply)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, config.Config{ClearMLAccessKey: "access", ClearMLSecretKey: "secret"})

	_, err := client.GetTaskLatestScalarValues(context.Background(), "task-1")
	require.NoError(t, err)
	_, err = client.GetTaskPlots(context.Background(), "task-1")
	require.NoError(t, err)

	assert.Equal(t, int32(1), logins.Load())
}

func TestLoginFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"meta": {"result_code": 401, "result_subcode": 20, "result_msg": "Unauthorized (invalid credentials)"}, "data": {}}`)
	}, config.Config{ClearMLAccessKey: "access", ClearMLSecretKey: "wrong"})

	_, err := client.GetTaskLatestScalarValues(context.Background(), "task-1")
	require.Error(t, err)

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, EndpointLogin, serviceErr.Endpoint)
	assert.Equal(t, http.StatusUnauthorized, serviceErr.StatusCode)
	assert.Equal(t, 20, serviceErr.ResultSubcode)
	assert.Equal(t, "Unauthorized (invalid credentials)", serviceErr.Message)
}

func TestUnknownTask(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"meta": {"result_code": 400, "result_subcode": 101, "result_msg": "Invalid task id"}, "data": {}}`)
	}, config.Config{})

	_, err := client.GetTaskPlots(context.Background(), "missing")

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, http.StatusBadRequest, serviceErr.StatusCode)
	assert.Equal(t, 400, serviceErr.ResultCode)
	assert.Equal(t, 101, serviceErr.ResultSubcode)
	assert.Contains(t, serviceErr.Error(), "Invalid task id")
}

func TestResultCodeErrorWithHTTPOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"meta": {"result_code": 500, "result_msg": "General data error"}, "data": null}`)
	}, config.Config{})

	_, err := client.GetTaskLatestScalarValues(context.Background(), "task-1")

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, http.StatusOK, serviceErr.StatusCode)
	assert.Equal(t, 500, serviceErr.ResultCode)
}

func TestUndecodableBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>proxy error</html>`)
	}, config.Config{})

	_, err := client.GetTaskLatestScalarValues(context.Background(), "task-1")

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "failed to parse response", serviceErr.Message)
	assert.Error(t, serviceErr.Unwrap())
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL
	server.Close()

	client := New(config.Config{ClearMLAPIHost: host})
	_, err := client.GetTaskLatestScalarValues(context.Background(), "task-1")

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Zero(t, serviceErr.StatusCode)
	assert.Error(t, serviceErr.Err)
}

func TestSpansRecorded(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/"+EndpointTaskPlots {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"meta": {"result_code": 400, "result_msg": "Invalid task id"}}`)
			return
		}
		_, _ = io.WriteString(w, scalarsReply)
	}, config.Config{}, WithTracerProvider(tp), WithDebug(true))

	_, err := client.GetTaskLatestScalarValues(context.Background(), "task-1")
	require.NoError(t, err)
	_, err = client.GetTaskPlots(context.Background(), "task-1")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, EndpointLatestScalarValues, spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, EndpointTaskPlots, spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
