package clearml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gidra39/clearml-results/config"
	"github.com/gidra39/clearml-results/types"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	EndpointLogin              = "auth.login"
	EndpointLatestScalarValues = "events.get_task_latest_scalar_values"
	EndpointTaskPlots          = "events.get_task_plots"

	tracerName = "github.com/gidra39/clearml-results/clearml"
)

// Client talks to the REST API of a ClearML server.
type Client struct {
	host       string
	accessKey  string
	secretKey  string
	httpClient *http.Client
	tracer     trace.Tracer
	debug      bool
	token      string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// WithDebug makes the client log every endpoint, response status and body.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		host:       cfg.ClearMLAPIHost,
		accessKey:  cfg.ClearMLAccessKey,
		secretKey:  cfg.ClearMLSecretKey,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout()},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges the access key pair for a session token that is sent as a
// bearer token on every following request.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, EndpointLogin)
	defer span.End()

	data, err := post[types.LoginResponse](ctx, c, EndpointLogin, struct{}{})
	if err != nil {
		return recordError(span, err)
	}
	if data.Token == "" {
		return recordError(span, &ServiceError{Endpoint: EndpointLogin, Message: "login response carries no token"})
	}

	c.token = data.Token
	log.Debug().Str("host", c.host).Msg("logged in to clearml server")
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	if c.token != "" || c.accessKey == "" || c.secretKey == "" {
		return nil
	}
	return c.Login(ctx)
}

// GetTaskLatestScalarValues returns the task identity and the last value of
// every scalar variant the task reported.
func (c *Client) GetTaskLatestScalarValues(ctx context.Context, taskID string) (*types.TaskSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, EndpointLatestScalarValues, trace.WithAttributes(attribute.String("clearml.task_id", taskID)))
	defer span.End()

	if err := c.ensureSession(ctx); err != nil {
		return nil, recordError(span, err)
	}

	snapshot, err := post[types.TaskSnapshot](ctx, c, EndpointLatestScalarValues, types.TaskRequest{Task: taskID})
	if err != nil {
		return nil, recordError(span, err)
	}

	span.SetAttributes(attribute.Int("clearml.metrics", len(snapshot.Metrics)))
	return snapshot, nil
}

// GetTaskPlots returns the plot events of the task.
func (c *Client) GetTaskPlots(ctx context.Context, taskID string) (*types.PlotSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, EndpointTaskPlots, trace.WithAttributes(attribute.String("clearml.task_id", taskID)))
	defer span.End()

	if err := c.ensureSession(ctx); err != nil {
		return nil, recordError(span, err)
	}

	snapshot, err := post[types.PlotSnapshot](ctx, c, EndpointTaskPlots, types.TaskRequest{Task: taskID})
	if err != nil {
		return nil, recordError(span, err)
	}

	span.SetAttributes(attribute.Int("clearml.plots", len(snapshot.Plots)))
	return snapshot, nil
}

func post[T any](ctx context.Context, c *Client, endpointName string, request any) (*T, error) {
	endpoint := fmt.Sprintf("%s/%s", c.host, endpointName)

	if c.debug {
		log.Debug().Str("endpoint", endpoint).Msg("calling clearml api")
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpointName, Message: "failed to marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &ServiceError{Endpoint: endpointName, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if endpointName == EndpointLogin {
		req.SetBasicAuth(c.accessKey, c.secretKey)
	} else if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpointName, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Endpoint: endpointName, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	if c.debug {
		log.Debug().Str("endpoint", endpoint).Str("status", resp.Status).Str("body", string(body)).Msg("clearml api response")
	}

	var envelope types.Envelope[T]
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		serviceErr := &ServiceError{Endpoint: endpointName, StatusCode: resp.StatusCode, Message: string(body)}
		if decodeErr == nil && envelope.Meta.ResultMsg != "" {
			serviceErr.ResultCode = envelope.Meta.ResultCode
			serviceErr.ResultSubcode = envelope.Meta.ResultSubcode
			serviceErr.Message = envelope.Meta.ResultMsg
		}
		return nil, serviceErr
	}

	if decodeErr != nil {
		return nil, &ServiceError{Endpoint: endpointName, StatusCode: resp.StatusCode, Message: "failed to parse response", Err: decodeErr}
	}

	if envelope.Meta.ResultCode != 0 && envelope.Meta.ResultCode != http.StatusOK {
		return nil, &ServiceError{
			Endpoint:      endpointName,
			StatusCode:    resp.StatusCode,
			ResultCode:    envelope.Meta.ResultCode,
			ResultSubcode: envelope.Meta.ResultSubcode,
			Message:       envelope.Meta.ResultMsg,
		}
	}

	return &envelope.Data, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
