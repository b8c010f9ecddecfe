// Package query implements the conversation-context query workflow: load
// transcripts, assemble the request text, and submit it to hosted models.
package query

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/probeops/leakprobe/internal/conversation"
	"github.com/probeops/leakprobe/internal/together"
	"github.com/probeops/leakprobe/internal/types"
)

var queryTracer = otel.Tracer("leakprobe/query")

// ChatClient is the inference surface the runner depends on
type ChatClient interface {
	ChatCompletion(ctx context.Context, req together.ChatRequest) (string, error)
}

// Runner executes context queries against hosted models
type Runner struct {
	cfg    *types.Config
	client ChatClient
	logger *log.Logger

	queryCounter metric.Int64Counter
	queryLatency metric.Float64Histogram
}

// NewRunner creates a query runner using the supplied chat client
func NewRunner(cfg *types.Config, client ChatClient) *Runner {
	meter := otel.Meter("leakprobe/query")

	counter, err := meter.Int64Counter("leakprobe.queries",
		metric.WithDescription("Number of model queries issued"))
	if err != nil {
		log.Printf("query: failed to create query counter: %v", err)
	}
	latency, err := meter.Float64Histogram("leakprobe.query.duration",
		metric.WithDescription("Model query duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		log.Printf("query: failed to create latency histogram: %v", err)
	}

	return &Runner{
		cfg:          cfg,
		client:       client,
		logger:       log.Default(),
		queryCounter: counter,
		queryLatency: latency,
	}
}

// QueryModelWithContext loads every conversation file in order, combines the
// contents with the prompt, and returns the model's generated text unmodified.
// An unreadable file aborts the whole query.
func (r *Runner) QueryModelWithContext(ctx context.Context, model, prompt string, conversationFiles []string) (string, error) {
	if model == "" {
		return "", &types.ProbeError{
			Type:    types.ErrorTypeValidation,
			Message: "model identifier cannot be empty",
		}
	}

	files, err := conversation.LoadFiles(conversationFiles)
	if err != nil {
		return "", err
	}

	requestText := conversation.BuildRequestText(prompt, files)
	return r.queryModel(ctx, model, requestText)
}

// QueryModels fans the same request text out to several models concurrently.
// Context files are loaded once up front; a per-model failure is captured in
// its result slot and does not cancel sibling queries.
func (r *Runner) QueryModels(ctx context.Context, models []string, prompt string, conversationFiles []string) ([]types.QueryResult, error) {
	files, err := conversation.LoadFiles(conversationFiles)
	if err != nil {
		return nil, err
	}
	requestText := conversation.BuildRequestText(prompt, files)

	results := make([]types.QueryResult, len(models))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency())

	for i, model := range models {
		group.Go(func() error {
			start := time.Now()
			response, err := r.queryModel(ctx, model, requestText)
			result := types.QueryResult{
				Model:    model,
				Duration: time.Since(start),
			}
			if err != nil {
				result.Error = err.Error()
				result.ErrorType = types.ErrorTypeOf(err)
			} else {
				result.Response = response
			}
			results[i] = result
			return nil
		})
	}

	// Workers never return errors; failures live in the result slots
	_ = group.Wait()

	return results, nil
}

func (r *Runner) queryModel(ctx context.Context, model, requestText string) (string, error) {
	ctx, span := queryTracer.Start(ctx, "query.chat_completion")
	defer span.End()

	span.SetAttributes(
		attribute.String("query.model", model),
		attribute.Int("query.request_chars", len(requestText)),
	)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout())
	defer cancel()

	start := time.Now()
	r.logger.Printf("Querying model %s (request: %d chars)", model, len(requestText))

	response, err := r.client.ChatCompletion(ctx, together.ChatRequest{
		Model:       model,
		Messages:    []together.ChatMessage{{Role: "user", Content: requestText}},
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})

	elapsed := time.Since(start)
	status := "ok"
	if err != nil {
		status = string(types.ErrorTypeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}

	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	)
	if r.queryCounter != nil {
		r.queryCounter.Add(ctx, 1, attrs)
	}
	if r.queryLatency != nil {
		r.queryLatency.Record(ctx, elapsed.Seconds(), attrs)
	}

	if err != nil {
		return "", err
	}

	r.logger.Printf("Model %s responded in %v (%d chars)", model, elapsed, len(response))
	return response, nil
}

func (r *Runner) concurrency() int {
	if r.cfg.Concurrency < 1 {
		return 1
	}
	return r.cfg.Concurrency
}
