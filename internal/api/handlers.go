// Package api provides the HTTP API handlers and route table of the echo service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-echo-server/internal/router"
	"github.com/sirosfoundation/go-echo-server/pkg/config"
	"github.com/sirosfoundation/go-echo-server/pkg/envelope"
)

var (
	// ErrInvalidPayload is returned when a mutation body is not a valid envelope.Input
	ErrInvalidPayload = errors.New("invalid input payload")
	// ErrPayloadTooLarge is returned when a body exceeds the configured limit
	ErrPayloadTooLarge = errors.New("request body too large")
)

// StatusDescription is the description returned by the health route
const StatusDescription = "Everything is OK!"

// Handlers aggregates all route handlers
type Handlers struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		logger: logger.Named("handlers"),
	}
}

// Status handles GET /status
func (h *Handlers) Status(_ *router.Request) router.Response {
	return router.Response{Status: http.StatusOK, Body: envelope.Success(StatusDescription)}
}

// GetData handles GET /data/v1/{name}
func (h *Handlers) GetData(req *router.Request) router.Response {
	name := req.Param("name")
	return router.Response{
		Status: http.StatusOK,
		Body:   envelope.Success("You requested get method with name: " + name),
	}
}

// Mutation returns the handler for a body-carrying route. verb is the word
// echoed in the description ("post", "put" or "delete").
func (h *Handlers) Mutation(verb string) router.HandlerFunc {
	return func(req *router.Request) router.Response {
		name := req.Param("name")

		payload, err := h.readPayload(req.Body)
		if err != nil {
			h.logger.Debug("Rejected request payload",
				zap.String("method", req.Method),
				zap.String("name", name),
				zap.Error(err))

			if errors.Is(err, ErrPayloadTooLarge) {
				return router.Response{
					Status: http.StatusRequestEntityTooLarge,
					Body:   envelope.Failure(envelope.CodePayloadTooLarge, err.Error()),
				}
			}
			return router.Response{
				Status: http.StatusBadRequest,
				Body:   envelope.Failure(envelope.CodeInvalidPayload, err.Error()),
			}
		}

		return router.Response{
			Status: http.StatusOK,
			Body: envelope.Success(fmt.Sprintf("You requested %s method with name: %s, data is %s",
				verb, name, payload.Data)),
		}
	}
}

// readPayload reads the whole body and decodes it as an envelope.Input.
// The object must carry a string "data" key spelled exactly that way.
func (h *Handlers) readPayload(body io.Reader) (*envelope.Input, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}

	limit := h.cfg.Limits.MaxBodyBytes
	if limit > 0 {
		body = io.LimitReader(body, limit+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, limit)
	}

	// encoding/json matches struct fields case-insensitively, so the key is
	// looked up in a map instead
	var fields map[string]json.RawMessage
	if err := binding.JSON.BindBody(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	raw, ok := fields["data"]
	if !ok || string(raw) == "null" {
		return nil, fmt.Errorf("%w: missing data field", ErrInvalidPayload)
	}

	var payload envelope.Input
	if err := json.Unmarshal(raw, &payload.Data); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrInvalidPayload, err)
	}

	return &payload, nil
}
