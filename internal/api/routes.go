package api

import (
	"net/http"

	"github.com/sirosfoundation/go-echo-server/internal/router"
)

// Routes returns the service's route table in matching order
func (h *Handlers) Routes() []router.Route {
	return []router.Route{
		{Method: http.MethodGet, Pattern: "/status", Handler: h.Status},
		{Method: http.MethodGet, Pattern: "/data/v1/{name}", Handler: h.GetData},
		{Method: http.MethodPost, Pattern: "/data/v1/{name}", Handler: h.Mutation("post")},
		{Method: http.MethodPut, Pattern: "/data/v1/{name}", Handler: h.Mutation("put")},
		{Method: http.MethodDelete, Pattern: "/data/v1/{name}", Handler: h.Mutation("delete")},
	}
}

// NewTable compiles the service's route table
func (h *Handlers) NewTable() (*router.Table, error) {
	return router.NewTable(h.Routes()...)
}
