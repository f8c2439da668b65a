package httpapi

import (
	"context"
	"net/http"
)

// Server is the operator-facing HTTP surface.
type Server interface {
	Handler() http.Handler
	Start() error
	Shutdown(ctx context.Context) error
}
