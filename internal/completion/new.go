package completion

import (
	"time"

	"github.com/nguyentantai21042004/article-flow/internal/logger"
)

type implInvoker struct {
	client  Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

// New creates an Invoker calling model on client. A positive timeout bounds
// every call; hitting it yields a *TransientError.
func New(client Client, model string, timeout time.Duration, log logger.Logger) Invoker {
	return &implInvoker{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  log,
	}
}
