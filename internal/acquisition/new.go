package acquisition

import (
	"github.com/nguyentantai21042004/article-flow/internal/config"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
	"github.com/nguyentantai21042004/article-flow/pkg/executor"
)

type implAcquirer struct {
	cfg      config.DownloaderConfig
	executor executor.Executor
	logger   logger.Logger
}

// New creates an Acquirer. The executor runs yt-dlp for URL requests.
func New(cfg config.DownloaderConfig, exec executor.Executor, log logger.Logger) Acquirer {
	return &implAcquirer{
		cfg:      cfg,
		executor: exec,
		logger:   log,
	}
}
