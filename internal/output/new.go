package output

import (
	"time"

	"github.com/nguyentantai21042004/article-flow/internal/logger"
)

type implWriter struct {
	outputDir   string
	archivedDir string
	now         func() time.Time
	logger      logger.Logger
}

// New creates a Writer rooted at outputDir, archiving sources to archivedDir.
func New(outputDir, archivedDir string, log logger.Logger) Writer {
	return &implWriter{
		outputDir:   outputDir,
		archivedDir: archivedDir,
		now:         time.Now,
		logger:      log,
	}
}
