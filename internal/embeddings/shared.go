package embeddings

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Options selects and configures an embedder backend.
type Options struct {
	Backend   string
	Dimension int
	MaxTokens int
	CLIP      CLIPConfig
}

// New builds the embedder named by opts.Backend.
func New(opts Options, logger *zap.Logger) (Embedder, error) {
	switch opts.Backend {
	case "hash", "":
		return NewHashEmbedder(opts.Dimension, opts.MaxTokens), nil
	case "clip":
		cfg := opts.CLIP
		if cfg.Dimension == 0 {
			cfg.Dimension = opts.Dimension
		}
		if cfg.MaxTokens == 0 {
			cfg.MaxTokens = opts.MaxTokens
		}
		return NewCLIPEmbedder(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown embeddings backend: %s", opts.Backend)
	}
}

var (
	sharedOnce sync.Once
	shared     Embedder
	sharedErr  error
)

// Shared returns the process-wide embedder, constructing it on the first
// call. Later calls ignore their arguments. The returned embedder holds no
// per-request state and may be used from any goroutine.
func Shared(opts Options, logger *zap.Logger) (Embedder, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = New(opts, logger)
		if sharedErr == nil && logger != nil {
			logger.Info("embedder initialised",
				zap.String("backend", shared.Name()),
				zap.Int("dimension", shared.Dimension()))
		}
	})
	return shared, sharedErr
}
