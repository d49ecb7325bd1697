package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lecturmate/config"
	"lecturmate/internal/adapter/cache"
	"lecturmate/internal/adapter/embedding"
	"lecturmate/internal/adapter/generation"
	"lecturmate/internal/adapter/retriever"
	"lecturmate/internal/adapter/store"
	"lecturmate/internal/port"
	"lecturmate/internal/usecase"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lecturmate",
	Short: "LecturMate - Chat with your lecture notes, PDFs and video transcripts",
	Long: `LecturMate ingests lecture material (text files, PDFs, YouTube transcripts),
chunks and embeds it locally, and answers questions grounded only in that
material using a local or hosted language model.

Example usage:
  lecturmate add notes/*.txt slides.pdf        # Add material
  lecturmate add --youtube 'https://youtu.be/…' # Add a video transcript
  lecturmate ask -q "When was X introduced?"   # One-shot question
  lecturmate chat                              # Interactive session`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		// API keys live in .env during development; a missing file is fine.
		_ = godotenv.Load()

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./lecturmate.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

// newSession wires a full pipeline from the loaded config: embedding client,
// cached cosine retriever, generator and (optionally) the persisted session
// store. The returned closer releases the store.
func newSession() (*usecase.Session, func(), error) {
	emb, err := embedding.NewFromConfig(cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up embeddings: %w", err)
	}

	gen, err := generation.NewFromConfig(cfg.Generation)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up generation: %w", err)
	}

	qc := cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTLMinutes)*time.Minute)
	rtr := cache.NewCachedRetriever(retriever.NewCosine(emb), qc)

	var st port.SessionStore
	closer := func() {}
	if cfg.Session.Persist {
		path := cfg.Session.Path
		if path == "" {
			path = config.SessionDBPath(rootDir)
		}
		bolt, err := store.NewBoltStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session store: %w", err)
		}
		st = bolt
		closer = func() { bolt.Close() }
	}

	session := usecase.NewSession(cfg, emb, rtr, gen, st, logger)
	if err := session.Restore(); err != nil {
		closer()
		return nil, nil, err
	}

	return session, closer, nil
}
