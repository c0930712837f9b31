package cli

import (
	"context"
	"fmt"

	"anoa.com/polychat/internal/ai"
	"anoa.com/polychat/internal/ai/providers"
	"anoa.com/polychat/internal/config"
	"anoa.com/polychat/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

type ProxyOptions struct {
	*RootOptions
	Port string
}

func NewProxyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProxyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the standalone AI proxy",
		Long: `Serve the single-endpoint AI proxy on its own port.

Clients POST {"action": ..., ...} to /. Without GEMINI_API_KEY every
request is answered with 500.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newProxyEngine(cmd.Context(), opts.Config)
			if err != nil {
				return err
			}
			log := logging.Component("cli")
			log.Info().Str("port", opts.Port).Msg("AI proxy listening")
			return engine.Run(":" + opts.Port)
		},
	}

	cmd.Flags().StringVar(&opts.Port, "port", "8081", "port to listen on")

	return cmd
}

func newProxyEngine(ctx context.Context, cfg *config.Config) (*gin.Engine, error) {
	var backend ai.Backend
	if cfg.GeminiAPIKey != "" {
		provider, err := providers.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTTSModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini provider: %w", err)
		}
		backend = ai.NewGateway(provider, cfg.AITimeout)
	} else {
		log := logging.Component("cli")
		log.Warn().Msg("GEMINI_API_KEY not set, proxy will reject requests")
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), gin.Logger())
	ai.NewHandler(backend).Register(engine, "/")
	return engine, nil
}
