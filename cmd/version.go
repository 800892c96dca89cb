package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brokerlane/proposal-engine/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("proposal-engine %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		// Still useful without a valid config, e.g. before the API key is set.
		fmt.Printf("Configuration: unavailable (%v)\n", err)
		return nil
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Printf("  Temperature: %.2f\n", cfg.Temperature)
	fmt.Printf("  Max tokens: %d\n", cfg.MaxTokens)
	fmt.Printf("  Database: %s:%d/%s\n", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)

	printAPIKeyStatus(cfg.Provider)
	return nil
}

// printAPIKeyStatus reports whether the provider's API key is set without
// exposing its full value.
func printAPIKeyStatus(provider string) {
	var envName string
	switch provider {
	case config.ProviderGemini:
		envName = "GEMINI_API_KEY"
	case config.ProviderOpenAI:
		envName = "OPENAI_API_KEY"
	default:
		return
	}

	key := os.Getenv(envName)
	if key == "" {
		fmt.Printf("  %s: Not set\n", envName)
		fmt.Println()
		fmt.Printf("Hint: export %s=your-api-key\n", envName)
		return
	}
	if len(key) > 8 {
		fmt.Printf("  %s: %s...%s (configured)\n", envName, key[:4], key[len(key)-4:])
	} else {
		fmt.Printf("  %s: configured\n", envName)
	}
}
