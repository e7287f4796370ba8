package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaiaflow/gaiaflow/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check gaiaflow configuration and connectivity",
	Long: `Checks that gaiaflow is ready to run: .env presence, API keys for the
configured provider, and store reachability. Exits non-zero when a
problem is found.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gaiaflow doctor")
		fmt.Println()

		d := &doctor{}

		envFile, _ := cmd.Flags().GetString("env-file")
		path := envFile
		if path == "" {
			path = ".env"
		}
		if _, err := os.Stat(path); err == nil {
			d.ok("%s found", path)
		} else if envFile != "" {
			d.fail("%s not found", envFile)
		} else {
			d.warn(".env not found (using process environment)")
		}

		cfg, err := parseConfig(cmd)
		if err != nil {
			d.fail("config: %v", err)
			d.done()
			return
		}

		if err := cfg.Validate(); err != nil {
			d.fail("config: %v", err)
		} else {
			d.ok("config valid (provider %s, store %s)", cfg.Provider, cfg.Store.Backend)
		}

		keyName := providerKeyName(cfg.Provider)
		if key := cfg.APIKey(); key != "" {
			d.ok("%s set (%s)", keyName, maskKey(key))
		} else {
			d.fail("%s missing: set it in your environment or .env file", keyName)
		}

		if cfg.TavilyKey != "" {
			d.ok("TAVILY_API_KEY set (%s)", maskKey(cfg.TavilyKey))
		} else {
			d.warn("TAVILY_API_KEY not set (web_search falls back to DuckDuckGo)")
		}

		d.checkStore(cfg)

		d.done()
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctor struct {
	failures int
}

func (d *doctor) ok(format string, a ...any) {
	fmt.Printf("  ok    "+format+"\n", a...)
}

func (d *doctor) warn(format string, a ...any) {
	fmt.Printf("  warn  "+format+"\n", a...)
}

func (d *doctor) fail(format string, a ...any) {
	d.failures++
	fmt.Printf("  fail  "+format+"\n", a...)
}

// checkStore builds the configured store and round-trips a read to prove
// the backend is reachable.
func (d *doctor) checkStore(cfg *config.Config) {
	st, closeStore, err := buildStore(cfg)
	if err != nil {
		d.fail("store %s: %v", cfg.Store.Backend, err)
		return
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := st.ListRuns(ctx); err != nil {
		d.fail("store %s unreachable: %v", cfg.Store.Backend, err)
		return
	}
	d.ok("store %s reachable", cfg.Store.Backend)
}

func (d *doctor) done() {
	fmt.Println()
	if d.failures == 0 {
		fmt.Println("No problems found.")
		return
	}
	fmt.Printf("%d problem(s) found.\n", d.failures)
	os.Exit(1)
}

func providerKeyName(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// maskKey shows just enough of a secret to recognize it.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
