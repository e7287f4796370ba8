package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gaiaflow/gaiaflow/agent"
	"github.com/gaiaflow/gaiaflow/agent/tools"
	"github.com/gaiaflow/gaiaflow/flow/emit"
	"github.com/gaiaflow/gaiaflow/flow/model"
	"github.com/gaiaflow/gaiaflow/flow/model/anthropic"
	"github.com/gaiaflow/gaiaflow/flow/model/google"
	"github.com/gaiaflow/gaiaflow/flow/model/openai"
	"github.com/gaiaflow/gaiaflow/flow/store"
	"github.com/gaiaflow/gaiaflow/internal/config"
	"github.com/gaiaflow/gaiaflow/internal/logging"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the research agent a question",
	Long: `Runs the research agent against the configured LLM provider and prints
the final answer on stdout. The agent plans, executes plan steps with web
tools, verifies its progress, and synthesizes an answer.

Every step is persisted to the configured store, so a run given an explicit
--run-id can be continued later with --resume after an interruption.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := parseConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if s, _ := cmd.Flags().GetString("store"); s != "" {
			cfg.Store.Backend = s
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid config: %v\n", err)
			os.Exit(1)
		}

		logger := logging.New(cfg.LogFormat, cfg.LogLevel)

		react, _ := cmd.Flags().GetBool("react")
		runID, _ := cmd.Flags().GetString("run-id")
		resume, _ := cmd.Flags().GetBool("resume")
		showCost, _ := cmd.Flags().GetBool("show-cost")

		question := strings.TrimSpace(strings.Join(args, " "))
		if resume && runID == "" {
			fmt.Fprintln(os.Stderr, "Error: --resume requires --run-id")
			os.Exit(1)
		}
		if !resume && question == "" {
			fmt.Fprintln(os.Stderr, "Error: a question is required (or pass --resume with --run-id)")
			os.Exit(1)
		}

		llm, closeLLM, err := buildModel(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeLLM()

		st, closeStore, err := buildStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeStore()

		reg, err := tools.Default(nil, cfg.TavilyKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		opts := []agent.RunnerOption{
			agent.WithTools(reg),
			agent.WithMaxSteps(cfg.MaxSteps),
		}
		if react {
			opts = append(opts, agent.WithReAct())
		}
		if cfg.LogLevel == "debug" {
			// Stream engine events alongside the answer.
			opts = append(opts, agent.WithEmitter(emit.NewLogEmitter(os.Stderr, cfg.LogFormat == "json")))
		}

		runner, err := agent.NewRunner(llm, st, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting run",
			"provider", cfg.Provider,
			"model", llm.Name(),
			"store", cfg.Store.Backend,
			"react", react)

		var ans agent.Answer
		switch {
		case resume:
			ans, err = runner.Resume(ctx, runID)
		case runID != "":
			ans, err = runner.Run(ctx, runID, question)
		default:
			ans, err = runner.Ask(ctx, question)
		}
		if err != nil {
			logger.Error("run failed", "error", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if runID != "" && !resume {
				fmt.Fprintf(os.Stderr, "Resume with: gaiaflow ask --resume --run-id %s\n", runID)
			}
			os.Exit(1)
		}

		if ans.Err != "" {
			logger.Warn("run finished with a caveat", "detail", ans.Err)
		}
		logger.Info("run finished", "run_id", ans.RunID, "steps", ans.Steps)

		fmt.Println(ans.Text)

		if showCost {
			printCost(runner, ans)
		}
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Bool("react", false, "use the single-node ReAct loop instead of the research graph")
	askCmd.Flags().String("run-id", "", "run under this ID so the run can be resumed later")
	askCmd.Flags().Bool("resume", false, "continue the run named by --run-id from its last persisted step")
	askCmd.Flags().String("store", "", "store backend: memory, sqlite, redis, or mysql (overrides GAIAFLOW_STORE)")
	askCmd.Flags().Bool("show-cost", false, "print token usage and estimated spend after the answer")
}

// buildModel constructs the configured provider's chat model. The returned
// cleanup releases provider resources; the google client holds a gRPC
// connection.
func buildModel(cfg *config.Config) (model.ChatModel, func(), error) {
	nop := func() {}
	switch cfg.Provider {
	case "anthropic":
		return anthropic.New(cfg.AnthropicKey, cfg.Model), nop, nil
	case "google":
		m, err := google.New(cfg.GoogleKey, cfg.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("google client: %w", err)
		}
		return m, func() { _ = m.Close() }, nil
	default:
		return openai.New(cfg.OpenAIKey, cfg.Model), nop, nil
	}
}

// buildStore constructs the configured run store.
func buildStore(cfg *config.Config) (store.Store[agent.State], func(), error) {
	nop := func() {}
	switch cfg.Store.Backend {
	case "sqlite":
		st, err := store.NewSQLite[agent.State](cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	case "redis":
		st := store.NewRedis[agent.State](cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		return st, func() { _ = st.Close() }, nil
	case "mysql":
		st, err := store.NewMySQL[agent.State](cfg.Store.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("mysql store: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return store.NewMemory[agent.State](), nop, nil
	}
}

func printCost(runner *agent.Runner, ans agent.Answer) {
	costs := runner.Costs()
	in, out := costs.TokenUsage()

	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Run %s: %d steps, %d input tokens, %d output tokens\n",
		ans.RunID, ans.Steps, in, out)

	byModel := costs.ByModel()
	models := make([]string, 0, len(byModel))
	for m := range byModel {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		fmt.Fprintf(os.Stderr, "  %-32s $%.6f\n", m, byModel[m])
	}
	fmt.Fprintf(os.Stderr, "Estimated cost: $%.6f\n", costs.Total())
}
