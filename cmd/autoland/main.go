// Command autoland runs an autonomous coding agent against a project
// directory: it reads a goal, lets the model modify the project through a
// guarded tool set, validates with the project's build, and lands the result
// on a feature branch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/agent"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/config"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/llm"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/tools"
)

var (
	flagDir           string
	flagRepo          string
	flagModel         string
	flagMaxIterations int
	flagLogLevel      string
)

func main() {
	root := &cobra.Command{
		Use:   "autoland [task]",
		Short: "Autonomous coding agent: modify, build, commit",
		Long: `autoland points a language model at a project directory with a guarded
tool set. The model plans, edits files, runs the build, and lands passing
changes on a feature branch. The final summary reports what happened; the
process exit code only reflects startup failures.`,
		Args: cobra.MaximumNArgs(1),
		RunE: run,
	}

	root.Flags().StringVarP(&flagDir, "dir", "d", ".", "project directory to work in")
	root.Flags().StringVarP(&flagRepo, "repo", "r", "", "repository URL to clone into the project directory first")
	root.Flags().StringVarP(&flagModel, "model", "m", "", "override the configured model name")
	root.Flags().IntVarP(&flagMaxIterations, "max-iterations", "n", 0, "override the iteration budget")
	root.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagModel != "" {
		cfg.Model.Name = flagModel
	}
	if flagMaxIterations > 0 {
		cfg.Loop.MaxIterations = flagMaxIterations
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}

	logging.Setup(cfg.Log.Level, cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return err
	}

	workDir, err := filepath.Abs(flagDir)
	if err != nil {
		return fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagRepo != "" {
		if err := cloneInto(ctx, cfg, flagRepo, workDir); err != nil {
			return err
		}
	}

	goal := ""
	if len(args) > 0 {
		goal = args[0]
	}

	client := llm.NewClient(cfg)
	a, err := agent.New(cfg, client, workDir, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	report := a.Run(ctx, goal)
	fmt.Fprintln(cmd.OutOrStdout(), report)
	return nil
}

// cloneInto materializes the repository in workDir before the run starts.
// The directory must be empty.
func cloneInto(ctx context.Context, cfg *config.Config, repo, workDir string) error {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return fmt.Errorf("failed to read project directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("refusing to clone into non-empty directory %s", workDir)
	}

	git := tools.NewGit(tools.GitOptions{
		WorkDir:       filepath.Dir(workDir),
		Token:         cfg.Git.Token,
		PrimaryBranch: cfg.Git.PrimaryBranch,
		AuthorName:    cfg.Git.AuthorName,
		AuthorEmail:   cfg.Git.AuthorEmail,
	})
	out, code, err := git.Run(ctx, "clone", repo, workDir)
	if err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("git clone failed: %s", strings.TrimSpace(out))
	}
	logging.Info("repository cloned", "url", repo, "dir", workDir)
	return nil
}
