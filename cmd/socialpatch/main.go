// Package main provides the socialpatch command.
//
// socialpatch scans the localization files of a directory and sets the
// third footer.socials entry of the listed languages to "Twitter". Run it
// from the lang directory with no arguments; flags and .socialpatch.yaml
// only override the defaults.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"socialpatch.io/socialpatch/internal/config"
	"socialpatch.io/socialpatch/internal/patcher"
	"socialpatch.io/socialpatch/internal/pkg/logger"
	"socialpatch.io/socialpatch/internal/pkg/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(afero.NewOsFs(), os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "socialpatch error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(fs afero.Fs, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "socialpatch",
		Short: "Add Twitter to the footer socials of localization files",
		Long: `socialpatch rewrites footer.socials.<lang> in every *.json file of a
directory. For each allow-listed language whose list has exactly three
entries and no "Twitter" entry, the third entry becomes "Twitter".
Files without a change are left untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.Flags(), fs, out)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, flags *pflag.FlagSet, fs afero.Fs, out io.Writer) error {
	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	pool, err := worker.NewPool("patch", worker.PoolConfig{Size: cfg.Worker.PoolSize})
	if err != nil {
		return fmt.Errorf("init worker pool: %w", err)
	}
	defer pool.Release()

	p, err := patcher.New(fs, optionsFromConfig(cfg), pool)
	if err != nil {
		return err
	}

	logger.Info("Patching localization files",
		zap.String("dir", cfg.Patch.Dir),
		zap.Strings("languages", cfg.Patch.Languages),
	)

	report, runErr := p.Run(ctx)
	if err := report.WriteSummary(out); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	if cfg.Patch.Report != "" {
		if err := report.WriteYAML(fs, cfg.Patch.Report); err != nil {
			return err
		}
		logger.Info("Run report written", zap.String("path", cfg.Patch.Report))
	}

	_, err = fmt.Fprintln(out, patcher.CompletionMessage)
	return err
}

// optionsFromConfig maps the loaded config onto patcher options. The
// running program never counts as one of its own inputs.
func optionsFromConfig(cfg *config.Config) patcher.Options {
	exclude := append([]string{}, cfg.Patch.Exclude...)
	exclude = append(exclude, filepath.Base(os.Args[0]))

	return patcher.Options{
		Dir:     cfg.Patch.Dir,
		Pattern: cfg.Patch.Pattern,
		Exclude: exclude,
		DryRun:  cfg.Patch.DryRun,
		Rule: patcher.Rule{
			Languages: cfg.Patch.Languages,
			Value:     cfg.Patch.Value,
			Length:    cfg.Patch.Length,
			Index:     cfg.Patch.Index,
		},
	}
}
