package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/greetreply/internal/adapters/render/console"
	statusadapter "github.com/bnema/greetreply/internal/adapters/render/status"
	"github.com/bnema/greetreply/internal/adapters/surface/scripted"
	"github.com/bnema/greetreply/internal/application"
	"github.com/bnema/greetreply/internal/config"
	"github.com/bnema/greetreply/internal/domain"
	"github.com/bnema/greetreply/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	scenario  string
	maxCycles int
	skipProbe bool
}

func newRunCmd(a *app) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the auto-reply loop",
		Long:  "Scan the chat windows one per cycle, reply to the first unread festive greeting found, and wait a randomized interval before the next cycle. Ctrl+C stops after the current cycle.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoop(cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "YAML scenario driving the scripted automation surface")
	cmd.Flags().IntVar(&opts.maxCycles, "max-cycles", 0, "stop after this many cycles (0 = until interrupted)")
	cmd.Flags().BoolVar(&opts.skipProbe, "skip-probe", false, "do not check the generation service before starting")

	return cmd
}

func runLoop(cmd *cobra.Command, a *app, opts runOptions) error {
	if opts.maxCycles < 0 {
		return fmt.Errorf("--max-cycles must be >= 0, got %d", opts.maxCycles)
	}
	if opts.scenario == "" {
		return fmt.Errorf("%w: pass --scenario <file.yaml>", domain.ErrNoAutomationSurface)
	}

	surface, err := scripted.Load(opts.scenario)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}

	generator, err := a.generator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := a.cfg.Settings
	if !opts.skipProbe {
		label := fmt.Sprintf("Checking %s at %s...", settings.Model, a.cfg.Generation.Host)
		err := runProbeSpinner(ctx, cmd.ErrOrStderr(), label, func(ctx context.Context) error {
			return generator.Probe(ctx, settings.Model)
		})
		if err != nil {
			return fmt.Errorf("generation service check failed (use --skip-probe to start anyway): %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if err := console.Banner(out, console.BannerInfo{
		Version:     version.Version,
		Model:       settings.Model,
		WindowClass: settings.WindowClass,
		Surface:     "scripted (" + opts.scenario + ")",
		CancelKeys:  settings.CancelKeys,
		Interval:    [2]time.Duration{settings.Timing.CheckIntervalMin, settings.Timing.CheckIntervalMax},
	}); err != nil {
		return err
	}

	notifier := console.NewNotifier(out)
	orch := application.NewOrchestrator(application.Deps{
		Surface:   surface,
		Generator: generator,
		Clock:     a.clock,
		Notifier:  notifier,
		Logger:    a.logger,
		Ledger:    domain.NewReplyLedger(),
	}, settings)

	if a.loader.Exists() {
		a.loader.Watch(func(cfg config.Config, err error) {
			if err != nil {
				a.logger.Warn("ignoring config change", zap.Error(err))
				return
			}
			orch.Reload(cfg.Settings)
		})
	}

	startedAt := a.clock.Now()
	runCtx, finish := context.WithCancel(ctx)
	defer finish()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer finish()
		return orch.Run(gctx, opts.maxCycles)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			notifier.Notice("stop requested, finishing the current cycle")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	summary, err := statusadapter.Render(orch.Stats(), statusadapter.RenderOptions{
		StartedAt:  startedAt,
		FinishedAt: a.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("render run summary: %w", err)
	}

	_, err = fmt.Fprintln(out, summary)
	return err
}
