// Command traceguard verifies and replays scan-pipeline traces from the
// event log. It is operator tooling: output goes to stdout, structured
// logs to stderr, and the exit code reflects the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/securewatch/traceguard/internal/config"
	"github.com/securewatch/traceguard/internal/contract"
	"github.com/securewatch/traceguard/internal/domain"
	"github.com/securewatch/traceguard/internal/healthcheck"
	"github.com/securewatch/traceguard/internal/ports"
	"github.com/securewatch/traceguard/internal/replay"
	"github.com/securewatch/traceguard/internal/storage/memory"
	"github.com/securewatch/traceguard/internal/storage/sqldb"
	"github.com/securewatch/traceguard/internal/telemetry"
	"github.com/securewatch/traceguard/internal/trace"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	logger  *slog.Logger
	cfgPath string
	cfg     *config.Config
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) openStore() (ports.EventStore, error) {
	if a.cfg.Store.Driver == "memory" {
		return memory.New(), nil
	}
	return sqldb.New(sqldb.Config{Driver: a.cfg.Store.Driver, DSN: a.cfg.Store.DSN})
}

// initTelemetry starts the tracer when enabled and returns a shutdown
// function; a no-op otherwise.
func (a *app) initTelemetry(service string) func(context.Context) error {
	if !a.cfg.Telemetry.Enabled {
		return func(context.Context) error { return nil }
	}
	shutdown, err := telemetry.Init(service, a.logger)
	if err != nil {
		a.logger.Warn("failed to initialize tracing", slog.String("error", err.Error()))
		return func(context.Context) error { return nil }
	}
	return shutdown
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:           "traceguard",
		Short:         "Verify and replay scan-pipeline traces",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to a YAML config file")

	root.AddCommand(newVerifyCmd(a))
	root.AddCommand(newReplayCmd(a))
	root.AddCommand(newHealthcheckCmd(a))

	return root
}

func newVerifyCmd(a *app) *cobra.Command {
	var fixtureMode bool

	cmd := &cobra.Command{
		Use:   "verify <trace-id>",
		Short: "Check a trace against the pipeline lifecycle contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			shutdown := a.initTelemetry("traceguard-verify")
			defer shutdown(ctx)

			traceID, err := trace.NormalizeID(args[0])
			if err != nil {
				return fmt.Errorf("%q is not a valid trace id: %w", args[0], err)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := trace.NewLoader(store).Load(ctx, traceID)
			if err != nil && !errors.Is(err, domain.ErrTraceNotFound) {
				return err
			}
			// A missing trace still gets a full report; events_present fails
			// and the rest run against the empty set.

			report := contract.Evaluate(events, contract.Options{
				TraceID:           traceID,
				ExpectFixtureMode: fixtureMode,
			})

			fmt.Printf("Trace %s: %d events\n\n", traceID, len(events))
			passed := 0
			for _, res := range report.Results {
				mark := "PASS"
				if res.Passed {
					passed++
				} else {
					mark = "FAIL"
				}
				line := fmt.Sprintf("  %s  %s", mark, res.Name)
				if res.Detail != "" {
					line += ": " + res.Detail
				}
				fmt.Println(line)
			}
			fmt.Printf("\n%d/%d checks passed\n", passed, len(report.Results))

			if !report.Passed() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fixtureMode, "fixture-mode", false,
		"expect fixture_mode=true on every event's meta")

	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		targetName   string
		overridePath string
		dryRun       bool
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay <trace-id>",
		Short: "Re-send a trace's root event to a live entrypoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			shutdown := a.initTelemetry("traceguard-replay")
			defer shutdown(ctx)

			traceID, err := trace.NormalizeID(args[0])
			if err != nil {
				return fmt.Errorf("%q is not a valid trace id: %w", args[0], err)
			}

			target, err := replay.ParseTarget(targetName)
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := trace.NewLoader(store).Load(ctx, traceID)
			if err != nil {
				return err
			}

			fmt.Printf("Trace %s: %d events\n", traceID, len(events))
			fmt.Print(replay.FormatTimeline(events))

			root, err := replay.ResolveRoot(events)
			if err != nil {
				return err
			}
			fmt.Printf("\nRoot event: %s (%s, source=%s)\n",
				root.ID, root.EventType, orDash(root.Source))

			dispatcher := replay.NewDispatcher(map[replay.Target]string{
				replay.TargetStaging: a.cfg.Targets.Staging.BaseURL,
				replay.TargetLocal:   a.cfg.Targets.Local.BaseURL,
			}, a.cfg.Webhook.APIKey, replay.WithLogger(a.logger))

			result, err := dispatcher.Dispatch(ctx, replay.Request{
				TraceID:      traceID,
				Root:         root,
				Target:       target,
				OverridePath: overridePath,
				DryRun:       dryRun,
				Timeout:      timeout,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\nPOST %s\n%s\n", result.URL, result.Body)

			switch result.Outcome {
			case replay.OutcomeDryRun:
				fmt.Println("\nDry run, nothing sent.")
			case replay.OutcomeSuccess:
				fmt.Printf("\nAccepted: HTTP %d in %s\n", result.StatusCode, result.Elapsed.Round(time.Millisecond))
				if result.ResponseBody != "" {
					fmt.Println(result.ResponseBody)
				}
			case replay.OutcomeRejected:
				fmt.Printf("\nRejected: HTTP %d in %s\n", result.StatusCode, result.Elapsed.Round(time.Millisecond))
				if result.ResponseBody != "" {
					fmt.Println(result.ResponseBody)
				}
				os.Exit(1)
			case replay.OutcomeTimeout:
				fmt.Printf("\nTimed out after %s: %s\n", result.Elapsed.Round(time.Millisecond), result.Detail)
				os.Exit(1)
			case replay.OutcomeConnectionFailed:
				fmt.Printf("\nConnection failed: %s\n", result.Detail)
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetName, "target", "staging", "entrypoint environment (staging or local)")
	cmd.Flags().StringVar(&overridePath, "path", "", "override the webhook path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the payload and URL without sending")
	cmd.Flags().DurationVar(&timeout, "timeout", replay.DefaultTimeout, "how long to wait for the entrypoint")

	return cmd
}

func newHealthcheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the event-log ingest function with a synthetic event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.LogFunction.URL == "" {
				return errors.New("log function URL is not configured (set LOG_FUNCTION_URL)")
			}

			client := healthcheck.NewClient(
				a.cfg.LogFunction.URL,
				a.cfg.LogFunction.ServiceKey,
				healthcheck.WithLogger(a.logger),
			)

			result, err := client.Check(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("OK: event %s stored (trace %s)\n", result.EventID, result.TraceID)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
