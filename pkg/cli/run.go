// pkg/cli/run.go
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/texture-ingress/pkg/config"
	"github.com/David-Botos/texture-ingress/pkg/connector"
	"github.com/David-Botos/texture-ingress/pkg/ingest"
	"github.com/David-Botos/texture-ingress/pkg/logging"
)

func runCmd(debug *bool) *cobra.Command {
	var jobPath string
	var envFile string
	var format string

	c := &cobra.Command{
		Use:   "run",
		Short: "Run an ingest job: read its sources, write the dataset file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unsupported format %q (want text or json)", format)
			}

			var envFiles []string
			if envFile != "" {
				envFiles = append(envFiles, envFile)
			}
			cfg, err := config.LoadConfig(envFiles...)
			if err != nil {
				return err
			}

			logger, cleanup, err := logging.Setup(logging.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Debug:  *debug,
			})
			if err != nil {
				return err
			}
			defer cleanup()

			job, err := config.LoadJob(jobPath, cfg)
			if err != nil {
				return err
			}

			conns := connector.NewConnectorFactory(cfg, logger)
			defer func() {
				if err := conns.CloseAll(); err != nil {
					logger.Warn("Failed to close connections", zap.Error(err))
				}
			}()

			summary, runErr := ingest.NewRunner(cfg, conns, logger).Run(cmd.Context(), job)
			if summary != nil {
				if err := printSummary(cmd.OutOrStdout(), summary, format); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	c.Flags().StringVarP(&jobPath, "job", "j", "", "Job file (required)")
	c.Flags().StringVarP(&envFile, "env", "e", "", "Env file with connection settings (optional; ./.env is used when present)")
	c.Flags().StringVar(&format, "format", "text", "Report format: text|json")

	_ = c.MarkFlagRequired("job")
	return c
}

func printSummary(w io.Writer, s *ingest.Summary, format string) error {
	if format == "json" {
		b, err := s.Metrics.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}

	if _, err := fmt.Fprint(w, s.Metrics.Report()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\nRun %s: %d wells, %d intervals written to %s\n",
		s.RunID, s.Wells, s.Intervals, s.OutputPath); err != nil {
		return err
	}
	if s.WellLogPath != "" {
		if _, err := fmt.Fprintf(w, "Well log written to %s\n", s.WellLogPath); err != nil {
			return err
		}
	}
	for _, p := range s.ControlPaths {
		if _, err := fmt.Fprintf(w, "Control file written to %s\n", p); err != nil {
			return err
		}
	}
	return nil
}
