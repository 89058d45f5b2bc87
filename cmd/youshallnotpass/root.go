package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jimrtyler/youshallnotpass/internal/config"
	"github.com/jimrtyler/youshallnotpass/internal/logger"
	"github.com/jimrtyler/youshallnotpass/pkg/api"
)

var version = "dev"

type rootOptions struct {
	configPath  string
	devtoolsURL string
	logLevel    string

	minFrameSize int
	intervalMS   int
	noBlob       bool
	noSignature  bool
}

func execute() error {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "youshallnotpass",
		Short:         "Detects and disables blocked content embedded in live pages",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("youshallnotpass version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to config file (optional)")
	pf.StringVar(&opts.devtoolsURL, "devtools-url", "", "Browser DevTools endpoint (default http://127.0.0.1:9222)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newWatchCmd(opts),
		newScanCmd(opts),
		newTargetsCmd(opts),
	)

	return rootCmd.Execute()
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [url-filter]",
		Short: "Attach to matching pages and scan their frames until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = svc.Watch(ctx, filterArg(args))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	addDetectionFlags(cmd, opts)
	return cmd
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url-filter]",
		Short: "Run one detection pass against the first matching page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd, opts)
			if err != nil {
				return err
			}
			stats, err := svc.ScanOnce(cmd.Context(), filterArg(args))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "frames scanned: %d\n", stats.Frames)
			for cat, n := range stats.Matched {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", cat, n)
			}
			return nil
		},
	}
	addDetectionFlags(cmd, opts)
	return cmd
}

func newTargetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the browser's debuggable pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd, opts)
			if err != nil {
				return err
			}
			targets, err := svc.Targets(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range targets {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.Title, t.URL)
			}
			return nil
		},
	}
}

func addDetectionFlags(cmd *cobra.Command, opts *rootOptions) {
	f := cmd.Flags()
	f.IntVar(&opts.minFrameSize, "min-frame-size", 0, "Minimum suspicious frame size in pixels")
	f.IntVar(&opts.intervalMS, "scan-interval", 0, "Scan interval in milliseconds")
	f.BoolVar(&opts.noBlob, "no-blob-blocking", false, "Report blob-url verdicts without mitigating")
	f.BoolVar(&opts.noSignature, "no-signature-blocking", false, "Report engine verdicts without mitigating")
}

// buildService loads config, applies flag overrides, and wires the service.
func buildService(cmd *cobra.Command, opts *rootOptions) (api.Service, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.devtoolsURL != "" {
		cfg.DevToolsURL = opts.devtoolsURL
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if cmd.Flags().Changed("min-frame-size") {
		cfg.Detection.MinSuspiciousFrameSize = opts.minFrameSize
	}
	if cmd.Flags().Changed("scan-interval") {
		cfg.Detection.ScanIntervalMS = opts.intervalMS
	}
	if opts.noBlob {
		cfg.Detection.EnableBlobBlocking = false
	}
	if opts.noSignature {
		cfg.Detection.EnableSignatureBlocking = false
	}

	log := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Console: true,
		File:    cfg.Log.File,
	})
	return api.NewService(cfg, log)
}

func filterArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
