package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rickbassham/fitsnorm/common"
	"github.com/rickbassham/fitsnorm/config"
	"github.com/rickbassham/fitsnorm/fits"
	"github.com/rickbassham/fitsnorm/normalize"
	"github.com/rickbassham/fitsnorm/xisf"
)

func newNormalizeCmd() *cobra.Command {
	var (
		input  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "normalize [files or globs...]",
		Short: "Rewrite FITS primary headers in place",
		Example: `  fitsnorm normalize --input '**/*.fits'
  fitsnorm normalize --dry-run light_0001.fits`,
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if input != "" {
				patterns = append([]string{input}, args...)
			}
			if len(patterns) == 0 {
				return errors.New("no input files; pass paths, globs or --input")
			}

			files, err := expandInputs(patterns, logger)
			if err != nil {
				return err
			}
			logger.Info("found matching files", zap.Int("count", len(files)))

			n := normalize.FromConfig(cfg, normalize.WithLogger(logger))
			failed := 0

			for _, file := range files {
				if dryRun {
					err = printPlan(cmd.Context(), cmd.OutOrStdout(), n, file)
				} else {
					err = n.Normalize(cmd.Context(), file)
				}
				if err != nil {
					failed++
					logger.Error("skipping file", zap.String("file", file), zap.Error(err))
				}
			}

			logger.Info("done", zap.Int("files", len(files)), zap.Int("failed", failed))

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Glob to match files, e.g. '**/*.fits'.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Don't rewrite the files, just print the resulting headers.")

	return cmd
}

func printPlan(ctx context.Context, w io.Writer, n *normalize.Normalizer, file string) error {
	h, err := n.Plan(ctx, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "==> %s <==\n%s\n", file, h.String())
	return nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [files or globs...]",
		Short: "Report files the normalizer would reject, without writing",
		Long: `check runs every normalization step except the write. FITS files get the
full treatment; XISF files only have their embedded FITS keywords checked for
conflicting duplicates.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandInputs(args, logger)
			if err != nil {
				return err
			}

			n := normalize.FromConfig(cfg, normalize.WithLogger(logger))
			policy := normalize.PolicyFor(cfg.Policy.PreciseDateKeywords, cfg.Policy.SensorTemperatureKeywords)
			out := cmd.OutOrStdout()
			failed := 0

			for _, file := range files {
				var h common.Header
				if isXISF(file) {
					h, err = checkXISF(policy, file)
				} else {
					h, err = n.Plan(cmd.Context(), file)
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
					continue
				}
				fmt.Fprintf(out, "ok   %s (%d cards)\n", file, len(h))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files would be rejected", failed, len(files))
			}
			return nil
		},
	}
}

func checkXISF(policy *normalize.Policy, file string) (common.Header, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := xisf.NewDecoder(f).ReadHeader()
	if err != nil {
		return nil, err
	}

	h, _, err = normalize.Dedupe(policy, h)
	return h, err
}

func newHeaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "header FILE",
		Short: "Print the primary header as fitsio reads it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			h, err := fits.ReadKeywords(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range h {
				switch val := c.Value.(type) {
				case string:
					fmt.Fprintf(out, "%-10s %s\n", c.Key, val)
				case bool:
					fmt.Fprintf(out, "%-10s %t\n", c.Key, val)
				case int64:
					fmt.Fprintf(out, "%-10s %d\n", c.Key, val)
				case float64:
					fmt.Fprintf(out, "%-10s %f\n", c.Key, val)
				default:
					fmt.Fprintf(out, "%-10s %v\n", c.Key, val)
				}
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		// the file may not exist yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print the sample configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), config.Sample())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the sample configuration (default: user config dir)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})

	return cmd
}
