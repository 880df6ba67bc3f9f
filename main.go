package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ossyrian/fjsysparse/internal/blockstore"
	"github.com/ossyrian/fjsysparse/internal/config"
	"github.com/ossyrian/fjsysparse/internal/extract"
	"github.com/ossyrian/fjsysparse/internal/logging"
	"github.com/ossyrian/fjsysparse/internal/parser"
)

var (
	cfgFile string
	cfg     *config.Config
)

// errFailedEntries is returned in strict mode when any entry failed
var errFailedEntries = errors.New("some entries could not be extracted")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:          "fjsysparse",
	Short:        "Unpack FJSYS archives and convert MGD assets to images",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	// i/o
	rootCmd.Flags().StringP("input", "i", "", "path to FJSYS archive (required)")
	rootCmd.Flags().StringP("output", "o", "Output", "directory to extract to")
	rootCmd.Flags().Bool("source", false, "write entries verbatim instead of decoding MGD assets")
	rootCmd.Flags().Bool("manifest", false, "write manifest.json describing every entry")
	rootCmd.MarkFlagRequired("input")

	// extraction
	rootCmd.Flags().Int("workers", 0, "entries to extract concurrently (0 = number of CPUs)")
	rootCmd.Flags().Bool("strict", false, "exit with an error if any entry could not be extracted")
	rootCmd.Flags().Int64("max-canvas-bytes", 0, "largest decoded canvas in bytes; bigger assets are written raw (0 = 1 GiB, -1 = no limit)")

	// other opts
	rootCmd.Flags().Bool("debug", false, "enable debug output")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error, fatal)")
	rootCmd.Flags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stderr and file)")
	rootCmd.Flags().Bool("dry-run", false, "parse and decode without writing output (validation)")

	viper.BindPFlag("input", rootCmd.Flags().Lookup("input"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("source", rootCmd.Flags().Lookup("source"))
	viper.BindPFlag("manifest", rootCmd.Flags().Lookup("manifest"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("strict", rootCmd.Flags().Lookup("strict"))
	viper.BindPFlag("max_canvas_bytes", rootCmd.Flags().Lookup("max-canvas-bytes"))
	viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
	viper.BindPFlag("log_level", rootCmd.Flags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.Flags().Lookup("log-output-dir"))
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fjsysparse"))
		}
		viper.AddConfigPath("/etc/fjsysparse")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("FJSYSPARSE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// run indexes the archive and extracts every entry to the output directory
func run(cmd *cobra.Command, args []string) error {
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.Debug, cfg.LogOutputDir); err != nil {
		return fmt.Errorf("could not set up logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return extractArchive(ctx, cfg)
}

func extractArchive(ctx context.Context, cfg *config.Config) error {
	logger := slog.With("archive", cfg.InputFile)

	outDir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}

	src, err := blockstore.Open(cfg.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer src.Close()

	logger.Info("parsing archive", "size", src.Size(), "output", outDir)

	entries, err := parser.NewReader(src, logger).Index()
	if err != nil {
		logger.Error("failed to parse archive", "error", err)
		return fmt.Errorf("failed to parse archive: %w", err)
	}

	out := blockstore.NewWriter(outDir, blockstore.WithDryRun(cfg.DryRun))
	x := extract.New(src, out,
		extract.WithLogger(logger),
		extract.WithSource(cfg.Source),
		extract.WithWorkers(cfg.Workers),
		extract.WithManifest(cfg.Manifest),
		extract.WithMaxCanvasBytes(cfg.MaxCanvasBytes),
	)

	report, err := x.Run(ctx, entries)
	if err != nil {
		return err
	}
	report.Archive = filepath.Base(cfg.InputFile)

	if cfg.Manifest {
		path, err := extract.WriteManifest(out, report)
		if err != nil {
			return err
		}
		logger.Info("wrote manifest", "path", path)
	}

	if failed := report.Count(extract.OutcomeFailed); cfg.Strict && failed > 0 {
		return fmt.Errorf("%w: %d of %d", errFailedEntries, failed, len(report.Entries))
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
