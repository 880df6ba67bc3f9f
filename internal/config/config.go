package config

// Config holds app configuration
type Config struct {
	InputFile string `mapstructure:"input"`
	OutputDir string `mapstructure:"output"`

	// Source writes every entry verbatim instead of decoding MGD assets
	Source bool `mapstructure:"source"`

	// Workers is the number of entries extracted concurrently.
	// 0 uses GOMAXPROCS, 1 extracts serially.
	Workers int `mapstructure:"workers"`

	// Manifest writes manifest.json describing every entry and output file
	Manifest bool `mapstructure:"manifest"`

	// Strict makes the run fail if any entry could not be extracted
	Strict bool `mapstructure:"strict"`

	// MaxCanvasBytes bounds one decoded canvas; larger assets are written raw.
	// 0 uses the 1 GiB default, a negative value disables the limit.
	MaxCanvasBytes int64 `mapstructure:"max_canvas_bytes"`

	DryRun       bool   `mapstructure:"dry_run"`
	Debug        bool   `mapstructure:"debug"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
