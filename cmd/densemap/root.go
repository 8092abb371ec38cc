package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/densemap/pkg/densemap/config"
	"github.com/jamesainslie/densemap/pkg/densemap/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "densemap <file>",
		Short: "Visualize the byte-level density of a file",
		Long: `Densemap maps a file's byte range onto a logical grid and repeatedly
samples small windows to estimate each cell's byte diversity.

By default, densemap launches an interactive TUI that renders the grid live
and keeps refining it until you quit. Use --no-interactive for a single
exhaustive pass with text progress.

Examples:
  densemap big.iso                 # Live visualization of one file
  densemap -n -o map.png big.iso   # One pass, write a PNG snapshot
  densemap batch ~/Downloads       # Sample every large file in a directory
  densemap export -o out.png -W 1920 -H 1080 big.iso`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRender,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/densemap/config.yaml)")
	rootCmd.PersistentFlags().IntP("sample-bytes", "b", 0, "bytes read per sample window")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "worker pool size (0=one per CPU)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	rootCmd.Flags().Int("grid-width", 0, "logical grid width in cells")
	rootCmd.Flags().Int("grid-height", 0, "logical grid height in cells")
	rootCmd.Flags().BoolP("no-interactive", "n", false, "disable TUI, single pass with text progress")
	rootCmd.Flags().StringP("out", "o", "", "write a PNG snapshot of the grid on exit")
	rootCmd.Flags().Int("cell-size", 2, "PNG snapshot pixels per cell")

	_ = viper.BindPFlag("sample_bytes", rootCmd.PersistentFlags().Lookup("sample-bytes"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("grid.width", rootCmd.Flags().Lookup("grid-width"))
	_ = viper.BindPFlag("grid.height", rootCmd.Flags().Lookup("grid-height"))
	_ = viper.BindPFlag("no_interactive", rootCmd.Flags().Lookup("no-interactive"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "densemap"))
		}
		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "densemap"))
		}
	}

	viper.SetEnvPrefix("DENSEMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	_ = viper.ReadInConfig()
}

// initLogging configures the logging package from viper state. TUI mode
// keeps the console silent because the TUI owns the screen.
func initLogging(console bool) error {
	level := viper.GetString("logging.level")
	if getVerbose() {
		level = "debug"
	}
	return logging.Init(logging.Config{
		Level:      level,
		Path:       viper.GetString("logging.path"),
		Components: viper.GetStringMapString("logging.components"),
		Console:    console && !getQuiet(),
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
