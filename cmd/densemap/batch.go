package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/densemap/pkg/densemap/batch"
	"github.com/jamesainslie/densemap/pkg/densemap/export"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Continuously sample every large file in a directory",
	Long: `Batch discovers files in a directory that are large enough for the grid,
then time-slices a fixed per-tick sample budget fairly across all of them.
Files created or grown while running join the rotation automatically.

Runs until interrupted. With --out, a PNG snapshot per file is written on
exit.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Int("grid-width", 0, "per-file grid width in cells")
	batchCmd.Flags().Int("grid-height", 0, "per-file grid height in cells")
	batchCmd.Flags().Duration("tick", 0, "batch tick interval")
	batchCmd.Flags().Int("budget", 0, "total samples per tick")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().Bool("no-watch", false, "disable filesystem watching for new files")
	batchCmd.Flags().StringP("out", "o", "", "directory for PNG snapshots on exit")

	_ = viper.BindPFlag("batch.grid.width", batchCmd.Flags().Lookup("grid-width"))
	_ = viper.BindPFlag("batch.grid.height", batchCmd.Flags().Lookup("grid-height"))
	_ = viper.BindPFlag("batch.tick", batchCmd.Flags().Lookup("tick"))
	_ = viper.BindPFlag("batch.budget", batchCmd.Flags().Lookup("budget"))
	_ = viper.BindPFlag("batch.recursive", batchCmd.Flags().Lookup("recursive"))

	rootCmd.AddCommand(batchCmd)
}

// runBatch is the multi-file batch command handler.
func runBatch(cmd *cobra.Command, args []string) error {
	if err := initLogging(true); err != nil {
		return err
	}

	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	opts := batch.Options{
		Dir: dir,
		Geometry: types.Geometry{
			Width:  viper.GetInt("batch.grid.width"),
			Height: viper.GetInt("batch.grid.height"),
		},
		SampleBytes: viper.GetInt("sample_bytes"),
		Workers:     viper.GetInt("workers"),
		Tick:        viper.GetDuration("batch.tick"),
		Budget:      viper.GetInt("batch.budget"),
		Recursive:   viper.GetBool("batch.recursive"),
	}
	if !getQuiet() {
		opts.OnDiscover = func(path string, size int64) {
			fmt.Printf("discovered %s (%s)\n", path, humanize.IBytes(uint64(size)))
		}
	}

	scheduler, err := batch.NewScheduler(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	noWatch, _ := cmd.Flags().GetBool("no-watch")
	if !noWatch && viper.GetBool("batch.watch") {
		watcher, err := batch.NewWatcher(scheduler)
		if err != nil {
			printVerbose("filesystem watching unavailable: %v", err)
		} else {
			watcher.Start(ctx)
			defer watcher.Close()
		}
	}

	if len(scheduler.Files()) == 0 {
		fmt.Println("no files large enough to map; waiting for new files (Ctrl-C to quit)")
	} else if !getQuiet() {
		fmt.Printf("sampling %d files (Ctrl-C to quit)\n", len(scheduler.Files()))
	}

	// Sample-rate reporting off the event stream.
	sub := scheduler.Subscribe(4096)
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		var count int64
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Events:
				if !ok {
					return
				}
				count++
			case <-ticker.C:
				if !getQuiet() && count > 0 {
					fmt.Printf("%s samples across %d files\n",
						humanize.Comma(count), len(scheduler.Files()))
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nstopping...")

	cancel()
	scheduler.Stop()

	outDir, _ := cmd.Flags().GetString("out")
	if outDir != "" {
		return writeBatchSnapshots(scheduler, outDir)
	}
	return nil
}

// writeBatchSnapshots writes one PNG per sampled file.
func writeBatchSnapshots(scheduler *batch.Scheduler, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	opts := scheduler.Options()
	for _, path := range scheduler.Files() {
		agg, ok := scheduler.Aggregator(path)
		if !ok || agg.Len() == 0 {
			continue
		}
		img := export.RenderImage(agg.Snapshot(), opts.Geometry, opts.SampleBytes)
		name := filepath.Base(path) + ".png"
		if err := export.WritePNG(filepath.Join(outDir, name), img); err != nil {
			return err
		}
	}
	if !getQuiet() {
		fmt.Printf("snapshots written to %s\n", outDir)
	}
	return nil
}
