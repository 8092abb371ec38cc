package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/densemap/cmd/densemap/tui"
	"github.com/jamesainslie/densemap/pkg/densemap/engine"
	"github.com/jamesainslie/densemap/pkg/densemap/export"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// runRender is the single-file root command handler.
func runRender(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("a file to visualize is required")
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	geom := types.Geometry{
		Width:  viper.GetInt("grid.width"),
		Height: viper.GetInt("grid.height"),
	}
	opts := engine.Options{
		Path:           path,
		Geometry:       geom,
		SampleBytes:    viper.GetInt("sample_bytes"),
		Workers:        viper.GetInt("workers"),
		RefineInterval: viper.GetDuration("refine_interval"),
	}

	outPath, _ := cmd.Flags().GetString("out")
	cellSize, _ := cmd.Flags().GetInt("cell-size")

	if !viper.GetBool("no_interactive") {
		if err := initLogging(false); err != nil {
			return err
		}
		opts.Persistent = true
		return tui.Run(tui.Options{
			Engine:   opts,
			Out:      outPath,
			CellSize: cellSize,
		})
	}

	if err := initLogging(true); err != nil {
		return err
	}
	return renderOnce(opts, outPath, cellSize)
}

// renderOnce runs a non-persistent first pass with text progress and an
// optional PNG snapshot.
func renderOnce(opts engine.Options, outPath string, cellSize int) error {
	var lastPrint atomic.Int64
	if !getQuiet() {
		opts.OnProgress = func(sampled, total int) {
			now := time.Now().UnixMilli()
			last := lastPrint.Load()
			if sampled != total && now-last < 100 {
				return
			}
			if !lastPrint.CompareAndSwap(last, now) {
				return
			}
			fmt.Fprintf(os.Stderr, "\rfirst pass: %3d%% (%d/%d)",
				sampled*100/total, sampled, total)
		}
	}

	session, err := engine.NewSession(opts)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := session.Start(context.Background()); err != nil {
		return err
	}
	session.Wait()
	session.Stop()

	if !getQuiet() {
		fmt.Fprintln(os.Stderr)
		info, statErr := os.Stat(opts.Path)
		size := "?"
		if statErr == nil {
			size = humanize.IBytes(uint64(info.Size()))
		}
		fmt.Printf("%s: %s mapped onto %s in %s (%d samples)\n",
			filepath.Base(opts.Path), size, session.Options().Geometry.String(),
			time.Since(start).Round(time.Millisecond),
			session.Aggregator().Samples())
	}

	if outPath != "" {
		return writeSnapshot(session, outPath, cellSize)
	}
	return nil
}

// writeSnapshot renders the session's grid to a PNG.
func writeSnapshot(session *engine.Session, outPath string, cellSize int) error {
	opts := session.Options()
	img := export.Scale(
		export.RenderImage(session.Aggregator().Snapshot(), opts.Geometry, opts.SampleBytes),
		cellSize)
	if err := export.WritePNG(outPath, img); err != nil {
		return err
	}
	printVerbose("snapshot written to %s", outPath)
	return nil
}
