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

	"github.com/jamesainslie/densemap/pkg/densemap/config"
	"github.com/jamesainslie/densemap/pkg/densemap/export"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Render a full-resolution density image of a file",
	Long: `Export performs one exhaustive pass over a pixel-sized grid: every pixel
of the output image corresponds to one region of the file and is sampled
exactly once. The source file must hold at least width x height x
sample-bytes bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().IntP("width", "W", config.DefaultExportWidth, "output image width in pixels")
	exportCmd.Flags().IntP("height", "H", config.DefaultExportHeight, "output image height in pixels")
	exportCmd.Flags().StringP("out", "o", "densemap.png", "output PNG path")

	rootCmd.AddCommand(exportCmd)
}

// runExport is the one-shot high-resolution render handler.
func runExport(cmd *cobra.Command, args []string) error {
	if err := initLogging(true); err != nil {
		return err
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")
	outPath, _ := cmd.Flags().GetString("out")

	opts := export.RenderOptions{
		Path:        path,
		Geometry:    types.Geometry{Width: width, Height: height},
		SampleBytes: viper.GetInt("sample_bytes"),
	}

	var lastPrint atomic.Int64
	if !getQuiet() {
		opts.OnProgress = func(processed, total int) {
			now := time.Now().UnixMilli()
			last := lastPrint.Load()
			if processed != total && now-last < 100 {
				return
			}
			if !lastPrint.CompareAndSwap(last, now) {
				return
			}
			fmt.Fprintf(os.Stderr, "\rrendering: %3d%% (%d/%d)",
				processed*100/total, processed, total)
		}
	}

	start := time.Now()
	img, err := export.RenderFile(context.Background(), opts)
	if err != nil {
		return err
	}
	if !getQuiet() {
		fmt.Fprintln(os.Stderr)
	}

	if err := export.WritePNG(outPath, img); err != nil {
		return err
	}

	if !getQuiet() {
		info, statErr := os.Stat(outPath)
		size := "?"
		if statErr == nil {
			size = humanize.IBytes(uint64(info.Size()))
		}
		fmt.Printf("%s: %dx%d rendered in %s (%s)\n",
			outPath, width, height,
			time.Since(start).Round(time.Millisecond), size)
	}
	return nil
}
