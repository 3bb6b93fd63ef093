package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/imageforge/imageforge/pkg/convert"
	"github.com/imageforge/imageforge/pkg/formats"
)

var (
	batchTargets []string
	batchQuality float64
	batchOutDir  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <input-files...>",
	Short: "Convert multiple images to multiple formats",
	Long: `Run every requested target format against every input file. The run is
all-or-nothing: if any conversion fails, no output files are written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringSliceVarP(&batchTargets, "to", "t", nil, "target formats, repeatable (required)")
	batchCmd.Flags().Float64VarP(&batchQuality, "quality", "q", 0, "quality for lossy targets, 0.0-1.0")
	batchCmd.Flags().StringVarP(&batchOutDir, "out-dir", "d", ".", "output directory")
	batchCmd.MarkFlagRequired("to")
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputs := make([]convert.ImageInput, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		inputs = append(inputs, convert.ImageInput{Data: data, SourceName: filepath.Base(path)})
	}

	var opts *convert.Options
	if cmd.Flags().Changed("quality") {
		opts = &convert.Options{Quality: convert.Float(batchQuality)}
	}
	tasks := make([]convert.Task, 0, len(batchTargets))
	for _, name := range batchTargets {
		target := formats.Parse(name)
		if target == formats.Unknown {
			return fmt.Errorf("unknown target format: %s", name)
		}
		tasks = append(tasks, convert.Task{To: target, Options: opts})
	}

	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	r, err := rt.batch.Start(ctx, inputs, tasks)
	if err != nil {
		return err
	}
	for ev := range r.Events() {
		log.Debug("Batch progress", map[string]interface{}{
			"progress": ev.Progress,
			"message":  ev.Message,
		})
	}
	results, err := r.Wait()
	if err != nil {
		return fmt.Errorf("batch aborted after %d completed conversions: %w", rt.batch.CompletedOperations(), err)
	}

	if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Units come back input-major, mirroring the argument order
	paths := make([]string, 0, len(results))
	for i, img := range results {
		src := args[i/len(tasks)]
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		outPath := filepath.Join(batchOutDir, base+"."+string(img.Format))
		if err := os.WriteFile(outPath, img.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		paths = append(paths, outPath)
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Output", "Format", "Size", "Ratio", "Time")
	for i, img := range results {
		table.Append(
			paths[i],
			string(img.Format),
			fmt.Sprintf("%d B", img.ConvertedSize),
			fmt.Sprintf("%.2f", img.CompressionRatio),
			fmt.Sprintf("%.2f ms", img.ConversionTimeMs),
		)
	}
	table.Render()
	fmt.Printf("\n%d conversions completed\n", len(results))
	return nil
}
