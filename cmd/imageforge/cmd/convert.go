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
	convertTarget      string
	convertSource      string
	convertQuality     float64
	convertCompression int
	convertProgressive bool
	convertOutFile     string
	convertShowSteps   bool
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <input-file>",
	Short: "Convert an image to another format",
	Long: `Convert a single image file to the given target format. The source
format is detected from the file extension and magic bytes unless
overridden with --from.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertTarget, "to", "t", "", "target format (required)")
	convertCmd.Flags().StringVar(&convertSource, "from", "", "source format override")
	convertCmd.Flags().Float64VarP(&convertQuality, "quality", "q", 0, "quality for lossy targets, 0.0-1.0")
	convertCmd.Flags().IntVar(&convertCompression, "compression-level", 0, "compression level for lossless targets, 0-9")
	convertCmd.Flags().BoolVar(&convertProgressive, "progressive", false, "progressive encoding")
	convertCmd.Flags().StringVarP(&convertOutFile, "out", "o", "", "output file (default: input name with new extension)")
	convertCmd.Flags().BoolVar(&convertShowSteps, "progress", false, "print progress checkpoints")
	convertCmd.MarkFlagRequired("to")
}

// collectOptions builds conversion options from the flags the user
// actually set, so unset flags keep their format defaults.
func collectOptions(cmd *cobra.Command) *convert.Options {
	opts := &convert.Options{}
	if cmd.Flags().Changed("quality") {
		opts.Quality = convert.Float(convertQuality)
	}
	if cmd.Flags().Changed("compression-level") {
		opts.CompressionLevel = convert.Int(convertCompression)
	}
	if cmd.Flags().Changed("progressive") {
		opts.Progressive = convert.Bool(convertProgressive)
	}
	return opts
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	target := formats.Parse(convertTarget)
	if target == formats.Unknown {
		return fmt.Errorf("unknown target format: %s", convertTarget)
	}

	input := convert.ImageInput{Data: data, SourceName: filepath.Base(inputPath)}
	if convertSource != "" {
		source := formats.Parse(convertSource)
		if source == formats.Unknown {
			return fmt.Errorf("unknown source format: %s", convertSource)
		}
		input.Format = source
	}

	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	c, err := rt.orch.Start(ctx, input, target, collectOptions(cmd))
	if err != nil {
		return err
	}
	for ev := range c.Events() {
		if convertShowSteps {
			fmt.Printf("[%3d%%] %-12s %s\n", ev.Progress, ev.Stage, ev.Message)
		}
	}
	img, err := c.Wait()
	if err != nil {
		return err
	}

	outPath := convertOutFile
	if outPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outPath = base + "." + string(target)
	}
	if err := os.WriteFile(outPath, img.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(img, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("ID", img.ID)
	table.Append("Output", outPath)
	table.Append("Format", string(img.Format))
	table.Append("Dimensions", fmt.Sprintf("%dx%d", img.Width, img.Height))
	table.Append("Original Size", fmt.Sprintf("%d B", img.OriginalSize))
	table.Append("Converted Size", fmt.Sprintf("%d B", img.ConvertedSize))
	table.Append("Compression Ratio", fmt.Sprintf("%.2f", img.CompressionRatio))
	table.Append("Conversion Time", fmt.Sprintf("%.2f ms", img.ConversionTimeMs))
	table.Render()
	return nil
}
