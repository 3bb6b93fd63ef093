package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/imageforge/imageforge/pkg/convert"
	"github.com/imageforge/imageforge/pkg/formats"
	"github.com/imageforge/imageforge/pkg/report"
)

var (
	reportTarget string
	reportRuns   int
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <input-files...>",
	Short: "Benchmark conversions and generate a performance report",
	Long: `Convert each input file repeatedly while collecting telemetry, then
summarize timings, trend, stability and tuning recommendations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportTarget, "to", "t", "webp", "target format for the benchmark conversions")
	reportCmd.Flags().IntVarP(&reportRuns, "runs", "n", 3, "conversions per input file")
}

func runReport(cmd *cobra.Command, args []string) error {
	target := formats.Parse(reportTarget)
	if target == formats.Unknown {
		return fmt.Errorf("unknown target format: %s", reportTarget)
	}
	if reportRuns < 1 {
		return fmt.Errorf("runs must be at least 1")
	}

	ctx := context.Background()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		input := convert.ImageInput{Data: data, SourceName: filepath.Base(path)}
		for i := 0; i < reportRuns; i++ {
			if _, err := rt.orch.Convert(ctx, input, target, nil); err != nil {
				return fmt.Errorf("benchmark conversion of %s failed: %w", path, err)
			}
		}
	}

	rep := report.Generate(rt.collector.History())

	if IsJSONOutput() {
		output, err := report.ExportJSON(rep)
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}
	if IsYAMLOutput() {
		output, err := report.ExportYAML(rep)
		if err != nil {
			return err
		}
		fmt.Print(string(output))
		return nil
	}

	renderReport(rep)
	return nil
}

func renderReport(rep *report.Report) {
	fmt.Println("Summary")
	summary := tablewriter.NewWriter(os.Stdout)
	summary.Header("Metric", "Value")
	summary.Append("Items Processed", fmt.Sprintf("%d", rep.Summary.ItemsProcessed))
	summary.Append("Total Time", fmt.Sprintf("%.2f ms", rep.Summary.TotalTimeMs))
	summary.Append("Average Time", fmt.Sprintf("%.2f ms", rep.Summary.AverageTimeMs))
	summary.Append("Items / Second", fmt.Sprintf("%.2f", rep.Summary.ItemsPerSecond))
	summary.Append("Peak Memory", fmt.Sprintf("%d B", rep.Summary.PeakMemoryBytes))
	summary.Append("Average CPU", fmt.Sprintf("%.1f%%", rep.Summary.AverageCPUPercent))
	summary.Append("Stability Score", fmt.Sprintf("%.2f", rep.StabilityScore))
	summary.Render()

	if len(rep.Operations) > 0 {
		fmt.Println("\nOperations")
		ops := tablewriter.NewWriter(os.Stdout)
		ops.Header("Operation", "Count", "Avg", "Min", "Max")
		for _, op := range rep.Operations {
			ops.Append(
				op.Label,
				fmt.Sprintf("%d", op.Count),
				fmt.Sprintf("%.2f ms", op.AverageTimeMs),
				fmt.Sprintf("%.2f ms", op.MinTimeMs),
				fmt.Sprintf("%.2f ms", op.MaxTimeMs),
			)
		}
		ops.Render()
	}

	if rep.Trend.Degrading {
		fmt.Printf("\nTrend: recent conversions run %.0f%% slower than the earliest ones\n", rep.Trend.Change*100)
	}

	if len(rep.Recommendations) > 0 {
		fmt.Println("\nRecommendations")
		recs := tablewriter.NewWriter(os.Stdout)
		recs.Header("Type", "Priority", "Impact", "Difficulty", "Reason")
		for _, rec := range rep.Recommendations {
			recs.Append(
				rec.Type,
				fmt.Sprintf("%d", rec.Priority),
				fmt.Sprintf("%.0f%%", rec.ExpectedImpact*100),
				rec.Difficulty,
				rec.Reason,
			)
		}
		recs.Render()
	} else {
		fmt.Println("\nNo recommendations; performance looks healthy")
	}
}
