package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/imageforge/imageforge/pkg/formats"
)

// formatsCmd represents the formats command
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported image formats",
	RunE:  runFormatsList,
}

var formatsDetectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Detect the format of an image file",
	Long: `Detect the image format from the file extension first, falling back to
magic byte sniffing when the extension is missing or unrecognized.`,
	Args: cobra.ExactArgs(1),
	RunE: runFormatsDetect,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
	formatsCmd.AddCommand(formatsDetectCmd)
}

func runFormatsList(cmd *cobra.Command, args []string) error {
	infos := make([]formats.FormatInfo, 0, len(formats.Supported()))
	for _, f := range formats.Supported() {
		infos = append(infos, formats.Info(f))
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Format", "Extensions", "MIME Type", "Transparency", "Animation", "Lossy")
	for _, info := range infos {
		table.Append(
			info.Name,
			strings.Join(info.Extensions, ", "),
			info.MimeType,
			yesNo(info.SupportsTransparency),
			yesNo(info.SupportsAnimation),
			yesNo(info.IsLossy),
		)
	}
	table.Render()
	return nil
}

func runFormatsDetect(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	detected := formats.Detect(data, filepath.Base(path))
	sniffed := formats.Sniff(data)

	if IsJSONOutput() {
		output, err := json.MarshalIndent(map[string]string{
			"file":     path,
			"detected": string(detected),
			"sniffed":  string(sniffed),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("File:     %s\n", path)
	fmt.Printf("Detected: %s\n", detected)
	if sniffed != detected {
		fmt.Printf("Sniffed:  %s (magic bytes disagree with extension)\n", sniffed)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
