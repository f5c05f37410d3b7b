package cmd

import (
	"fmt"
	"os"

	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Identify the faces in a photo",
	Long: `Match every face in a photo against the enrolled students.

By default nothing is recorded. With --mark, attendance is taken for the
recognized students exactly like an upload in the web UI.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Bool("mark", false, "Record attendance for recognized students")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	taker := a.attendance()

	if mustGetBool(cmd, "mark") {
		report, err := taker.Take(ctx, data, constants.SourceUpload)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(report)
		}
		fmt.Printf("Faces: %d, saved as %s\n", report.Faces, report.ImagePath)
		for _, r := range report.Results {
			fmt.Printf("  %-12s %-30s %5.1f%%  %s\n", r.StudentID, r.Name, r.Confidence*100, r.Message)
		}
		return nil
	}

	ids, err := taker.Identify(ctx, data)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(ids)
	}

	fmt.Printf("Faces: %d\n", len(ids))
	for i, id := range ids {
		if !id.Matched {
			fmt.Printf("  #%d %-12s at (%d,%d)-(%d,%d)\n", i+1, facematch.UnknownLabel, id.Box.Left, id.Box.Top, id.Box.Right, id.Box.Bottom)
			continue
		}
		fmt.Printf("  #%d %-12s distance %.3f, confidence %.1f%% (%s)\n", i+1, id.Label, id.Distance, id.Confidence*100, id.Tier)
	}
	return nil
}
