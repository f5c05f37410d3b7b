package cmd

import (
	"fmt"
	"time"

	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect attendance records",
}

var attendanceHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show check-ins for a day",
	Long: `Show the check-ins of one day, newest first.
Without --date the latest 100 check-ins are shown. Use --today for the current day.`,
	Args: cobra.NoArgs,
	RunE: runAttendanceHistory,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceHistoryCmd)

	attendanceHistoryCmd.Flags().String("date", "", "Day to show (YYYY-MM-DD)")
	attendanceHistoryCmd.Flags().Bool("today", false, "Show today's check-ins")
	attendanceHistoryCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAttendanceHistory(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	if mustGetBool(cmd, "today") {
		date = database.CheckInDate(time.Now())
	}
	if date != "" {
		if _, err := time.Parse(database.DateLayout, date); err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
		}
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.ledger.ListAttendance(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(records)
	}

	fmt.Printf("%-19s %-12s %-30s %s\n", "TIME", "ID", "NAME", "CLASS")
	for _, rec := range records {
		fmt.Printf("%-19s %-12s %-30s %s\n", rec.CheckInTime.Local().Format(time.DateTime), rec.StudentID, rec.Name, rec.Class)
	}
	fmt.Printf("\n%d check-ins\n", len(records))
	return nil
}
