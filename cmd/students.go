package cmd

import (
	"fmt"

	"github.com/kozaktomas/roll-call/internal/recognition"
	"github.com/spf13/cobra"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage registered students",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered students",
	Long: `List registered students ordered by name.
--search matches names ignoring case and diacritics, or ID and class prefixes.`,
	Args: cobra.NoArgs,
	RunE: runStudentsList,
}

var studentsDeleteCmd = &cobra.Command{
	Use:   "delete <student-id>",
	Short: "Delete a student with their face encoding and attendance",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentsDelete,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsDeleteCmd)

	studentsListCmd.Flags().String("search", "", "Filter by name, ID or class")
	studentsListCmd.Flags().Bool("json", false, "Output as JSON")
	studentsDeleteCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.ledger.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}
	students = recognition.FilterStudents(students, mustGetString(cmd, "search"))

	if mustGetBool(cmd, "json") {
		return outputJSON(students)
	}

	fmt.Printf("%-12s %-30s %-10s %s\n", "ID", "NAME", "CLASS", "ENROLLED")
	for _, st := range students {
		enrolled := "no face"
		if a.gallery.Has(st.StudentID) {
			enrolled = st.CreatedAt.Format("2006-01-02")
		}
		fmt.Printf("%-12s %-30s %-10s %s\n", st.StudentID, st.Name, st.Class, enrolled)
	}
	fmt.Printf("\n%d students, %d face encodings\n", len(students), a.gallery.Len())
	return nil
}

func runStudentsDelete(cmd *cobra.Command, args []string) error {
	studentID := args[0]

	if !mustGetBool(cmd, "yes") && !confirmAction(fmt.Sprintf("Delete student %s and all their attendance? [y/N]: ", studentID)) {
		fmt.Println("Cancelled")
		return nil
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.remover().Delete(ctx, studentID); err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	fmt.Printf("Deleted student %s\n", studentID)
	return nil
}
