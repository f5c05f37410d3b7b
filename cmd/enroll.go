package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kozaktomas/roll-call/internal/recognition"
	"github.com/kozaktomas/roll-call/internal/uploads"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image|directory>",
	Short: "Enroll students from photos",
	Long: `Enroll a student from a photo containing exactly one face.

With a single image, --id and --name are required. With a directory, every
png/jpg/jpeg file is enrolled using the file name as "<student-id>_<name>",
for example "SV001_Nguyen_Van_An.jpg". Underscores in the name become spaces.

Examples:
  roll-call enroll an.jpg --id SV001 --name "Nguyen Van An" --class CS1
  roll-call enroll ./photos --class CS1`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("id", "", "Student ID (single image only)")
	enrollCmd.Flags().String("name", "", "Student name (single image only)")
	enrollCmd.Flags().String("email", "", "Student email (single image only)")
	enrollCmd.Flags().String("phone", "", "Student phone (single image only)")
	enrollCmd.Flags().String("class", "", "Class for every enrolled student")
	enrollCmd.Flags().Bool("json", false, "Output as JSON")
}

// enrollResult is the outcome for one enrollment photo
type enrollResult struct {
	File      string `json:"file"`
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Enrolled  bool   `json:"enrolled"`
	Error     string `json:"error,omitempty"`
}

// parseEnrollFileName splits "<id>_<name parts>.jpg" into ID and name.
func parseEnrollFileName(filename string) (string, string, bool) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	id, name, ok := strings.Cut(base, "_")
	if !ok || id == "" || name == "" {
		return "", "", false
	}
	return id, strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " "), true
}

// listEnrollImages returns the allowed image files of dir in name order.
func listEnrollImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && uploads.AllowedFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	class := mustGetString(cmd, "class")

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	var requests []recognition.EnrollRequest
	var files []string
	if info.IsDir() {
		files, err = listEnrollImages(args[0])
		if err != nil {
			return err
		}
		for _, f := range files {
			id, name, ok := parseEnrollFileName(f)
			if !ok {
				return fmt.Errorf("cannot derive student id and name from %s, expected <id>_<name>.jpg", filepath.Base(f))
			}
			requests = append(requests, recognition.EnrollRequest{StudentID: id, Name: name, Class: class})
		}
	} else {
		files = []string{args[0]}
		requests = []recognition.EnrollRequest{{
			StudentID: mustGetString(cmd, "id"),
			Name:      mustGetString(cmd, "name"),
			Email:     mustGetString(cmd, "email"),
			Phone:     mustGetString(cmd, "phone"),
			Class:     class,
		}}
	}
	if len(files) == 0 {
		return errors.New("no png, jpg or jpeg images found")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	enroller := a.enroller()

	var bar *progressbar.ProgressBar
	if !jsonOutput && len(files) > 1 {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("students"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	// One at a time, each enrollment rewrites the gallery file.
	results := make([]enrollResult, len(files))
	failed := 0
	for i, file := range files {
		req := requests[i]
		results[i] = enrollResult{File: file, StudentID: req.StudentID, Name: req.Name}

		req.Image, err = os.ReadFile(file)
		if err == nil {
			_, err = enroller.Enroll(ctx, req)
		}
		if err != nil {
			results[i].Error = err.Error()
			failed++
		} else {
			results[i].Enrolled = true
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	if jsonOutput {
		return outputJSON(results)
	}

	fmt.Println()
	for _, r := range results {
		if r.Enrolled {
			fmt.Printf("  enrolled  %-12s %s\n", r.StudentID, r.Name)
		} else {
			fmt.Printf("  FAILED    %-12s %s: %s\n", r.StudentID, filepath.Base(r.File), r.Error)
		}
	}
	fmt.Printf("\nEnrolled %d of %d students\n", len(results)-failed, len(results))
	if failed == len(results) {
		return errors.New("no student was enrolled")
	}
	return nil
}
