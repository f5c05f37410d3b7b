package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kozaktomas/roll-call/internal/camera"
	"github.com/kozaktomas/roll-call/internal/live"
	"github.com/spf13/cobra"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run live recognition in the terminal",
	Long: `Run live face recognition on the camera and print who is in front of it.

With --dir, the images of a directory are replayed instead of the camera,
which is useful to check recognition without hardware. With --mark, the first
frame showing a known face is used to take attendance.`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().String("device", "", "Camera device (overrides CAMERA_DEVICE)")
	liveCmd.Flags().String("dir", "", "Replay images from a directory instead of the camera")
	liveCmd.Flags().Bool("loop", false, "Replay the directory forever")
	liveCmd.Flags().Bool("mark", false, "Take attendance on the first frame with a known face")
}

func runLive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var source camera.Source
	if dir := mustGetString(cmd, "dir"); dir != "" {
		source = &camera.DirectorySource{Dir: dir, Loop: mustGetBool(cmd, "loop")}
	} else {
		cam := a.cfg.Camera
		if device := mustGetString(cmd, "device"); device != "" {
			cam.Device = device
		}
		source = camera.NewWebcam(cam.Device, cam.Width, cam.Height)
	}

	pipeline := newPipeline(a, source)
	overlays, unsubscribe := pipeline.Subscribe()
	defer unsubscribe()

	if err := pipeline.Start(ctx); err != nil {
		return err
	}
	defer pipeline.Stop()
	fmt.Println("Live recognition running, press Ctrl+C to stop")

	mark := mustGetBool(cmd, "mark")
	last := ""
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !pipeline.Running() {
				fmt.Println("Stream ended")
				return nil
			}
		case o := <-overlays:
			var labels []string
			known := false
			for _, d := range o.Detections {
				labels = append(labels, d.Label)
				known = known || d.Known
			}
			line := strings.Join(labels, ", ")
			if line != last {
				fmt.Printf("%s  %d face(s): %s\n", o.Captured.Format("15:04:05"), len(o.Detections), line)
				last = line
			}
			if mark && known {
				return captureOnce(ctx, pipeline)
			}
		}
	}
}

// captureOnce takes attendance from the next camera frame.
func captureOnce(ctx context.Context, pipeline *live.Pipeline) error {
	report, err := pipeline.Capture(ctx)
	if err != nil {
		return fmt.Errorf("failed to take attendance: %w", err)
	}
	fmt.Printf("Attendance taken, saved as %s\n", report.ImagePath)
	for _, r := range report.Results {
		fmt.Printf("  %-12s %-30s %5.1f%%  %s\n", r.StudentID, r.Name, r.Confidence*100, r.Message)
	}
	return nil
}
