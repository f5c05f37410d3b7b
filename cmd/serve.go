package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/kozaktomas/roll-call/internal/camera"
	"github.com/kozaktomas/roll-call/internal/constants"
	"github.com/kozaktomas/roll-call/internal/live"
	"github.com/kozaktomas/roll-call/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Roll Call web server.
The web server provides student enrollment, attendance from uploaded photos,
the live camera feed and attendance history.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("no-camera", false, "Disable the live camera endpoints")
}

// newPipeline creates the live pipeline over the configured camera device.
func newPipeline(a *app, source camera.Source) *live.Pipeline {
	return live.New(live.Options{
		Source:     source,
		Detector:   a.deps.Detector,
		Gallery:    a.gallery,
		Recorder:   a.attendance(),
		Tolerance:  a.cfg.Recognition.Tolerance,
		Downsample: a.cfg.Recognition.LiveDownsample,
		Model:      a.cfg.Recognition.LiveDetectionModel,
		Timeout:    time.Duration(a.cfg.Recognition.LiveFrameTimeout) * time.Second,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}

	fmt.Printf("Using %s database, %d students enrolled\n", a.ledger.Driver(), a.gallery.Len())

	services := web.Services{
		Ledger:     a.ledger,
		Gallery:    a.gallery,
		Images:     a.images,
		Enroller:   a.enroller(),
		Remover:    a.remover(),
		Attendance: a.attendance(),
	}
	if !mustGetBool(cmd, "no-camera") {
		cam := a.cfg.Camera
		services.Pipeline = newPipeline(a, camera.NewWebcam(cam.Device, cam.Width, cam.Height))
	}

	server := web.NewServer(a.cfg, services)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		daemon.SdNotify(false, daemon.SdNotifyStopping)

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	// Notify systemd we are ready, a no-op outside a systemd unit
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		fmt.Printf("Warning: sd_notify failed: %v\n", err)
	}

	fmt.Printf("Starting Roll Call on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
