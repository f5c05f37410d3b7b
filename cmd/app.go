package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database/sqlstore"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/gallery"
	"github.com/kozaktomas/roll-call/internal/recognition"
	"github.com/kozaktomas/roll-call/internal/uploads"
)

// app holds the stores and coordinators shared by the commands
type app struct {
	cfg     *config.Config
	ledger  *sqlstore.Store
	gallery *gallery.Store
	images  *uploads.Dir
	deps    recognition.Deps
}

// openApp loads the configuration, connects the ledger and loads the gallery.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	ledger, err := sqlstore.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
	}

	store, err := gallery.Open(cfg.Storage.GalleryPath, cfg.Embedding.Dim)
	if err != nil {
		ledger.Close()
		return nil, fmt.Errorf("failed to load face gallery: %w", err)
	}

	images, err := uploads.NewDir(cfg.Storage.UploadDir)
	if err != nil {
		ledger.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		ledger:  ledger,
		gallery: store,
		images:  images,
		deps: recognition.Deps{
			Detector: fingerprint.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim),
			Gallery:  store,
			Images:   images,
			Thresholds: facematch.Thresholds{
				Tolerance:        cfg.Recognition.Tolerance,
				AcceptConfidence: cfg.Recognition.AcceptConfidence,
				HighConfidence:   cfg.Recognition.HighConfidence,
			},
			DetectionModel: cfg.Recognition.DetectionModel,
		},
	}, nil
}

func (a *app) Close() {
	if err := a.ledger.Close(); err != nil {
		fmt.Printf("Warning: failed to close database: %v\n", err)
	}
}

func (a *app) enroller() *recognition.Enroller {
	return recognition.NewEnroller(a.deps, a.ledger)
}

func (a *app) remover() *recognition.Remover {
	return recognition.NewRemover(a.deps, a.ledger)
}

func (a *app) attendance() *recognition.AttendanceTaker {
	return recognition.NewAttendanceTaker(a.deps, a.ledger)
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
