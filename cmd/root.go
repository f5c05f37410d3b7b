package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roll-call",
	Short: "Face recognition attendance tracking",
	Long: `Roll Call registers students from a single-face photo and marks their
attendance from classroom photos or a live camera, at most once per day.
Face embeddings come from an external embedding server; students and
attendance are kept in SQLite, PostgreSQL or MySQL.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
