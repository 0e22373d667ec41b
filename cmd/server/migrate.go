package main

import (
	"log"

	"time-tracking-api/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// InitDB migrates as part of opening the store.
		if err := database.InitDB(cfg.Database.Path, cfg.Database.LogLevel); err != nil {
			return err
		}
		log.Printf("Database %s is up to date", cfg.Database.Path)
		return nil
	},
}
