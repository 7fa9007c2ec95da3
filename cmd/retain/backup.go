package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfield/retain/internal/config"
)

// NewBackupCmd creates the backup command
func NewBackupCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a compressed backup of the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cfg())
			if err != nil {
				return err
			}
			defer app.Close()

			snapshot, err := app.Backups.Snapshot(app.DB.Path())
			if err != nil {
				return err
			}
			res := <-app.Backups.CreateBackup(snapshot, app.Collection.Now())
			if res.Err != nil {
				return fmt.Errorf("backup failed: %w", res.Err)
			}
			fmt.Printf("Backup created: %s\n", res.Path)
			return nil
		},
	}
}
