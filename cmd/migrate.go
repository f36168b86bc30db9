package cmd

import (
	"fmt"

	"github.com/jmehdipour/rh-booking/internal/db"
	"github.com/jmehdipour/rh-booking/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (dev: DROP & CREATE tables)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		stmts, err := migrations.Statements()
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}

		// session variables stick to one connection
		ctx := cmd.Context()
		conn, err := sqlDB.Connx(ctx)
		if err != nil {
			return fmt.Errorf("acquire conn: %w", err)
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
			return fmt.Errorf("disable fk checks: %w", err)
		}
		for i, stmt := range stmts {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				_, _ = conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
				return fmt.Errorf("exec migration statement %d: %w", i+1, err)
			}
		}
		if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
			return fmt.Errorf("enable fk checks: %w", err)
		}

		log.Info("migration complete", zap.Int("statements", len(stmts)))
		return nil
	},
}
