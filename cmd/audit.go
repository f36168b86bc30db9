package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jmehdipour/rh-booking/internal/db"
	"github.com/jmehdipour/rh-booking/internal/repository"
	"github.com/jmehdipour/rh-booking/internal/service/audit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var failOnDuplicates bool

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report duplicate booking codes and repeat customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		store := repository.NewBookingStore(sqlDB, repository.NewBookingsRepository(sqlDB), repository.NewOutboxRepository())
		rep, err := audit.NewAuditor(store, log).Run(cmd.Context())
		if err != nil {
			return err
		}

		log.Info("audit finished",
			zap.Int("total", rep.Total),
			zap.Int("duplicate_codes", len(rep.DuplicateCodes)),
			zap.Int("duplicate_customers", len(rep.DuplicateCustomers)),
		)

		// records are omitted; the admin list shows them
		rep.Records = nil
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}

		if failOnDuplicates && !rep.Clean() {
			return fmt.Errorf("%d duplicate booking codes", len(rep.DuplicateCodes))
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().BoolVar(&failOnDuplicates, "fail-on-duplicates", false, "exit non-zero when a booking code is shared")
}
