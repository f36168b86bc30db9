package cmd

import (
	"fmt"

	"github.com/jmehdipour/rh-booking/internal/db"
	"github.com/jmehdipour/rh-booking/internal/repository"
	"github.com/jmehdipour/rh-booking/internal/service/intake"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo bookings",
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
		svc := intake.NewFromConfig(cfg, store, log.Named("seed"))

		for _, s := range demoBookings {
			b, err := svc.Submit(cmd.Context(), s)
			if err != nil {
				return fmt.Errorf("seed %q: %w", s.Name, err)
			}
			log.Info("seeded booking", zap.String("code", b.BookingCode), zap.String("phone", b.PhoneE164))
		}
		return nil
	},
}

// demoBookings go through the same intake path as real submissions.
var demoBookings = []intake.Submission{
	{Name: "Omar Ali", Phone: "01119065057", Message: "Morning visit please"},
	{Name: "Sara Hassan", Phone: "0100 123 4567"},
	{Name: "Mona Adel", Phone: "+20 122 345 6789", Message: "Call after 5pm"},
	{Name: "Karim Nabil", Phone: "01512345678"},
	{Name: "James Smith", Phone: "+1 650 253 0000", Region: "US"},
}
