package cmd

import (
	"encoding/json"

	"github.com/jmehdipour/rh-booking/internal/phone"
	"github.com/spf13/cobra"
)

var phoneRegion string

var phoneCmd = &cobra.Command{
	Use:   "phone [number...]",
	Short: "Normalize phone numbers (sample list when none given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadRuntime()
		if err != nil {
			return err
		}

		inputs := args
		if len(inputs) == 0 {
			inputs = phone.SampleInputs
		}
		n := phone.NewNormalizer(cfg.Booking.HomeRegion)

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, d := range n.Diagnose(inputs, phoneRegion) {
			if err := enc.Encode(d); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	phoneCmd.Flags().StringVar(&phoneRegion, "region", "", "default region (ISO 3166-1 alpha-2), home region when empty")
}
