package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/afflux/partner-service/internal/database"
)

// partnersCmd represents the partners command
var partnersCmd = &cobra.Command{
	Use:   "partners",
	Short: "List configured partners",
	RunE:  runPartners,
}

func init() {
	rootCmd.AddCommand(partnersCmd)
}

func runPartners(cmd *cobra.Command, args []string) error {
	store := database.NewStore(db)

	configs, err := store.ListPartnerConfigs(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list partners: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTIVE\tDATE FORMAT\tTIMEZONE")
	for _, cfg := range configs {
		tz := cfg.Timezone
		if tz == "" {
			tz = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n",
			cfg.PartnerID, cfg.PartnerName, cfg.IsActive, cfg.DateFormat, tz)
	}
	return w.Flush()
}
