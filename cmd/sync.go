package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aashish23092/conciliador/client"
	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/service"
	"github.com/Aashish23092/conciliador/store"
)

func (a *App) newSyncCommand() *cobra.Command {
	var (
		force   bool
		dryRun  bool
		cliente string
	)

	cmd := &cobra.Command{
		Use:   "sync <workbook.xlsx>",
		Short: "Upsert workbook rows into the expediente store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := client.NewWorkbookClient().ReadRows(args[0])
			if err != nil {
				return err
			}

			publisher := client.NewPublisher(a.cfg.Kafka)
			defer publisher.Close()

			var summary dto.RunSummary
			err = a.withStore(func(st store.Store) error {
				summary = a.syncService(st, publisher).Sync(cmd.Context(), cliente, rows, service.MergeOptions{Force: force, DryRun: dryRun})
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.DryRun {
				fmt.Fprintln(out, "dry run: no changes written")
			}
			fmt.Fprintf(out, "inserted %d, updated %d, skipped %d, failed %d (%s)\n",
				summary.Inserted, summary.Updated, summary.Skipped, summary.Failed, summary.Duration)
			for _, e := range summary.Errors {
				fmt.Fprintf(out, "  %s %s: %s\n", e.CaseID, e.OrderID, e.Message)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d rows failed to sync", summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace data and merge order lines of existing expedientes")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report decisions without writing")
	cmd.Flags().StringVar(&cliente, "client", "", "client id (defaults to client_id from config)")
	return cmd
}

func (a *App) newExportCommand() *cobra.Command {
	var cliente string

	cmd := &cobra.Command{
		Use:   "export <workbook.xlsx>",
		Short: "Write every stored order line to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cliente == "" {
				cliente = a.cfg.ClientID
			}

			var rows []dto.RawRow
			err := a.withStore(func(st store.Store) error {
				var err error
				rows, err = a.syncService(st, nil).Export(cmd.Context(), cliente)
				return err
			})
			if err != nil {
				return err
			}

			if err := client.NewWorkbookClient().WriteRows(args[0], rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", len(rows), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&cliente, "client", "", "client id (defaults to client_id from config)")
	return cmd
}
