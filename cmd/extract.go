package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aashish23092/conciliador/client"
	"github.com/Aashish23092/conciliador/service"
)

func (a *App) newExtractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <orders-dir> <workbook.xlsx> <report.txt>",
		Short: "Append purchase order lines to the workbook and write a duplicate report",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ordersDir, workbookPath, reportPath := args[0], args[1], args[2]

			docs, err := service.LoadDocuments(ordersDir)
			if err != nil {
				return err
			}
			a.logger.Info().Str("dir", ordersDir).Int("documents", len(docs)).Msg("extracting purchase orders")

			workbook := client.NewWorkbookClient()
			existing, err := workbook.ReadRows(workbookPath)
			if err != nil {
				return err
			}

			svc := service.NewOrderService(service.NewPDFProcessor(), a.cfg.Extraction, a.metrics, a.logger)
			res, err := svc.Extract(cmd.Context(), docs, existing)
			if err != nil {
				return err
			}

			if len(res.NewRows) > 0 {
				if err := workbook.AppendRows(workbookPath, res.NewRows); err != nil {
					return err
				}
			}
			if err := os.WriteFile(reportPath, []byte(service.FormatExtractionReport(res)), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			a.logger.Info().
				Str("run_id", res.RunID).
				Int("new_rows", len(res.NewRows)).
				Int("suppressed", len(res.Suppressed)).
				Int("duplicate_groups", len(res.Duplicates)).
				Msg("extraction finished")
			fmt.Fprintf(cmd.OutOrStdout(), "%d new rows, %d duplicates skipped, %d repeated cases; report written to %s\n",
				len(res.NewRows), len(res.Suppressed), len(res.Duplicates), reportPath)
			return nil
		},
	}
}
