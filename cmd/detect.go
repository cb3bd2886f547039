package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aashish23092/conciliador/client"
	"github.com/Aashish23092/conciliador/service"
)

func (a *App) newDetectCommand() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "detect <invoices-dir> <workbook.xlsx>",
		Short: "Find order and case numbers in invoices and mark workbook rows as invoiced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoicesDir, workbookPath := args[0], args[1]

			docs, err := service.LoadDocuments(invoicesDir)
			if err != nil {
				return err
			}
			a.logger.Info().Str("dir", invoicesDir).Int("documents", len(docs)).Msg("detecting invoice references")

			svc := service.NewInvoiceService(service.NewPDFProcessor(), a.cfg.Extraction, a.metrics, a.logger)
			res, err := svc.Detect(cmd.Context(), docs)
			if err != nil {
				return err
			}

			if logFile != "" {
				if err := os.WriteFile(logFile, []byte(service.FormatDetectionLog(res)), 0o644); err != nil {
					return fmt.Errorf("write log: %w", err)
				}
			}

			workbook := client.NewWorkbookClient()
			rows, err := workbook.ReadRows(workbookPath)
			if err != nil {
				return err
			}
			updated, changed := service.NewStatusService(a.logger).ApplyDetection(rows, res)
			if changed > 0 {
				if err := workbook.WriteRows(workbookPath, updated); err != nil {
					return err
				}
			}

			a.logger.Info().
				Str("run_id", res.RunID).
				Int("orders", len(res.Orders)).
				Int("cases", len(res.Cases)).
				Int("invalid", len(res.Invalid())).
				Int("conflicts", len(res.Index.Conflicts)).
				Int("rows_updated", changed).
				Msg("detection finished")
			fmt.Fprintf(cmd.OutOrStdout(), "%d orders and %d cases found in %d invoices (%d invalid); %d rows updated\n",
				len(res.Orders), len(res.Cases), len(res.Documents), len(res.Invalid()), changed)
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "procesamiento_facturas.log", "processing log path (empty disables it)")
	return cmd
}
