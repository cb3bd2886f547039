package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aashish23092/conciliador/client"
	"github.com/Aashish23092/conciliador/dto"
	"github.com/Aashish23092/conciliador/service"
	"github.com/Aashish23092/conciliador/store"
)

func (a *App) newCompareCommand() *cobra.Command {
	var (
		cliente string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "compare <workbook.xlsx>",
		Short: "Report the differences between a workbook and the expediente store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cliente == "" {
				cliente = a.cfg.ClientID
			}
			rows, err := client.NewWorkbookClient().ReadRows(args[0])
			if err != nil {
				return err
			}

			var report *dto.CompareReport
			err = a.withStore(func(st store.Store) error {
				var err error
				report, err = service.NewExpedienteService(st).Compare(cmd.Context(), cliente, rows)
				return err
			})
			if err != nil {
				return err
			}

			a.logger.Info().
				Int("expedientes_nuevos", len(report.ExpedientesNuevos)).
				Int("expedientes_faltantes", len(report.ExpedientesFaltantes)).
				Int("pedidos_nuevos", len(report.PedidosNuevos)).
				Int("pedidos_faltantes", len(report.PedidosFaltantes)).
				Int("pedidos_diferentes", len(report.PedidosDiferentes)).
				Msg("comparison finished")
			fmt.Fprint(cmd.OutOrStdout(), service.FormatCompareReport(report))

			if output != "" {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nreport written to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cliente, "client", "", "client id (defaults to client_id from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the report as JSON to this file")
	return cmd
}
