package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rickgao/market-alerts/internal/api"
	"github.com/rickgao/market-alerts/internal/app"
	"github.com/rickgao/market-alerts/internal/config"
)

func newMarketsCmd(configPath *string) *cobra.Command {
	var exchange string

	cmd := &cobra.Command{
		Use:   "markets",
		Short: "List markets known to the alerts service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithDefaults(cmd.Context(), *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tokens, err := app.TokenProvider(cfg.API)
			if err != nil {
				return err
			}

			client := api.NewClient(cfg.API.RestURL, tokens,
				api.WithTimeout(cfg.API.Timeout),
				api.WithPageSize(cfg.Markets.PageSize),
			)
			markets, err := client.GetAllMarkets(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXCHANGE\tSYMBOL\tPRICE\tAMOUNT\tACTIVE")
			shown := 0
			for _, m := range markets {
				if exchange != "" && m.Exchange.ID != exchange {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\n", m.Exchange.ID, m.Symbol, m.Precision.Price, m.Precision.Amount, m.Active)
				shown++
			}
			if err := w.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d markets\n", shown)
			return err
		},
	}
	cmd.Flags().StringVar(&exchange, "exchange", "", "only list markets on this exchange")
	return cmd
}
