package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soldwatch/harvest-cli/internal/store"
)

var (
	salesSuburb string
	salesLimit  int
	salesOffset int
)

var salesCmd = &cobra.Command{
	Use:   "sales",
	Short: "List stored sales",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		sales, err := st.ListSales(cmd.Context(), store.SaleFilter{
			Suburb: salesSuburb,
			Limit:  salesLimit,
			Offset: salesOffset,
		})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(sales, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	salesCmd.Flags().StringVar(&salesSuburb, "suburb", "", "filter by suburb")
	salesCmd.Flags().IntVar(&salesLimit, "limit", 100, "maximum rows to return")
	salesCmd.Flags().IntVar(&salesOffset, "offset", 0, "rows to skip")
	rootCmd.AddCommand(salesCmd)
}
