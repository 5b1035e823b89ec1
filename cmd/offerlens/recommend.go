package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"offerlens/internal/ranking"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank offers by mean net return for a customer segment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg := cfgManager.Get()

		gender, _ := cmd.Flags().GetString("gender")
		age, _ := cmd.Flags().GetString("age")
		income, _ := cmd.Flags().GetString("income")
		n, _ := cmd.Flags().GetInt("n")
		seg, err := ranking.ParseSegment(gender, age, income)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if st == nil {
			return errors.New("recommend needs storage enabled")
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.LoadRows(ctx, true)
		if err != nil {
			return err
		}
		offers := ranking.Recommend(rows, seg, n)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"segment": seg, "offers": offers})
	},
}

func init() {
	recommendCmd.Flags().String("gender", "", "M, F or O")
	recommendCmd.Flags().String("age", "", "customer age")
	recommendCmd.Flags().String("income", "", "customer yearly income")
	recommendCmd.Flags().Int("n", ranking.DefaultTop, "number of offers to return")
	rootCmd.AddCommand(recommendCmd)
}
