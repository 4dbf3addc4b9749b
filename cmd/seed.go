package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nardo758/Project-Spark-sub000/internal/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed <signals.json>",
	Short: "Import raw signals from a JSON file",
	Long:  "Reads a JSON array of raw signals and inserts them. Signals already present (same source and source id) are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read signals file")
		}

		var signals []model.RawSignal
		if err := json.Unmarshal(data, &signals); err != nil {
			return eris.Wrap(err, "parse signals file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		inserted := 0
		for i := range signals {
			sig := &signals[i]
			if sig.Source == "" || sig.SourceID == "" {
				zap.L().Warn("seed: skipping signal without source identity", zap.Int("index", i))
				continue
			}
			if err := st.InsertSignal(ctx, sig); err != nil {
				return eris.Wrapf(err, "insert signal %s/%s", sig.Source, sig.SourceID)
			}
			inserted++
		}

		fmt.Fprintf(os.Stdout, "imported %d of %d signals\n", inserted, len(signals))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
