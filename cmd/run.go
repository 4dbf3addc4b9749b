package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nardo758/Project-Spark-sub000/internal/pipeline"
	anthropicpkg "github.com/Nardo758/Project-Spark-sub000/pkg/anthropic"
)

var runNoPolish bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Convert unprocessed signals into opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var polisher pipeline.Polisher
		if cfg.Anthropic.Key != "" && !runNoPolish {
			client := anthropicpkg.NewClient(cfg.Anthropic.Key)
			polisher = anthropicpkg.NewPolisher(client, cfg.Anthropic.Model)
		} else {
			zap.L().Info("run: polishing disabled, keeping generated copy")
		}

		p := pipeline.New(cfg.Pipeline, st, polisher)
		result, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "run pipeline")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runNoPolish, "no-polish", false, "skip LLM copy polishing even when an API key is configured")
	rootCmd.AddCommand(runCmd)
}
