package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/analysis-cli/internal/model"
	"github.com/sells-group/analysis-cli/internal/pipeline"
)

var (
	runKind   string
	runPeriod string
	runOut    string
)

var runCmd = &cobra.Command{
	Use:   "run <description>",
	Short: "Run a single analysis from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := model.AnalysisRequest{
			Description: strings.Join(args, " "),
			Kind:        model.Kind(runKind),
			Period:      model.SearchPeriod(runPeriod),
		}
		if !req.Kind.Valid() {
			return eris.Errorf("unknown analysis kind %q (valid: company_profile, product_snapshot)", runKind)
		}
		if !req.Period.Valid() {
			return eris.Errorf("unknown search period %q (valid: day, week, month, year, all)", runPeriod)
		}

		p, err := buildPipeline(cfg)
		if err != nil {
			return err
		}

		result, err := p.Run(cmd.Context(), req)
		if err != nil {
			var stageErr *pipeline.StageError
			if errors.As(err, &stageErr) {
				return eris.New(stageErr.Message())
			}
			return err
		}

		out := runOut
		if out == "" {
			out = result.PDF.Filename
		}
		if err := os.WriteFile(out, result.PDF.Bytes, 0o644); err != nil {
			return eris.Wrap(err, "write pdf")
		}

		fmt.Println(result.Markdown)
		fmt.Printf("\n-- %d Tokens, %.4f USD / %.4f EUR, PDF: %s\n",
			result.Usage.TotalTokens, result.CostUSD, result.CostEUR, out)

		zap.L().Info("run complete",
			zap.String("run_id", result.ID),
			zap.String("pdf", out),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runKind, "kind", string(model.KindCompanyProfile), "analysis kind (company_profile, product_snapshot)")
	runCmd.Flags().StringVar(&runPeriod, "period", string(model.PeriodAll), "search period (day, week, month, year, all)")
	runCmd.Flags().StringVar(&runOut, "out", "", "PDF output path (default: generated filename)")
	rootCmd.AddCommand(runCmd)
}
