package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aristath/frontier/internal/modules/optimization"
)

type solveOptions struct {
	file   string
	points int
	output string
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	opts := &solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a problem file and print its turning points and frontier portfolios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", opts.output)
			}

			req, err := loadRequest(opts.file)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("points") {
				req.Points = opts.points
			}

			log := root.logger(cmd)
			result, err := root.service(log).Solve(cmd.Context(), req)
			if err != nil {
				return err
			}

			return writeResult(cmd.OutOrStdout(), result, opts.output)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "problem file (YAML or JSON)")
	cmd.Flags().IntVar(&opts.points, "points", 0, "number of frontier samples (overrides the file)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json or yaml")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func writeResult(w io.Writer, result optimization.OptimizationResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, result)
	}
}

func writeText(w io.Writer, result optimization.OptimizationResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Turning points (%d)\n", len(result.TurningPoints))
	fmt.Fprintf(tw, "#\tlambda\treturn\trisk\t%s\t\n", strings.Join(result.Assets, "\t"))
	for i, tp := range result.TurningPoints {
		lambda := "-"
		if tp.Lambda != nil {
			lambda = fmt.Sprintf("%.6f", *tp.Lambda)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%.6f\t%s\t\n", i, lambda, tp.Return, tp.Risk, weightColumns(result.Assets, tp.Weights))
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Portfolio\treturn\trisk\tsharpe\t%s\t\n", strings.Join(result.Assets, "\t"))
	writePortfolioRow(tw, "max sharpe", result.Assets, result.MaxSharpe)
	writePortfolioRow(tw, "min variance", result.Assets, result.MinVariance)
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Frontier samples\t%d\t\n", len(result.Frontier))

	return tw.Flush()
}

func writePortfolioRow(w io.Writer, name string, assets []string, p optimization.PortfolioResult) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", name, optional(p.Return), optional(p.Risk), optional(p.Sharpe), weightColumns(assets, p.Weights))
}

func weightColumns(assets []string, weights map[string]float64) string {
	cols := make([]string, len(assets))
	for i, a := range assets {
		cols[i] = fmt.Sprintf("%.4f", weights[a])
	}
	return strings.Join(cols, "\t")
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.6f", *v)
}
