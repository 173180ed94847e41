package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/aouyang1/go-olsdiag"
	"github.com/aouyang1/go-olsdiag/config"
	"github.com/aouyang1/go-olsdiag/dataset"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// missing .env is fine, the environment is used as is
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "olsdiag",
		Short:        "Fit and diagnose an OLS regression on annual indicators",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newDescribeCmd(),
		newPredictCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	hopt := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, hopt))
	}
	return slog.New(slog.NewJSONHandler(w, hopt))
}

func newRunCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Screen, fit, diagnose and evaluate the configured regression, then save the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr(), cfg.Logging))
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "path to a yaml config file")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	ds, err := cfg.Source.Dataset(ctx)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "loaded dataset", "location", cfg.Source.Location, "rows", ds.Len(), "columns", len(ds.Columns()))

	a, err := olsdiag.New(cfg.Options(logger))
	if err != nil {
		return err
	}
	res, err := a.Run(ctx, ds)
	if err != nil {
		if res != nil {
			// screening of a failed fit
			if perr := res.TablePrint(out, "", "  "); perr != nil {
				logger.ErrorContext(ctx, "unable to print screening", "error", perr)
			}
		}
		return err
	}
	if err := res.TablePrint(out, "", "  "); err != nil {
		return err
	}

	m, err := res.Model()
	if err != nil {
		return err
	}
	if err := olsdiag.SaveModel(cfg.Output.ModelPath, m); err != nil {
		return err
	}
	logger.InfoContext(ctx, "saved model", "path", cfg.Output.ModelPath, "id", m.ID)

	if cfg.Output.PlotPath != "" {
		if err := olsdiag.PlotAnalysis(cfg.Output.PlotPath, res); err != nil {
			return err
		}
		logger.InfoContext(ctx, "saved plot", "path", cfg.Output.PlotPath)
	}
	return nil
}

func newDescribeCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print summary statistics of the configured source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			ds, err := cfg.Source.Dataset(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := ds.Describe()
			if err != nil {
				return err
			}
			return summary.TablePrint(cmd.OutOrStdout(), "", "  ")
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "path to a yaml config file")
	return cmd
}

func newPredictCmd() *cobra.Command {
	var modelPath, input string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the target of every row of an input table with a saved model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return predict(cmd.Context(), modelPath, input, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&modelPath, "model", "m", "model.json", "path to a saved model")
	cmd.Flags().StringVarP(&input, "input", "i", "", "csv or xlsx table holding the model features")
	cmd.MarkFlagRequired("input")
	return cmd
}

func predict(ctx context.Context, modelPath, input string, out io.Writer) error {
	m, err := olsdiag.LoadModel(modelPath)
	if err != nil {
		return err
	}
	p, err := olsdiag.NewFromModel(m)
	if err != nil {
		return err
	}
	ds, err := dataset.Load(ctx, input, nil)
	if err != nil {
		return err
	}
	predicted, err := p.PredictDataset(ds)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(out, "index,%s\n", p.Target()); err != nil {
		return err
	}
	for i, idx := range ds.Index() {
		if _, err := fmt.Fprintf(out, "%d,%s\n", idx, strconv.FormatFloat(predicted[i], 'g', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}
