/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/logger"
	"github.com/llm-d-incubation/video-cache-optimizer/internal/metrics"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/loader"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/manager"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/placement"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/solver"
)

// process exit codes
const (
	ExitOK          = 0
	ExitFatal       = 1
	ExitNotAccepted = 2
)

func run(ctx context.Context, args []string) int {
	cmd := newRootCommand(afero.NewOsFs(), os.Stdout)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	logger.SyncLogger()
	return exitCode(err)
}

func exitCode(err error) int {
	var rejected *solver.NoAcceptableSolutionError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &rejected):
		return ExitNotAccepted
	default:
		return ExitFatal
	}
}

func newRootCommand(fs afero.Fs, out io.Writer) *cobra.Command {
	v := config.NewViper()
	cmd := &cobra.Command{
		Use:           "placer",
		Short:         "Place videos in capacity-limited caches to minimize request latency",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logger.InitLogger()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return optimize(cmd.Context(), fs, cfg, out)
		},
	}
	cmd.SetOut(out)
	if err := config.BindFlags(cmd.Flags(), v); err != nil {
		panic(err)
	}
	cmd.AddCommand(newScoreCommand(fs, out))
	return cmd
}

func optimize(ctx context.Context, fs afero.Fs, cfg *config.Config, out io.Writer) error {
	log := logger.Log
	if cfg.SolverLogFile != "" {
		fileLog, closer, err := logger.NewFileLogger(cfg.SolverLogFile)
		if err != nil {
			return err
		}
		defer func() { _ = closer() }()
		log = fileLog
	}

	orchestrator, err := solver.NewOrchestratorFromSpec(&cfg.Optimizer, log)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	emitter := metrics.InitMetricsAndEmitter(registry)
	res, err := manager.NewManager(cfg, orchestrator).WithFs(fs).WithEmitter(emitter).Run(ctx)

	if cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cfg.MetricsFile, registry); werr != nil {
			logger.Log.Errorw("failed to write metrics", "path", cfg.MetricsFile, "error", werr)
		}
	}
	if err != nil {
		var rejected *solver.NoAcceptableSolutionError
		if errors.As(err, &rejected) {
			fmt.Fprintf(out, "no acceptable solution: outcome=%s status=%s gap=%g\n",
				rejected.Outcome, rejected.Status, rejected.Gap)
		}
		return err
	}
	fmt.Fprintf(out, "%s: outcome=%s objective=%g gap=%g score=%d\n", cfg.OutputPath,
		res.Solution.Outcome, res.Solution.Objective, res.Solution.Gap, res.Report.Plan.Score)
	return nil
}

func newScoreCommand(fs afero.Fs, out io.Writer) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Validate a plan file against a dataset and print its score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataset, planPath := v.GetString("dataset"), v.GetString("plan")
			if dataset == "" || planPath == "" {
				return fmt.Errorf("both --dataset and --plan must be set")
			}
			opts := loader.Options{MaxRequests: v.GetInt("max-requests"), Truncation: config.FirstK}
			inst, err := loader.LoadFS(cmd.Context(), fs, dataset, opts)
			if err != nil {
				return err
			}
			plan, err := placement.ReadFile(fs, planPath)
			if err != nil {
				return err
			}
			if err := plan.Validate(inst); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d\n", placement.Score(inst, plan))
			return nil
		},
	}
	cmd.Flags().StringP("dataset", "d", "", "dataset file the plan was computed for")
	cmd.Flags().StringP("plan", "p", "", "plan file to score")
	cmd.Flags().Int("max-requests", 0, "score only the first requests, 0 for all")
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}
