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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/logger"
	"github.com/llm-d-incubation/video-cache-optimizer/internal/metrics"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/rest"
)

// create and run a REST API optimizer server
//   - listens on VCO_HOST:VCO_PORT; configuration provides the per-request defaults
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newServerCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}

func newServerCommand() *cobra.Command {
	v := config.NewViper()
	cmd := &cobra.Command{
		Use:          "placer-server",
		Short:        "Serve video placement optimization over REST",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := logger.InitLogger(); err != nil {
				return err
			}
			defer logger.SyncLogger()

			cfg, err := config.Decode(v)
			if err != nil {
				return err
			}
			if err := cfg.ValidateLoading(); err != nil {
				return err
			}
			if err := cfg.Optimizer.Validate(); err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			emitter := metrics.InitMetricsAndEmitter(registry)
			return rest.NewOptimizerServer(cfg, registry, emitter).Run(cmd.Context())
		},
	}
	if err := config.BindFlags(cmd.Flags(), v); err != nil {
		panic(err)
	}
	return cmd
}
