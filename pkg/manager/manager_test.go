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

package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/metrics"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/config"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/formulation"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/loader"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/mip"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/placement"
	"github.com/llm-d-incubation/video-cache-optimizer/pkg/solver"
)

const (
	// 2 videos (sizes 3, 2), 1 cache of capacity 4, one request for video 0
	twoVideos = "2 1 1 1 4\n3 2\n10 1\n0 2\n0 0 5\n"

	// 2 videos of size 3 competing for 1 cache of capacity 4
	competingVideos = "2 1 2 1 4\n3 3\n10 1\n0 2\n0 0 5\n1 0 4\n"

	example = `5 2 4 3 100
50 50 80 30 110
1000 3
0 100
2 200
1 300
500 0
3 0 1500
0 1 1000
4 0 500
1 0 1000
`
)

// a backend claiming optimality with fewer values than the model has variables
type shortSolutionBackend struct{}

func (b *shortSolutionBackend) Name() string {
	return "short"
}

func (b *shortSolutionBackend) Solve(_ context.Context, _ *mip.Problem, _ mip.Params) (*mip.Result, error) {
	return &mip.Result{Status: mip.StatusOptimal, SolutionCount: 1, ObjectiveValue: 40, BestBound: 40,
		Solution: []float64{1}}, nil
}

var _ = Describe("Manager", func() {
	var (
		ctx      context.Context
		fs       afero.Fs
		cfg      *config.Config
		registry *prometheus.Registry
	)

	newManager := func() *Manager {
		o, err := solver.NewOrchestratorFromSpec(&cfg.Optimizer, nil)
		Expect(err).NotTo(HaveOccurred())
		return NewManager(cfg, o).WithFs(fs).WithEmitter(metrics.InitMetricsAndEmitter(registry))
	}

	writeDataset := func(data string) {
		Expect(afero.WriteFile(fs, cfg.DatasetPath, []byte(data), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		fs = afero.NewMemMapFs()
		Expect(fs.MkdirAll("/work", 0o755)).To(Succeed())
		registry = prometheus.NewRegistry()

		cfg = config.NewDefaultConfig()
		cfg.DatasetPath = "/work/dataset.in"
		cfg.OutputPath = "/work/videos.out"
		cfg.ReportFile = "/work/report.yaml"
		cfg.Optimizer.TimeLimit = time.Minute
	})

	Context("when the solve is accepted", func() {
		It("writes the plan, the model and the report", func() {
			writeDataset(twoVideos)
			cfg.ModelFile = "/work/videos.mps"

			res, err := newManager().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Plan.Assignments()).To(Equal([]placement.CacheAssignment{{Cache: 0, Videos: []int{0}}}))
			Expect(res.Solution.Outcome).To(Equal(solver.Optimal))
			Expect(res.Solution.Objective).To(BeNumerically("~", 40, 1e-6))

			By("writing the plan file")
			data, err := afero.ReadFile(fs, cfg.OutputPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("1\n0 0\n"))

			By("writing the model file")
			model, err := afero.ReadFile(fs, cfg.ModelFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(model)).To(HavePrefix("NAME videos\n"))
			Expect(string(model)).To(ContainSubstring("CacheCap_0"))

			By("writing the report")
			report, err := ReadReport(fs, cfg.ReportFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Dataset.Videos).To(Equal(2))
			Expect(report.Dataset.Truncation).To(Equal("first"))
			Expect(report.Model).To(Equal(formulation.Stats{PlacementVars: 2, ServiceVars: 1, CapacityRows: 1, LinkRows: 1, ServiceRows: 1}))
			Expect(report.Solve.Outcome).To(Equal("Optimal"))
			Expect(report.Solve.Backend).To(Equal("branchbound"))
			Expect(report.Solve.WarmStart).To(BeTrue())
			Expect(report.Plan).NotTo(BeNil())
			Expect(report.Plan.Path).To(Equal(cfg.OutputPath))
			Expect(report.Plan.Score).To(Equal(8000))
			Expect(report.Error).To(BeEmpty())

			By("emitting metrics")
			count, err := testutil.GatherAndCount(registry, "placer_solve_outcomes_total", "placer_plan_score")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})

		It("applies the request cap", func() {
			writeDataset(example)
			cfg.MaxRequests = 1

			res, err := newManager().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Instance.NumRequests()).To(Equal(1))
			Expect(res.Report.Dataset.DeclaredRequests).To(Equal(4))
			// only request 0 (video 3, count 1500) is considered
			Expect(res.Plan.Has(3, 0)).To(BeTrue())
			Expect(res.Report.Plan.Score).To(Equal(900000))
		})

		It("solves the example without a warm start", func() {
			writeDataset(example)
			cfg.Optimizer.WarmStart = false

			res, err := newManager().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Solution.Objective).To(BeNumerically("~", 2250000, 1e-3))
			Expect(res.Report.Solve.WarmStart).To(BeFalse())
			Expect(res.Plan.Validate(res.Instance)).To(Succeed())
			Expect(res.Report.Plan.Score).To(Equal(562500))
		})
	})

	Context("when the solve is rejected", func() {
		It("writes no plan and reports the outcome", func() {
			writeDataset(competingVideos)
			cfg.Optimizer.TimeLimit = time.Nanosecond
			cfg.Optimizer.WarmStart = true

			res, err := newManager().Run(ctx)
			var rejected *solver.NoAcceptableSolutionError
			Expect(errors.As(err, &rejected)).To(BeTrue())
			Expect(rejected.Outcome).To(Equal(solver.FeasibleOutsideGap))
			Expect(res.Plan).To(BeNil())

			exists, err := afero.Exists(fs, cfg.OutputPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())

			report, err := ReadReport(fs, cfg.ReportFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Solve.Outcome).To(Equal("FeasibleOutsideGap"))
			Expect(report.Solve.Status).To(Equal("TimeLimit"))
			Expect(report.Plan).To(BeNil())
			Expect(report.Error).To(ContainSubstring("no acceptable solution"))
		})
	})

	Context("when the dataset is malformed", func() {
		It("fails before solving", func() {
			writeDataset("2 1 1 1\n")

			res, err := newManager().Run(ctx)
			var malformed *loader.MalformedInputError
			Expect(errors.As(err, &malformed)).To(BeTrue())
			Expect(res.Instance).To(BeNil())
			Expect(res.Solution).To(BeNil())

			report, err := ReadReport(fs, cfg.ReportFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Error).To(ContainSubstring("malformed input at line 1"))
		})

		It("fails when the dataset is missing", func() {
			_, err := newManager().Run(ctx)
			Expect(err).To(HaveOccurred())
			Expect(ErrorType(err)).To(Equal("Internal"))
		})
	})

	Context("when the backend solution does not fit the model", func() {
		It("reports a decode error and writes no plan", func() {
			writeDataset(twoVideos)
			backend := &shortSolutionBackend{}
			m := NewManager(cfg, solver.NewOrchestrator(&cfg.Optimizer, backend)).
				WithFs(fs).WithEmitter(metrics.InitMetricsAndEmitter(registry))

			res, err := m.Run(ctx)
			Expect(err).To(MatchError(ContainSubstring("values for")))
			Expect(res.Plan).To(BeNil())
			exists, err := afero.Exists(fs, cfg.OutputPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())

			count, err := testutil.GatherAndCount(registry, "placer_errors_total")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
			families, err := registry.Gather()
			Expect(err).NotTo(HaveOccurred())
			for _, family := range families {
				if family.GetName() != "placer_errors_total" {
					continue
				}
				labels := family.GetMetric()[0].GetLabel()
				Expect(labels).To(ContainElement(HaveField("GetValue()", "decode")))
			}
		})
	})

	Context("when optimizing a loaded instance", func() {
		It("does not write any file", func() {
			inst, err := loader.Read(strings.NewReader(twoVideos), loader.Options{})
			Expect(err).NotTo(HaveOccurred())
			cfg.ReportFile = ""

			res, err := newManager().Optimize(ctx, inst)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Plan.NumCaches()).To(Equal(1))

			entries, err := afero.ReadDir(fs, "/work")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})

	DescribeTable("classifying errors",
		func(err error, want string) {
			Expect(ErrorType(err)).To(Equal(want))
		},
		Entry("oversized body", &loader.MalformedInputError{Line: 3, Reason: "unreadable", Err: &http.MaxBytesError{Limit: 14}}, "BodyTooLarge"),
		Entry("malformed input", fmt.Errorf("load: %w", &loader.MalformedInputError{Line: 1, Reason: "header"}), "MalformedInput"),
		Entry("unavailable solver", &solver.SolverUnavailableError{Backend: "x", Err: solver.ErrUnknownBackend}, "SolverUnavailable"),
		Entry("rejected solve", &solver.NoAcceptableSolutionError{Outcome: solver.NoSolutionFound}, "NoAcceptableSolution"),
		Entry("inconsistent instance", formulation.ErrInconsistentInstance, "InconsistentInstance"),
		Entry("capacity exceeded", placement.ErrCapacityExceeded, "CapacityExceeded"),
		Entry("cancelled", context.Canceled, "Cancelled"),
		Entry("other", errors.New("boom"), "Internal"),
	)
})
