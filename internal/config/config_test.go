package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/limaJavier/courseopt/pkg/model"
)

func writeConfig(content string) string {
	path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

func setEnv(key, value string) {
	previous, existed := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if existed {
			_ = os.Setenv(key, previous)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = Describe("Load", func() {
	Context("without a config file", func() {
		It("should fall back to defaults", func() {
			cfg, err := Load("")

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.TotalCourses).To(Equal(10))
			Expect(cfg.Weights).To(Equal(model.DefaultWeights))
			Expect(cfg.Tracks).To(Equal(model.ReferenceTracks()))
			Expect(cfg.Solver.Name).To(Equal("branchbound"))
			Expect(cfg.Solver.TimeLimit).To(BeZero())
			Expect(cfg.Output.Format).To(Equal("text"))
			Expect(cfg.Log).To(Equal(LogConfig{Level: "info", Format: "console"}))
		})
	})

	Context("with a config file", func() {
		It("should read weights, tracks and solver settings", func() {
			path := writeConfig(`
total_courses: 4
weights:
  rating: 1
  interest: 0
tracks:
  - id: systems
    name: Systems
    required: [CS-6200]
    rules:
      - name: core
        at_least: 2
        courses: [CS-6210, CS-6250, CS-6290]
solver:
  name: glpk
  time_limit: 30s
  paths:
    glpsol: /opt/glpk/bin/glpsol
`)

			cfg, err := Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.TotalCourses).To(Equal(4))
			Expect(cfg.Weights.Rating).To(Equal(1.0))
			Expect(cfg.Weights.Interest).To(BeZero())
			Expect(cfg.Weights.Difficulty).To(Equal(model.DefaultWeights.Difficulty))
			Expect(cfg.Tracks).To(Equal([]model.Track{{
				ID:       "systems",
				Name:     "Systems",
				Required: []string{"CS-6200"},
				Rules:    []model.Requirement{{Name: "core", AtLeast: 2, Courses: []string{"CS-6210", "CS-6250", "CS-6290"}}},
			}}))
			Expect(cfg.Solver.Options("glpk").Path).To(Equal("/opt/glpk/bin/glpsol"))
			Expect(cfg.Solver.Options("glpk").TimeLimit).To(Equal(30 * time.Second))
			Expect(cfg.Solver.Options("branchbound").Path).To(BeEmpty())
		})

		It("should fail on a missing explicit file", func() {
			_, err := Load(filepath.Join(GinkgoT().TempDir(), "absent.yaml"))

			Expect(err).To(MatchError(ContainSubstring("cannot read config file")))
		})
	})

	Context("with environment overrides", func() {
		It("should prefer the environment over the file", func() {
			path := writeConfig("total_courses: 4\nsolver:\n  name: cbc\n")
			setEnv("COURSEPLAN_TOTAL_COURSES", "7")
			setEnv("COURSEPLAN_SOLVER_PATHS_HIGHS", "/usr/local/bin/highs")

			cfg, err := Load(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.TotalCourses).To(Equal(7))
			Expect(cfg.Solver.Name).To(Equal("cbc"))
			Expect(cfg.Solver.Paths.Highs).To(Equal("/usr/local/bin/highs"))
		})
	})

	It("should leave validation to the caller", func() {
		cfg, err := Load(writeConfig("output:\n  format: xlsx\n"))
		Expect(err).NotTo(HaveOccurred())

		cfg.Output.Path = filepath.Join(GinkgoT().TempDir(), "plan.xlsx")

		Expect(cfg.Validate()).To(Succeed())
	})

	DescribeTable("should reject invalid settings",
		func(content string, message string) {
			cfg, err := Load(writeConfig(content))
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Validate()).To(MatchError(ContainSubstring(message)))
		},
		Entry("negative total", "total_courses: -1\n", "total_courses"),
		Entry("unknown solver", "solver:\n  name: gurobi\n", "solver.name"),
		Entry("negative time limit", "solver:\n  time_limit: -5s\n", "solver.time_limit"),
		Entry("unknown output format", "output:\n  format: pdf\n", "output.format"),
		Entry("spreadsheet without path", "output:\n  format: xlsx\n", "output.path"),
		Entry("unknown log format", "log:\n  format: xml\n", "log.format"),
		Entry("unknown log level", "log:\n  level: loud\n", "log.level"),
	)
})
