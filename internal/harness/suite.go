package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrNoScenarios is returned when a suite directory holds no scenario files.
var ErrNoScenarios = errors.New("no scenarios found")

// FindScenarios returns every .yaml and .yml file under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoScenarios)
	}
	sort.Strings(paths)
	return paths, nil
}

// Outcome is the result of one scenario in a suite.
type Outcome struct {
	Path   string  `json:"path"`
	Name   string  `json:"name,omitempty"`
	Result *Result `json:"result,omitempty"`
	// Error is set when the scenario could not load or run.
	Error string `json:"error,omitempty"`
}

// Passed reports whether the scenario ran and every assertion held.
func (o Outcome) Passed() bool {
	return o.Error == "" && o.Result != nil && o.Result.Pass
}

// SuiteResult summarizes a suite run.
type SuiteResult struct {
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`
}

// RunAll loads and runs every scenario in paths, at most parallel at a time
// (four when parallel < 1). Outcomes keep the order of paths.
//
// A scenario that fails to load, fails to run or fails an assertion is
// recorded as a failed outcome; it does not stop the others. The error is
// non-nil only when ctx is cancelled.
//
// WithRunID is ignored: each recorded run gets its own id.
func RunAll(ctx context.Context, paths []string, parallel int, opts ...Option) (*SuiteResult, error) {
	if parallel < 1 {
		parallel = 4
	}
	opts = append(opts[:len(opts):len(opts)], WithRunID(""))

	outcomes := make([]Outcome, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = runOne(ctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SuiteResult{Total: len(paths), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Passed() {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

func runOne(ctx context.Context, path string, opts []Option) Outcome {
	out := Outcome{Path: path}
	scenario, err := LoadScenario(path)
	if err != nil {
		out.Error = fmt.Sprintf("failed to load scenario: %v", err)
		return out
	}
	out.Name = scenario.Name

	res, err := RunContext(ctx, scenario, opts...)
	if err != nil {
		out.Error = fmt.Sprintf("scenario execution failed: %v", err)
		return out
	}
	out.Result = res
	return out
}
