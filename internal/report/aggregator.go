package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"config-conflict-detector/internal/engine"
	"config-conflict-detector/internal/metrics"
	"config-conflict-detector/internal/model"
	"config-conflict-detector/internal/telemetry"
)

const defaultConcurrency = 4

type Builder struct {
	Fetcher     telemetry.Fetcher
	Logger      *slog.Logger
	Metrics     *metrics.Collector
	Concurrency int

	now func() time.Time
}

func NewBuilder(fetcher telemetry.Fetcher, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		Fetcher:     fetcher,
		Logger:      logger,
		Concurrency: defaultConcurrency,
		now:         time.Now,
	}
}

// BuildReport evaluates every category of sets against live flows.
func BuildReport(ctx context.Context, fetcher telemetry.Fetcher, sets model.ConfigSets) (*model.ConflictReport, error) {
	return NewBuilder(fetcher, nil).Build(ctx, engine.Evaluators(sets)...)
}

// Build fetches flows once for every host named by any evaluator, then folds
// the evaluators over those snapshots in evaluator and sorted-host order. A
// host whose fetch fails is evaluated against an empty flow set. If ctx is
// done once the fetches join, no report is produced and ctx.Err() is returned.
func (b *Builder) Build(ctx context.Context, evaluators ...engine.Evaluator) (*model.ConflictReport, error) {
	hosts := unionHosts(evaluators)
	flows, degraded := b.fetchAll(ctx, hosts)
	if err := ctx.Err(); err != nil {
		b.Logger.Warn("Run cancelled before evaluation", "error", err)
		return nil, fmt.Errorf("run interrupted: %w", err)
	}

	report := &model.ConflictReport{
		RunID:         uuid.NewString(),
		Verdict:       model.VerdictClean,
		DegradedHosts: degraded,
	}
	failed := make(map[string]bool, len(degraded))
	for _, h := range degraded {
		failed[h] = true
	}

	for _, ev := range evaluators {
		section := model.Section{Category: ev.Category(), Hosts: []model.HostResult{}}
		for _, host := range ev.Hosts() {
			result := ev.Evaluate(host, flows[host])
			result.Degraded = failed[host]
			if len(result.Findings) > 0 {
				section.Conflict = true
			}
			section.Hosts = append(section.Hosts, result)
		}
		if section.Conflict {
			report.Verdict = model.VerdictConflict
		}
		b.Logger.Info("Category evaluated", "category", section.Category, "hosts", len(section.Hosts), "conflict", section.Conflict)
		report.Sections = append(report.Sections, section)
	}

	report.GeneratedAt = b.clock()
	b.Metrics.ObserveReport(report)
	return report, nil
}

func (b *Builder) fetchAll(ctx context.Context, hosts []string) (map[string][]model.FlowRecord, []string) {
	results := make([][]model.FlowRecord, len(hosts))
	errs := make([]error, len(hosts))

	g, gCtx := errgroup.WithContext(ctx)
	limit := b.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	g.SetLimit(limit)

	for i, host := range hosts {
		g.Go(func() error {
			start := time.Now()
			flows, err := b.Fetcher.FetchConnectionStats(gCtx, host)
			b.Metrics.ObserveFetch(time.Since(start), len(flows), err)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = flows
			b.Logger.Debug("Fetched connection stats", "host", host, "flows", len(flows))
			return nil
		})
	}
	// Fetch failures are recorded per slot, never returned.
	_ = g.Wait()

	byHost := make(map[string][]model.FlowRecord, len(hosts))
	var degraded []string
	for i, host := range hosts {
		if errs[i] != nil {
			b.Logger.Warn("Failed to retrieve flows, evaluating host with no flows", "host", host, "error", errs[i])
			degraded = append(degraded, host)
			continue
		}
		byHost[host] = results[i]
	}
	return byHost, degraded
}

func (b *Builder) clock() time.Time {
	if b.now == nil {
		return time.Now()
	}
	return b.now()
}

func unionHosts(evaluators []engine.Evaluator) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, ev := range evaluators {
		for _, h := range ev.Hosts() {
			if !seen[h] {
				seen[h] = true
				hosts = append(hosts, h)
			}
		}
	}
	sort.Strings(hosts)
	return hosts
}
