package briefing

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/plantops/opsbrief/pkg/cache"
	"github.com/plantops/opsbrief/pkg/config"
	"github.com/plantops/opsbrief/pkg/models"
	"github.com/plantops/opsbrief/pkg/tools"
)

// Orchestrator fans out to the capability tools and composes briefings
// under the configured budgets.
type Orchestrator struct {
	exec  *cache.Executor
	cfg   *config.Config
	store *Store

	// Now is replaceable in tests.
	Now func() time.Time
}

// NewOrchestrator wires the orchestrator. The store is optional; when
// nil, briefings are not retained and EOD comparisons always fall
// back.
func NewOrchestrator(exec *cache.Executor, cfg *config.Config, store *Store) *Orchestrator {
	return &Orchestrator{exec: exec, cfg: cfg, store: store, Now: time.Now}
}

func (o *Orchestrator) loc() *time.Location {
	return o.cfg.Location()
}

func (o *Orchestrator) today() models.Date {
	return models.DateOf(o.Now(), o.loc())
}

// toolOutcome is one tool branch's terminal state.
type toolOutcome struct {
	Name   string
	Result models.ToolResult
	Status string
}

// runTool executes one tool branch under its own timeout. A branch the
// deadline cuts off is abandoned; the goroutine's eventual result is
// discarded through the buffered channel.
func (o *Orchestrator) runTool(ctx context.Context, timeout time.Duration, name, scope string, in tools.Input, cached bool) toolOutcome {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan models.ToolResult, 1)
	go func() {
		if cached {
			ch <- o.exec.Execute(tctx, name, scope, in)
		} else {
			ch <- o.exec.Registry().Execute(tctx, name, in)
		}
	}()

	select {
	case result := <-ch:
		status := StatusCompleted
		if !result.Success {
			status = StatusFailed
		}
		return toolOutcome{Name: name, Result: result, Status: status}
	case <-tctx.Done():
		slog.Warn("Tool branch timed out", "tool", name)
		return toolOutcome{
			Name:   name,
			Result: models.FailedToolResult("generation timed out"),
			Status: StatusTimedOut,
		}
	}
}

// toolCall names one branch of a parallel fan-out.
type toolCall struct {
	Name   string
	Input  tools.Input
	Cached bool
	Scope  string
}

// fanOut runs the calls in parallel under the per-tool timeout and
// returns outcomes keyed by tool name.
func (o *Orchestrator) fanOut(ctx context.Context, timeout time.Duration, calls []toolCall) map[string]toolOutcome {
	outcomes := make(map[string]toolOutcome, len(calls))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, call := range calls {
		wg.Add(1)
		go func(c toolCall) {
			defer wg.Done()
			outcome := o.runTool(ctx, timeout, c.Name, c.Scope, c.Input, c.Cached)
			mu.Lock()
			outcomes[c.Name] = outcome
			mu.Unlock()
		}(call)
	}
	wg.Wait()
	return outcomes
}

// sectionJob builds one section; jobs run concurrently but land at
// their declared index so output order follows the declared area
// order, not completion order.
type sectionJob struct {
	idx   int
	build func(ctx context.Context) Section
}

// runSections executes the jobs in parallel under the total deadline.
// Sections unfinished at the deadline are synthesized as timed_out;
// finished sections are preserved.
func (o *Orchestrator) runSections(ctx context.Context, jobs []sectionJob, placeholders []Section) []Section {
	sections := make([]Section, len(placeholders))
	copy(sections, placeholders)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		done = make(chan struct{})
	)
	for _, job := range jobs {
		wg.Add(1)
		go func(j sectionJob) {
			defer wg.Done()
			section := j.build(ctx)
			mu.Lock()
			sections[j.idx] = section
			mu.Unlock()
		}(job)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Briefing generation hit the total deadline, returning partial result")
		// Give in-flight branches a moment to observe cancellation and
		// publish their timed_out sections.
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}

// timedOutSection is the placeholder for a branch the deadline cut
// off.
func timedOutSection(id, title string) Section {
	return Section{
		ID:      id,
		Title:   title,
		Content: "This section could not be generated in time.",
		Status:  StatusTimedOut,
		Error:   "generation timed out",
	}
}

// collectFailures extracts the names of tools that failed or timed
// out, sorted for determinism.
func collectFailures(outcomeSets ...map[string]toolOutcome) []string {
	seen := map[string]bool{}
	for _, outcomes := range outcomeSets {
		for name, outcome := range outcomes {
			if outcome.Status != StatusCompleted {
				seen[name] = true
			}
		}
	}
	failures := make([]string, 0, len(seen))
	for name := range seen {
		failures = append(failures, name)
	}
	sort.Strings(failures)
	return failures
}

// mergeCitations gathers the citations from completed outcomes in tool
// order.
func mergeCitations(order []string, outcomes map[string]toolOutcome) []models.Citation {
	var citations []models.Citation
	for _, name := range order {
		if outcome, ok := outcomes[name]; ok && outcome.Status == StatusCompleted {
			citations = append(citations, outcome.Result.Citations...)
		}
	}
	return citations
}
