package provision

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/devrig/devrig/internal/journal"
	"github.com/devrig/devrig/internal/lockfree"
	"github.com/devrig/devrig/internal/manifest"
	"github.com/devrig/devrig/internal/resolve"
	"github.com/devrig/devrig/internal/substituter"
)

// ErrNilPlan is returned when Up is called without a plan.
var ErrNilPlan = errors.New("provision: plan is nil")

// Lookuper answers binary cache queries. *substituter.Chain satisfies it;
// nil means no substituters are configured and every package is built.
type Lookuper interface {
	Lookup(ctx context.Context, storeHash string) (*substituter.NarInfo, string, error)
}

// Result summarizes one Up run.
type Result struct {
	Substituted []string `json:"substituted"`
	Built       []string `json:"built"`
	Generation  string   `json:"generation"`
	Duration    time.Duration
}

// Provisioner applies plans. Concurrency is bounded by the manifest's
// provision.jobs setting; packages are distributed to workers through a
// lock-free queue.
type Provisioner struct {
	runner  Runner
	lookup  Lookuper
	journal *journal.Journal
	gens    *GenerationStore
	cfg     manifest.ProvisionConfig
	logger  *zerolog.Logger
}

// New creates a Provisioner. journal and gens may be nil; events and
// generation records are then skipped.
func New(runner Runner, lookup Lookuper, j *journal.Journal, gens *GenerationStore, cfg manifest.ProvisionConfig, logger *zerolog.Logger) *Provisioner {
	return &Provisioner{
		runner:  runner,
		lookup:  lookup,
		journal: j,
		gens:    gens,
		cfg:     cfg,
		logger:  logger,
	}
}

// pkgOutcome carries one worker's result for one package.
type pkgOutcome struct {
	pkg         string
	substituted bool
	err         error
}

// Up materializes the plan: each package is substituted if a cache
// carries it, built otherwise, then linked into the profile. On success a
// new generation is recorded. The first package error aborts with that
// error after in-flight workers drain.
func (p *Provisioner) Up(ctx context.Context, plan *resolve.Plan) (*Result, error) {
	if plan == nil {
		return nil, ErrNilPlan
	}
	start := time.Now()

	queue := lockfree.NewQueue[string]()
	for _, pkg := range plan.Packages {
		queue.Enqueue(pkg)
	}

	jobs := p.cfg.GetJobs()
	if jobs > len(plan.Packages) && len(plan.Packages) > 0 {
		jobs = len(plan.Packages)
	}

	outcomes := make(chan pkgOutcome, len(plan.Packages))
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				pkg, ok := queue.Dequeue()
				if !ok {
					return
				}
				if ctx.Err() != nil {
					outcomes <- pkgOutcome{pkg: pkg, err: ctx.Err()}
					continue
				}
				substituted, err := p.provisionOne(ctx, plan, pkg)
				outcomes <- pkgOutcome{pkg: pkg, substituted: substituted, err: err}
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	result := &Result{}
	var firstErr error
	for outcome := range outcomes {
		if outcome.err != nil {
			if firstErr == nil {
				firstErr = outcome.err
			}
			continue
		}
		if outcome.substituted {
			result.Substituted = append(result.Substituted, outcome.pkg)
		} else {
			result.Built = append(result.Built, outcome.pkg)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	if p.gens != nil {
		gen, err := p.gens.Record(plan)
		if err != nil {
			return nil, err
		}
		result.Generation = gen.ID
		p.publish(journal.Event{
			Kind:       journal.KindGeneration,
			Generation: gen.ID,
			Message:    "generation recorded",
		})
	}

	result.Duration = time.Since(start)
	if p.logger != nil {
		p.logger.Info().
			Int("substituted", len(result.Substituted)).
			Int("built", len(result.Built)).
			Dur("elapsed", result.Duration).
			Msg("environment up")
	}
	return result, nil
}

// provisionOne handles a single package end to end.
func (p *Provisioner) provisionOne(ctx context.Context, plan *resolve.Plan, pkg string) (substituted bool, err error) {
	stepCtx := ctx
	if timeoutMS, ok := p.cfg.GetTimeoutOption().Get(); ok {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
		defer cancel()
	}

	info, endpoint := p.tryLookup(stepCtx, plan, pkg)
	if info != nil {
		if err := p.runner.Substitute(stepCtx, pkg, info, endpoint); err != nil {
			p.publish(journal.Event{Kind: journal.KindFetch, Package: pkg, Endpoint: endpoint, Err: err.Error()})
			return false, err
		}
		p.publish(journal.Event{Kind: journal.KindFetch, Package: pkg, Endpoint: endpoint})
		substituted = true
	} else {
		if err := p.runner.Build(stepCtx, pkg); err != nil {
			p.publish(journal.Event{Kind: journal.KindBuild, Package: pkg, Err: err.Error()})
			return false, err
		}
		p.publish(journal.Event{Kind: journal.KindBuild, Package: pkg})
	}

	if err := p.runner.Link(stepCtx, pkg, plan.ProfileDir); err != nil {
		p.publish(journal.Event{Kind: journal.KindLink, Package: pkg, Err: err.Error()})
		return substituted, err
	}
	p.publish(journal.Event{Kind: journal.KindLink, Package: pkg})
	return substituted, nil
}

// tryLookup queries the substituter chain. Any lookup failure degrades to
// a source build; substitution is an optimization, never a requirement.
func (p *Provisioner) tryLookup(ctx context.Context, plan *resolve.Plan, pkg string) (*substituter.NarInfo, string) {
	if p.lookup == nil {
		return nil, ""
	}

	hash := StoreHash(pkg, plan.Digest)
	info, endpoint, err := p.lookup.Lookup(ctx, hash)
	if err != nil {
		if !errors.Is(err, substituter.ErrNotFound) && p.logger != nil {
			p.logger.Debug().Str("package", pkg).Err(err).Msg("cache lookup failed, building from source")
		}
		p.publish(journal.Event{Kind: journal.KindLookup, Package: pkg, Err: err.Error()})
		return nil, ""
	}
	p.publish(journal.Event{Kind: journal.KindLookup, Package: pkg, Endpoint: endpoint})
	return info, endpoint
}

func (p *Provisioner) publish(ev journal.Event) {
	if p.journal != nil {
		p.journal.Publish(ev)
	}
}
