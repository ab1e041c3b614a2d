package fixtures

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/charlieparkes/go-docfixtures/script"
	"github.com/iancoleman/strcase"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type AttendantOpt func(*Attendant)

func AttendantLogger(logger *zap.Logger) AttendantOpt {
	return func(a *Attendant) {
		a.log = logger
	}
}

// ScriptRunner executes a named fixture script. *script.Executor satisfies it.
type ScriptRunner interface {
	Execute(ctx context.Context, s script.NamedScript) (bson.Raw, error)
}

// Attendant prepares test data before a test runs and cleans it up when the test finishes.
// Plans are keyed by test name, so TestFindBooks and its subtests use the plan registered as "findBooks".
type Attendant struct {
	log   *zap.Logger
	mu    sync.Mutex
	plans map[string]*plan
}

type plan struct {
	describe string
	// resolve returns the prepare and cleanup steps for a test key, failing when a required step is missing.
	resolve func(key string, p *plan) (prepare, cleanup func(context.Context) error, err error)
	prepare bool
	cleanup bool
}

type PlanOpt func(*plan)

// PlanSkipPrepare registers a plan that only cleans up.
func PlanSkipPrepare() PlanOpt {
	return func(p *plan) {
		p.prepare = false
	}
}

// PlanSkipCleanup leaves the seeded documents in place after the test.
func PlanSkipCleanup() PlanOpt {
	return func(p *plan) {
		p.cleanup = false
	}
}

func NewAttendant(opts ...AttendantOpt) *Attendant {
	a := &Attendant{plans: map[string]*plan{}}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger()
	}
	return a
}

// Plan seeds count documents named after prefix before the test and removes them afterwards.
func (a *Attendant) Plan(test string, coll Collection, count int, prefix string, opts ...PlanOpt) {
	l := NewLifecycle(coll, LifecycleLogger(a.log))
	a.add(test, &plan{
		describe: fmt.Sprintf("%v %q", coll.Name(), prefix),
		resolve: func(string, *plan) (func(context.Context) error, func(context.Context) error, error) {
			prepare := func(ctx context.Context) error {
				return l.SetUp(ctx, count, prefix)
			}
			cleanup := func(ctx context.Context) error {
				_, err := l.TearDown(ctx, prefix)
				return err
			}
			return prepare, cleanup, nil
		},
	}, opts)
}

// PlanScripts runs prepare4_<test> before the test and cleanup4_<test> after it.
// A required script missing from set fails the test.
func (a *Attendant) PlanScripts(test string, set script.Set, runner ScriptRunner, opts ...PlanOpt) {
	a.add(test, &plan{
		describe: "scripts",
		resolve: func(key string, p *plan) (func(context.Context) error, func(context.Context) error, error) {
			var prepare, cleanup func(context.Context) error
			if p.prepare {
				s, ok := set.Prepare(key)
				if !ok {
					return nil, nil, fmt.Errorf("no script %v%v", script.PreparePrefix, key)
				}
				prepare = runScript(runner, s)
			}
			if p.cleanup {
				s, ok := set.Cleanup(key)
				if !ok {
					return nil, nil, fmt.Errorf("no script %v%v", script.CleanupPrefix, key)
				}
				cleanup = runScript(runner, s)
			}
			return prepare, cleanup, nil
		},
	}, opts)
}

func runScript(runner ScriptRunner, s script.NamedScript) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := runner.Execute(ctx, s)
		return err
	}
}

func (a *Attendant) add(test string, p *plan, opts []PlanOpt) {
	p.prepare = true
	p.cleanup = true
	for _, opt := range opts {
		opt(p)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.plans[testKey(test)] = p
}

// Attend runs the prepare step for t and registers the cleanup step with t.Cleanup. Tests without a plan are left alone.
func (a *Attendant) Attend(t testing.TB) {
	t.Helper()
	key := testKey(t.Name())
	a.mu.Lock()
	p, ok := a.plans[key]
	a.mu.Unlock()
	if !ok {
		return
	}

	prepare, cleanup, err := p.resolve(key, p)
	if err != nil {
		t.Fatalf("test data for %v: %v", key, err)
		return
	}

	ctx := context.Background()
	if p.cleanup {
		t.Cleanup(func() {
			if err := cleanup(ctx); err != nil {
				t.Errorf("failed to clean up test data for %v: %v", key, err)
				return
			}
			a.log.Debug("cleaned up test data", zap.String("test", key), zap.String("plan", p.describe))
		})
	}
	if p.prepare {
		if err := prepare(ctx); err != nil {
			t.Fatalf("failed to prepare test data for %v: %v", key, err)
			return
		}
		a.log.Debug("prepared test data", zap.String("test", key), zap.String("plan", p.describe))
	}
}

// testKey maps "TestFindBooks/sub" and "findBooks" to "findBooks".
func testKey(name string) string {
	if i := strings.IndexByte(name, '/'); i != -1 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "Test")
	return strcase.ToLowerCamel(name)
}
