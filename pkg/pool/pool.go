// Package pool implements the CoordinationFacade: the public surface of
// the coordination pool and the single critical section its concurrency
// model requires (see §5 of the design notes this package is built from).
//
// Every exported method below that reads or changes pool state does so
// while holding the facade's mutex. None of them block on worker payloads — placement is decided and
// the method returns; the caller's worker runtime executes the task
// asynchronously and reports back via CompleteTask or FailWorker.
package pool

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/cuemby/coordpool/pkg/admission"
	"github.com/cuemby/coordpool/pkg/clock"
	"github.com/cuemby/coordpool/pkg/dispatch"
	"github.com/cuemby/coordpool/pkg/events"
	"github.com/cuemby/coordpool/pkg/health"
	"github.com/cuemby/coordpool/pkg/idgen"
	"github.com/cuemby/coordpool/pkg/isolation"
	"github.com/cuemby/coordpool/pkg/log"
	"github.com/cuemby/coordpool/pkg/metrics"
	"github.com/cuemby/coordpool/pkg/queue"
	"github.com/cuemby/coordpool/pkg/registry"
	"github.com/cuemby/coordpool/pkg/types"
)

// Re-exported sentinel errors. Callers compare with errors.Is.
var (
	ErrPoolFull        = registry.ErrPoolFull
	ErrUnknownWorker   = registry.ErrUnknownWorker
	ErrQueueFull       = admission.ErrQueueFull
	ErrInvalidTaskType = admission.ErrInvalidTaskType
	ErrDegraded        = admission.ErrDegraded
	ErrUnknownTask     = errors.New("pool: unknown task")
)

// MaxAttempts is the default bound on assignment attempts per task.
const MaxAttempts = 3

var tracer = otel.Tracer("github.com/cuemby/coordpool/pkg/pool")

// Config configures a Pool. Zero values fall back to the Constants
// described in the component design (MAX_QUEUE_DEPTH, MAX_ATTEMPTS).
type Config struct {
	MaxQueueDepth int
	MaxAttempts   int

	// DiscoveryChecker, if set, backs HealthProbe's polling of the
	// external discovery/migration dependency. If nil, the pool treats
	// the dependency as always available and never gates discovery or
	// migration tasks — useful for tests and for deployments with no
	// such dependency at all.
	DiscoveryChecker health.Checker

	Clock clock.Clock
	IDs   idgen.Generator
}

// Pool is the coordination pool's CoordinationFacade.
type Pool struct {
	mu sync.Mutex

	registry *registry.Registry
	queue    *queue.Queue
	metrics  *metrics.Aggregator
	broker   *events.Broker
	probe    *health.Probe
	clock    clock.Clock
	ids      idgen.Generator
	logger   zerolog.Logger

	tasks map[string]*types.Task

	maxAttempts        int
	discoveryAvailable bool
	isolationViolated  bool
	haltedWorkers      map[string]bool

	shutdown bool
}

// New constructs a Pool. Call Start before use: it runs the event broker's
// distribution loop (without it, publishing blocks once the broker's buffer
// fills) and, if a DiscoveryChecker is configured, the health probe's
// polling loop. ShutdownPool stops both.
func New(cfg Config) *Pool {
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = idgen.New()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}

	p := &Pool{
		registry:           registry.New(ids, c),
		queue:              queue.New(cfg.MaxQueueDepth),
		metrics:            metrics.NewAggregator(),
		broker:             events.NewBroker(),
		clock:              c,
		ids:                ids,
		logger:             log.WithComponent("pool"),
		tasks:              make(map[string]*types.Task),
		maxAttempts:        maxAttempts,
		discoveryAvailable: true,
		haltedWorkers:      make(map[string]bool),
	}

	if cfg.DiscoveryChecker != nil {
		p.probe = health.NewProbe(cfg.DiscoveryChecker, p.onDiscoveryFlip)
	}

	return p
}

// Start begins background loops: the event broker's distribution loop and,
// if configured, the health probe's polling loop. It also registers the
// pool's critical components with the process-wide health checker so
// /ready reports something other than "not registered".
func (p *Pool) Start() {
	p.broker.Start()
	metrics.RegisterComponent("registry", true, "initialized")
	metrics.RegisterComponent("dispatcher", true, "initialized")
	if p.probe != nil {
		metrics.RegisterComponent("health_probe", false, "initializing")
		p.probe.Start()
	} else {
		metrics.RegisterComponent("health_probe", true, "no discovery dependency configured")
	}
}

// Events returns a subscription to the pool's event stream. Callers must
// Unsubscribe when done.
func (p *Pool) Events() events.Subscriber {
	return p.broker.Subscribe()
}

// Unsubscribe releases an event subscription.
func (p *Pool) Unsubscribe(sub events.Subscriber) {
	p.broker.Unsubscribe(sub)
}

func (p *Pool) onDiscoveryFlip(available bool) {
	p.mu.Lock()
	p.discoveryAvailable = available
	p.publishLocked(&events.Event{
		Type:    events.EventDegradationChanged,
		Message: degradedMessage(available),
	})
	var toDispatch []*dispatchResult
	if available {
		toDispatch = p.drainLocked()
	}
	p.mu.Unlock()
	metrics.UpdateComponent("health_probe", available, degradedMessage(available))
	p.announce(toDispatch)
}

func degradedMessage(available bool) string {
	if available {
		return "discovery dependency recovered"
	}
	return "discovery dependency unavailable"
}

// InitializePool creates min(size or DefaultPoolSize, MaxPoolSize) workers,
// stopping early once the pool reaches MaxPoolSize. It returns ErrPoolFull
// only when not a single worker could be spawned.
func (p *Pool) InitializePool(size int) ([]string, error) {
	_, span := tracer.Start(context.Background(), "InitializePool")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	if size <= 0 {
		size = registry.DefaultPoolSize
	}
	if size > registry.MaxPoolSize {
		size = registry.MaxPoolSize
	}

	var ids []string
	for i := 0; i < size; i++ {
		w, err := p.registry.Spawn()
		if err != nil {
			if len(ids) > 0 {
				break
			}
			return nil, err
		}
		ids = append(ids, w.ID)
		p.publishLocked(&events.Event{Type: events.EventWorkerSpawned, WorkerID: w.ID})
	}
	p.refreshWorkerMetricsLocked()
	return ids, nil
}

// SpawnWorker creates a single worker.
func (p *Pool) SpawnWorker() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, err := p.registry.Spawn()
	if err != nil {
		return "", err
	}
	p.refreshWorkerMetricsLocked()
	p.publishLocked(&events.Event{Type: events.EventWorkerSpawned, WorkerID: w.ID})
	return w.ID, nil
}

// refreshWorkerMetricsLocked mirrors the registry's live worker count and
// per-state breakdown into the aggregator. Caller holds p.mu.
func (p *Pool) refreshWorkerMetricsLocked() {
	counts := make(map[types.WorkerState]int)
	for _, w := range p.registry.AllWorkers() {
		counts[w.State]++
	}
	p.metrics.SetWorkers(int64(p.registry.Len()))
	p.metrics.SetWorkerStates(counts)
}

// ShutdownPool transitions every worker to terminal, cancels every
// non-terminal task, drains the queue, and stops background loops. Safe to
// call more than once; subsequent calls are no-ops.
func (p *Pool) ShutdownPool() int {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return 0
	}
	p.shutdown = true

	cancelled := 0
	for _, t := range p.tasks {
		if !isTerminal(t.Status) {
			p.metrics.RecordCancelled(t.Status)
			t.Status = types.TaskCancelled
			t.CompletedAt = p.clock.Now()
			cancelled++
			p.publishLocked(&events.Event{Type: events.EventTaskCancelled, TaskID: t.ID, CorrelationID: t.CorrelationID})
		}
	}
	for {
		if _, ok := p.queue.PopFront(); !ok {
			break
		}
	}
	for _, w := range p.registry.AllWorkers() {
		_ = p.registry.Retire(w.ID)
		p.publishLocked(&events.Event{Type: events.EventWorkerRetired, WorkerID: w.ID})
	}
	p.refreshWorkerMetricsLocked()
	p.metrics.SetQueueLength(0)
	p.mu.Unlock()

	p.broker.Stop()
	if p.probe != nil {
		p.probe.Stop()
	}
	return cancelled
}

// SubmitRequest is the input to SubmitTask.
type SubmitRequest struct {
	Payload           map[string]any
	Type              types.TaskType
	PreferredWorkerID string
	// Strict, if true, rejects a gated type with ErrDegraded instead of
	// holding it pending while the discovery dependency is down.
	Strict bool
}

// SubmitResult is the output of a successful SubmitTask call.
type SubmitResult struct {
	TaskID           string
	Status           types.TaskStatus
	AssignedWorkerID string
}

// SubmitTask validates and admits a task, either dispatching it immediately
// to an idle worker or enqueuing it.
func (p *Pool) SubmitTask(req SubmitRequest) (SubmitResult, error) {
	_, span := tracer.Start(context.Background(), "SubmitTask")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.probe != nil && types.GatedTaskTypes[req.Type] && p.probe.Stale() {
		// CheckNowQuiet, not CheckNow: this goroutine already holds p.mu, and
		// CheckNow would invoke onDiscoveryFlip synchronously on a change,
		// which re-locks p.mu and deadlocks. Handle the flip inline instead.
		healthy, changed := p.probe.CheckNowQuiet(context.Background())
		p.discoveryAvailable = healthy
		if changed {
			p.publishLocked(&events.Event{Type: events.EventDegradationChanged, Message: degradedMessage(healthy)})
			metrics.UpdateComponent("health_probe", healthy, degradedMessage(healthy))
			if healthy {
				p.announce(p.drainLocked())
			}
		}
	}

	decision, err := admission.Admit(admission.Request{
		Type:              req.Type,
		Payload:           req.Payload,
		PreferredWorkerID: req.PreferredWorkerID,
		Strict:            req.Strict,
	}, p.queue.IsFull(), p.discoveryAvailable)
	if err != nil {
		if errors.Is(err, admission.ErrQueueFull) {
			p.metrics.RecordQueueRejection()
		}
		return SubmitResult{}, err
	}

	now := p.clock.Now()
	task := &types.Task{
		ID:                p.ids.New(),
		Type:              req.Type,
		Payload:           req.Payload,
		PreferredWorkerID: req.PreferredWorkerID,
		Status:            types.TaskPending,
		ExcludedWorkers:   make(map[string]bool),
		AdmissionGated:    decision.Gated,
		SubmittedAt:       now,
	}
	task.CorrelationID = task.ID
	p.tasks[task.ID] = task
	p.metrics.RecordSubmitted(types.TaskPending)

	p.publishLocked(&events.Event{Type: events.EventTaskSubmitted, TaskID: task.ID, CorrelationID: task.CorrelationID})

	if !decision.Gated {
		if w := p.tryAssign(task); w != nil {
			return SubmitResult{TaskID: task.ID, Status: task.Status, AssignedWorkerID: w.ID}, nil
		}
	}

	if err := p.queue.Push(task.ID); err != nil {
		// Admission already checked IsFull; this only fires on a race
		// within the same critical section, which cannot happen, but we
		// surface it rather than silently drop the task.
		delete(p.tasks, task.ID)
		p.metrics.RecordQueueRejection()
		return SubmitResult{}, ErrQueueFull
	}
	p.metrics.SetQueueLength(int64(p.queue.Len()))
	p.publishLocked(&events.Event{Type: events.EventTaskQueued, TaskID: task.ID, CorrelationID: task.CorrelationID})

	return SubmitResult{TaskID: task.ID, Status: task.Status}, nil
}

// tryAssign attempts to place task on an idle, eligible worker, mutating
// task and the registry in place. Returns the assigned worker, or nil.
func (p *Pool) tryAssign(task *types.Task) *types.Worker {
	idle := p.eligibleIdleWorkers()
	w := dispatch.SelectWorker(task, idle)
	if w == nil {
		return nil
	}

	prevStatus := task.Status
	now := p.clock.Now()
	firstAssignment := task.AssignedAt.IsZero()
	task.Status = types.TaskInProgress
	task.AssignedWorkerID = w.ID
	task.AssignedAt = now
	if firstAssignment {
		task.AssignmentLatency = now.Sub(task.SubmittedAt)
	}
	task.Attempts++

	_ = p.registry.Assign(w.ID, task.ID)
	p.metrics.RecordAssigned(prevStatus, task.AssignmentLatency, firstAssignment)
	p.publishLocked(&events.Event{Type: events.EventTaskAssigned, TaskID: task.ID, WorkerID: w.ID, CorrelationID: task.CorrelationID})
	return w
}

// eligibleIdleWorkers returns idle workers minus any currently halted by an
// isolation collision.
func (p *Pool) eligibleIdleWorkers() []*types.Worker {
	p.refreshIsolationLocked()
	idle := p.registry.IdleWorkers()
	if len(p.haltedWorkers) == 0 {
		return idle
	}
	out := make([]*types.Worker, 0, len(idle))
	for _, w := range idle {
		if !p.haltedWorkers[w.ID] {
			out = append(out, w)
		}
	}
	return out
}

func (p *Pool) refreshIsolationLocked() {
	report := isolation.Report(p.registry.AllWorkers())
	p.haltedWorkers = isolation.CollidingWorkers(report)
	if !report.Isolated && !p.isolationViolated {
		p.isolationViolated = true
		p.publishLocked(&events.Event{Type: events.EventIsolationViolated, Message: "isolation collision detected"})
	} else if report.Isolated {
		p.isolationViolated = false
	}
}

// GetTask returns a copy of a task's current record.
func (p *Pool) GetTask(taskID string) (types.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[taskID]
	if !ok {
		return types.Task{}, ErrUnknownTask
	}
	return *t, nil
}

type dispatchResult struct {
	taskID   string
	workerID string
}

// CompleteTask terminates a task, releases its worker, and drains the
// queue. Idempotent: a second call on an already-terminal task is a no-op.
func (p *Pool) CompleteTask(taskID string, success bool) error {
	_, span := tracer.Start(context.Background(), "CompleteTask")
	defer span.End()

	p.mu.Lock()

	task, ok := p.tasks[taskID]
	if !ok {
		p.mu.Unlock()
		return ErrUnknownTask
	}
	if task.Status != types.TaskInProgress {
		// Terminal already, or awaiting redispatch after a worker fault
		// with no worker currently holding it: nothing to complete.
		p.mu.Unlock()
		return nil
	}

	workerID := task.AssignedWorkerID
	now := p.clock.Now()
	duration := now.Sub(task.AssignedAt)
	task.CompletedAt = now

	if success {
		task.Status = types.TaskCompleted
		p.metrics.RecordCompleted(task.Type, duration)
		p.publishLocked(&events.Event{Type: events.EventTaskCompleted, TaskID: task.ID, WorkerID: workerID, CorrelationID: task.CorrelationID})
	} else {
		task.Status = types.TaskFailed
		p.metrics.RecordFailed(true)
		p.publishLocked(&events.Event{Type: events.EventTaskFailed, TaskID: task.ID, WorkerID: workerID, CorrelationID: task.CorrelationID})
	}

	if workerID != "" {
		_ = p.registry.Release(workerID, task.Type, duration)
	}

	results := p.drainLocked()
	p.mu.Unlock()

	p.announce(results)
	return nil
}

// FailWorker reports a worker crash, implementing the FailureHandler.
func (p *Pool) FailWorker(workerID string) error {
	_, span := tracer.Start(context.Background(), "FailWorker")
	defer span.End()

	p.mu.Lock()

	w, err := p.registry.WorkerByID(workerID)
	if err != nil {
		p.mu.Unlock()
		return ErrUnknownWorker
	}

	taskID := w.CurrentTaskID
	// Degraded is transient here: a worker that crashes is retired
	// immediately rather than quarantined. The registry records the
	// degraded state on its way out, but both steps run inside this one
	// critical section, so no caller can observe the worker as degraded.
	_ = p.registry.Transition(workerID, types.WorkerDegraded)
	_ = p.registry.Retire(workerID)
	p.refreshWorkerMetricsLocked()
	p.publishLocked(&events.Event{Type: events.EventWorkerFailed, WorkerID: workerID})
	p.publishLocked(&events.Event{Type: events.EventWorkerRetired, WorkerID: workerID})

	var results []*dispatchResult
	if taskID != "" {
		task, ok := p.tasks[taskID]
		if ok {
			task.Exclude(workerID)
			results = p.reassignLocked(task)
		}
	}
	results = append(results, p.drainLocked()...)
	p.mu.Unlock()

	p.announce(results)
	return nil
}

// reassignLocked implements FailureHandler steps 3-5 for a task that just
// lost its worker. Caller holds p.mu.
func (p *Pool) reassignLocked(task *types.Task) []*dispatchResult {
	if task.Attempts >= p.maxAttempts {
		task.Status = types.TaskFailed
		task.CompletedAt = p.clock.Now()
		p.metrics.RecordFailed(true)
		p.publishLocked(&events.Event{Type: events.EventTaskFailed, TaskID: task.ID, CorrelationID: task.CorrelationID})
		return nil
	}

	if w := p.tryAssign(task); w != nil {
		return []*dispatchResult{{taskID: task.ID, workerID: w.ID}}
	}

	// No eligible worker right now: hold the retry at the head of the
	// queue so it is the first candidate the next free worker considers.
	task.Status = types.TaskPending
	p.metrics.RecordRequeued()
	p.queue.PushFront(task.ID)
	p.metrics.SetQueueLength(int64(p.queue.Len()))
	p.publishLocked(&events.Event{Type: events.EventTaskQueued, TaskID: task.ID, CorrelationID: task.CorrelationID})
	return nil
}

// isTerminal reports whether a task status is one a caller can no longer
// mutate via CompleteTask or FailWorker.
func isTerminal(s types.TaskStatus) bool {
	switch s {
	case types.TaskCompleted, types.TaskFailed, types.TaskCancelled:
		return true
	default:
		return false
	}
}

// drainLocked scans the queue head-to-tail once, dispatching every task it
// can match to an idle worker, repeating until either the queue empties or
// a full pass makes no further match. Caller holds p.mu.
func (p *Pool) drainLocked() []*dispatchResult {
	var results []*dispatchResult
	for {
		ids := p.queue.Snapshot()
		if len(ids) == 0 {
			break
		}
		progressed := false
		for _, id := range ids {
			task, ok := p.tasks[id]
			if !ok {
				p.queue.Remove(id)
				continue
			}
			if task.AdmissionGated && !p.discoveryAvailable {
				continue
			}
			if w := p.tryAssign(task); w != nil {
				p.queue.Remove(id)
				results = append(results, &dispatchResult{taskID: id, workerID: w.ID})
				progressed = true
			}
		}
		p.metrics.SetQueueLength(int64(p.queue.Len()))
		if !progressed {
			break
		}
	}
	return results
}

// publishLocked stamps and publishes an event. Caller holds p.mu; Publish
// itself never blocks on subscribers.
func (p *Pool) publishLocked(ev *events.Event) {
	if ev.ID == "" {
		ev.ID = p.ids.New()
	}
	ev.Timestamp = p.clock.Now()
	p.broker.Publish(ev)
}

// announce is a no-op placeholder for future outbound notification of
// dispatchResults (e.g. handing the payload to the worker runtime). It
// exists so CompleteTask/FailWorker/onDiscoveryFlip have one place to
// extend without touching the critical section above.
func (p *Pool) announce(_ []*dispatchResult) {}

// Metrics returns a point-in-time MetricsSnapshot.
func (p *Pool) Metrics() types.MetricsSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics.Snapshot()
}

// IsolationReport runs the pairwise isolation scan across every live
// worker.
func (p *Pool) IsolationReport() types.IsolationReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return isolation.Report(p.registry.AllWorkers())
}

// Worker returns a copy of a worker's current record, for tests and
// debugging. Not part of the external interface contract in §6.
func (p *Pool) Worker(id string) (types.Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, err := p.registry.WorkerByID(id)
	if err != nil {
		return types.Worker{}, ErrUnknownWorker
	}
	return *w, nil
}
