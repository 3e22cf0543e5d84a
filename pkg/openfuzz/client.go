package openfuzz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"openfuzz/internal/config"
	"openfuzz/internal/inference"
	"openfuzz/internal/metrics"
	"openfuzz/internal/model"
	"openfuzz/internal/stats"
	"openfuzz/internal/storage"
)

const defaultDBPath = "openfuzz.db"

var ErrSystemNotFound = errors.New("system not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
	// Registerer receives the inference metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

type Client struct {
	store   storage.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	systems map[string]*inference.System
}

type InferRequest struct {
	System string
	Inputs map[string]float64
	// Persist stores the cycle as an inference record.
	Persist bool
}

type InferSummary struct {
	RunID   string             `json:"run_id,omitempty"`
	System  string             `json:"system"`
	Outputs map[string]float64 `json:"outputs"`
	Firings []model.RuleFiring `json:"firings"`
}

type SweepRequest struct {
	System string
	Input  string
	Output string
	From   float64
	To     float64
	Steps  int
	Fixed  map[string]float64
}

type RunsRequest struct {
	Limit  int
	System string
}

type RunItem struct {
	RunID        string             `json:"run_id"`
	System       string             `json:"system"`
	CreatedAtUTC string             `json:"created_at_utc"`
	Inputs       map[string]float64 `json:"inputs"`
	Outputs      map[string]float64 `json:"outputs"`
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	c := &Client{
		store:   store,
		log:     log,
		now:     time.Now,
		systems: make(map[string]*inference.System),
	}
	if opts.Registerer != nil {
		c.metrics = metrics.New(opts.Registerer)
	}
	return c, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// LoadSystem compiles def, stores it and makes it available under def.Name.
func (c *Client) LoadSystem(ctx context.Context, def model.SystemDefinition) error {
	sys, err := c.compile(def)
	if err != nil {
		return err
	}
	if err := c.store.SaveDefinition(ctx, storage.NewDefinitionRecord(def, c.now())); err != nil {
		return fmt.Errorf("save definition %s: %w", def.Name, err)
	}

	c.mu.Lock()
	c.systems[def.Name] = sys
	c.mu.Unlock()

	c.log.Info("loaded fuzzy system",
		zap.String("system", def.Name),
		zap.Int("rules", len(def.Rules)))
	return nil
}

// LoadSystemFile reads a TOML or YAML definition and loads it.
func (c *Client) LoadSystemFile(ctx context.Context, path string) (string, error) {
	def, err := config.Read(path)
	if err != nil {
		return "", err
	}
	if err := c.LoadSystem(ctx, def); err != nil {
		return "", err
	}
	return def.Name, nil
}

// Definition returns a stored system definition.
func (c *Client) Definition(ctx context.Context, name string) (model.SystemDefinition, error) {
	record, ok, err := c.store.GetDefinition(ctx, name)
	if err != nil {
		return model.SystemDefinition{}, err
	}
	if !ok {
		return model.SystemDefinition{}, fmt.Errorf("%w: %s", ErrSystemNotFound, name)
	}
	return record.Definition, nil
}

func (c *Client) Systems(ctx context.Context) ([]string, error) {
	return c.store.ListDefinitions(ctx)
}

func (c *Client) Infer(ctx context.Context, req InferRequest) (InferSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sys, err := c.systemLocked(ctx, req.System)
	if err != nil {
		return InferSummary{}, err
	}
	result, err := sys.Infer(ctx, req.Inputs)
	if err != nil {
		return InferSummary{}, err
	}

	summary := InferSummary{
		System:  sys.Name(),
		Outputs: result.Outputs,
		Firings: result.Firings,
	}
	if req.Persist {
		record := storage.NewInferenceRecord(sys.Name(), result, c.now())
		if err := c.store.SaveInference(ctx, record); err != nil {
			return InferSummary{}, fmt.Errorf("save inference: %w", err)
		}
		summary.RunID = record.ID
		c.log.Debug("persisted inference", zap.String("system", sys.Name()), zap.String("run_id", record.ID))
	}
	return summary, nil
}

func (c *Client) Sweep(ctx context.Context, req SweepRequest) (stats.SweepReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sys, err := c.systemLocked(ctx, req.System)
	if err != nil {
		return stats.SweepReport{}, err
	}
	return stats.Sweep(ctx, sys, stats.SweepOptions{
		Input:  req.Input,
		Output: req.Output,
		From:   req.From,
		To:     req.To,
		Steps:  req.Steps,
		Fixed:  req.Fixed,
	})
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	// Filtering by system happens after the fetch, so over-read when asked to.
	fetch := req.Limit
	if req.System != "" {
		fetch = 0
	}
	records, err := c.store.ListInferences(ctx, fetch)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, min(len(records), req.Limit))
	for _, r := range records {
		if req.System != "" && r.System != req.System {
			continue
		}
		out = append(out, RunItem{
			RunID:        r.ID,
			System:       r.System,
			CreatedAtUTC: r.CreatedAtUTC,
			Inputs:       r.Result.Inputs,
			Outputs:      r.Result.Outputs,
		})
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

// Run returns one persisted inference record. An empty id selects the latest.
func (c *Client) Run(ctx context.Context, id string) (model.InferenceRecord, error) {
	if id == "" {
		latest, err := c.store.ListInferences(ctx, 1)
		if err != nil {
			return model.InferenceRecord{}, err
		}
		if len(latest) == 0 {
			return model.InferenceRecord{}, errors.New("no inference runs recorded")
		}
		return latest[0], nil
	}
	record, ok, err := c.store.GetInference(ctx, id)
	if err != nil {
		return model.InferenceRecord{}, err
	}
	if !ok {
		return model.InferenceRecord{}, fmt.Errorf("inference run not found: %s", id)
	}
	return record, nil
}

func (c *Client) compile(def model.SystemDefinition) (*inference.System, error) {
	return config.Compile(def,
		inference.WithLogger(c.log.Named("inference")),
		inference.WithMetrics(c.metrics))
}

func (c *Client) systemLocked(ctx context.Context, name string) (*inference.System, error) {
	if sys, ok := c.systems[name]; ok {
		return sys, nil
	}
	record, ok, err := c.store.GetDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSystemNotFound, name)
	}
	sys, err := c.compile(record.Definition)
	if err != nil {
		return nil, err
	}
	c.systems[name] = sys
	return sys, nil
}
