package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"openfuzz/internal/config"
	"openfuzz/internal/inference"
	"openfuzz/internal/stats"
	"openfuzz/internal/storage"
	fuzzapi "openfuzz/pkg/openfuzz"
)

const defaultDBPath = "openfuzz.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "demo":
		return runDemo(ctx, args[1:])
	case "infer":
		return runInfer(ctx, args[1:])
	case "sweep":
		return runSweep(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "template":
		return runTemplate(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type commonFlags struct {
	storeKind    *string
	dbPath       *string
	verbose      *bool
	printMetrics *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		storeKind:    fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", defaultDBPath, "sqlite database path"),
		verbose:      fs.Bool("verbose", false, "enable debug logging"),
		printMetrics: fs.Bool("print-metrics", false, "print inference metrics after the command"),
	}
}

// session is an initialized client plus what it needs to be torn down.
type session struct {
	client   *fuzzapi.Client
	log      *zap.Logger
	registry *prometheus.Registry
	print    bool
}

func openSession(ctx context.Context, common commonFlags) (*session, error) {
	log, err := newLogger(*common.verbose)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	client, err := fuzzapi.New(fuzzapi.Options{
		StoreKind:  *common.storeKind,
		DBPath:     *common.dbPath,
		Logger:     log,
		Registerer: registry,
	})
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		_ = log.Sync()
		return nil, err
	}
	return &session{client: client, log: log, registry: registry, print: *common.printMetrics}, nil
}

func (s *session) close() error {
	var errs []error
	if s.print {
		errs = append(errs, printMetrics(s.registry))
	}
	errs = append(errs, s.client.Close())
	_ = s.log.Sync()
	return errors.Join(errs...)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return c.Build()
}

func printMetrics(registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return err
		}
	}
	return nil
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
	}()

	fmt.Printf("initialized store=%s\n", *common.storeKind)
	return nil
}

func runDemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	common := addCommonFlags(fs)
	temp := fs.Float64("temp", 30, "crisp temperature in [5, 45]")
	defuzzify := fs.String("defuzzify", "coa", "defuzzification method: coa|mom|lom|fom|mom-global|lom-global|fom-global")
	persist := fs.Bool("persist", false, "store the inference run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
	}()

	def := inference.TemperatureController()
	def.Outputs[0].Defuzzify = *defuzzify
	if err := s.client.LoadSystem(ctx, def); err != nil {
		return err
	}
	summary, err := s.client.Infer(ctx, fuzzapi.InferRequest{
		System:  def.Name,
		Inputs:  map[string]float64{inference.DemoInput: *temp},
		Persist: *persist,
	})
	if err != nil {
		return err
	}

	fmt.Printf("temperature=%g duty=%.6f\n", *temp, summary.Outputs[inference.DemoOutput])
	if summary.RunID != "" {
		fmt.Printf("run_id=%s\n", summary.RunID)
	}
	return nil
}

func runInfer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("infer", flag.ContinueOnError)
	common := addCommonFlags(fs)
	configPath := fs.String("config", "", "system definition file (.toml|.yaml)")
	systemName := fs.String("system", "", "stored system name (when --config is not given)")
	inputs := assignments{}
	fs.Var(inputs, "input", "crisp input as name=value (repeatable)")
	persist := fs.Bool("persist", true, "store the inference run")
	jsonOut := fs.Bool("json", false, "emit result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
	}()

	name, err := resolveSystem(ctx, s.client, *configPath, *systemName)
	if err != nil {
		return err
	}
	summary, err := s.client.Infer(ctx, fuzzapi.InferRequest{
		System:  name,
		Inputs:  inputs,
		Persist: *persist,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return writeJSON(summary)
	}
	if summary.RunID != "" {
		fmt.Printf("run_id=%s system=%s\n", summary.RunID, summary.System)
	}
	for _, k := range sortedNames(summary.Outputs) {
		fmt.Printf("%s=%.6f\n", k, summary.Outputs[k])
	}
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	common := addCommonFlags(fs)
	configPath := fs.String("config", "", "system definition file (.toml|.yaml); defaults to the demo controller")
	systemName := fs.String("system", "", "stored system name")
	input := fs.String("input", inference.DemoInput, "input variable to sweep")
	output := fs.String("output", inference.DemoOutput, "output variable to report")
	from := fs.Float64("from", 5, "first input value")
	to := fs.Float64("to", 45, "last input value")
	steps := fs.Int("steps", 41, "number of evaluations")
	fixed := assignments{}
	fs.Var(fixed, "fixed", "value of another input as name=value (repeatable)")
	csvPath := fs.String("csv", "", "write the response curve to this CSV file")
	jsonOut := fs.Bool("json", false, "emit report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
	}()

	name := *systemName
	if *configPath == "" && name == "" {
		def := inference.TemperatureController()
		if err := s.client.LoadSystem(ctx, def); err != nil {
			return err
		}
		name = def.Name
	} else if name, err = resolveSystem(ctx, s.client, *configPath, name); err != nil {
		return err
	}

	report, err := s.client.Sweep(ctx, fuzzapi.SweepRequest{
		System: name,
		Input:  *input,
		Output: *output,
		From:   *from,
		To:     *to,
		Steps:  *steps,
		Fixed:  fixed,
	})
	if err != nil {
		return err
	}

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			return err
		}
		if err := stats.WriteSweepCSV(f, report); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	if *jsonOut {
		return writeJSON(report)
	}
	fmt.Printf("system=%s input=%s output=%s steps=%d trend=%s\n", name, report.Input, report.Output, len(report.Points), report.Trend)
	fmt.Printf("min=%.6f max=%.6f mean=%.6f p50=%.3f p90=%.3f p99=%.3f\n",
		report.Min, report.Max, report.Mean, report.P50, report.P90, report.P99)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	common := addCommonFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	system := fs.String("system", "", "only list runs of this system")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
	}()

	items, err := s.client.Runs(ctx, fuzzapi.RunsRequest{Limit: *limit, System: *system})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s system=%s", item.RunID, item.CreatedAtUTC, item.System)
		for _, k := range sortedNames(item.Outputs) {
			fmt.Printf(" %s=%.6f", k, item.Outputs[k])
		}
		fmt.Println()
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "inference run id")
	latest := fs.Bool("latest", false, "show the most recent run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" && !*latest {
		return errors.New("show requires --run-id or --latest")
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
	}()

	record, err := s.client.Run(ctx, *runID)
	if err != nil {
		return err
	}
	return writeJSON(record)
}

func runTemplate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	out := fs.String("out", "", "write the demo definition to this .toml or .yaml file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("template requires --out")
	}
	if err := config.Save(*out, inference.TemperatureController()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func resolveSystem(ctx context.Context, client *fuzzapi.Client, configPath, systemName string) (string, error) {
	switch {
	case configPath != "" && systemName != "":
		return "", errors.New("use either --config or --system, not both")
	case configPath != "":
		return client.LoadSystemFile(ctx, configPath)
	case systemName != "":
		return systemName, nil
	default:
		return "", errors.New("one of --config or --system is required")
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: openfuzzctl <init|demo|infer|sweep|runs|show|template> [flags]", msg)
}
