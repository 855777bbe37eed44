package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"hyperblend/config"
	"hyperblend/models"
	"hyperblend/providers"
	"hyperblend/providers/chembl"
	"hyperblend/providers/coconut"
	"hyperblend/providers/napralert"
	"hyperblend/providers/pubchem"
	"hyperblend/providers/uniprot"
	"hyperblend/services"
	"hyperblend/storage"
)

// app bündelt, was die Kommandos brauchen.
type app struct {
	orch     *services.Orchestrator
	repo     *storage.Repository
	adapters map[string]providers.Adapter
	out      io.Writer
	logger   *zap.Logger
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

// commands ist die feste Kommandotabelle.
var commands = []command{
	{name: "enrich", usage: "enrich [-smiles S] NAME...  Verbindungen anreichern und speichern", run: runEnrich},
	{name: "fetch", usage: "fetch -source pubchem|chembl|napralert|coconut|uniprot [-id ID] [-smiles S] [NAME]  eine Quelle abfragen, ohne zu speichern", run: runFetch},
	{name: "load", usage: "load FILE.yaml  Quellen und Verbindungen aus einer Seed-Datei laden und anreichern", run: runLoad},
	{name: "cleanup-targets", usage: "cleanup-targets  nicht-menschliche Targets entfernen", run: runCleanupTargets},
	{name: "verify", usage: "verify  Graph auf Lücken prüfen", run: runVerify},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: hyperblend COMMAND [ARGS]")
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\n", c.usage)
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := lookup(os.Args[1])
	if !ok {
		usage(os.Stderr)
		logging.Fatal("Unknown command", zap.String("command", os.Args[1]))
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, closeApp, err := newApp(ctx, cfg, logging, os.Stdout)
	if err != nil {
		logging.Fatal("Setup failed", zap.Error(err))
	}
	defer closeApp()

	if err := cmd.run(ctx, a, os.Args[2:]); err != nil {
		logging.Fatal("Command failed", zap.String("command", cmd.name), zap.Error(err))
	}
}

func newApp(ctx context.Context, cfg *config.Config, logging *zap.Logger, out io.Writer) (*app, func(), error) {
	db, err := storage.OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := storage.OpenBackend(ctx, cfg, db, logging)
	if err != nil {
		return nil, nil, err
	}
	var runLog *storage.RunLog
	if db != nil {
		if runLog, err = storage.NewRunLog(db); err != nil {
			closeStore()
			return nil, nil, err
		}
	}
	orch, err := services.NewPipeline(cfg, store, runLog, logging)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	adapters := map[string]providers.Adapter{}
	for _, a := range []providers.Adapter{
		pubchem.NewFetcher(cfg, logging),
		chembl.NewFetcher(cfg, logging),
		napralert.NewFetcher(cfg, logging),
		coconut.NewFetcher(cfg, logging),
		uniprot.NewFetcher(cfg, logging),
	} {
		adapters[a.Name()] = a
	}
	return &app{orch: orch, repo: orch.Engine.Repo, adapters: adapters, out: out, logger: logging}, closeStore, nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runEnrich(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("enrich", flag.ContinueOnError)
	smiles := fs.String("smiles", "", "SMILES, gilt für alle Namen")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("enrich needs at least one compound name")
	}
	items := make([]models.CompoundRequest, 0, fs.NArg())
	for _, name := range fs.Args() {
		items = append(items, models.CompoundRequest{Name: name, SMILES: *smiles})
	}
	rep, err := a.orch.Run(ctx, "cli", items)
	if err != nil {
		return err
	}
	return a.print(rep)
}

func runFetch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	source := fs.String("source", "pubchem", "Quelle")
	id := fs.String("id", "", "Kennung in der Quelle")
	smiles := fs.String("smiles", "", "SMILES")
	if err := fs.Parse(args); err != nil {
		return err
	}
	adapter, ok := a.adapters[strings.ToLower(*source)]
	if !ok {
		names := make([]string, 0, len(a.adapters))
		for n := range a.adapters {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Errorf("unknown source %q, expected one of %s", *source, strings.Join(names, ", "))
	}
	q := models.Query{Name: strings.Join(fs.Args(), " "), SMILES: *smiles, ExternalID: *id}
	if q.Empty() {
		return fmt.Errorf("fetch needs a name, -smiles or -id")
	}
	rec, err := adapter.Fetch(ctx, q)
	if err != nil {
		return err
	}
	return a.print(rec)
}

// seedFile ist das Format der Seed-Dateien für load.
type seedFile struct {
	Sources   []models.Source          `yaml:"sources"`
	Compounds []models.CompoundRequest `yaml:"compounds"`
}

func readSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range seed.Sources {
		seed.Sources[i].Type = models.ParseSourceType(string(seed.Sources[i].Type))
	}
	for i := range seed.Compounds {
		if s := seed.Compounds[i].Source; s != nil {
			s.Type = models.ParseSourceType(string(s.Type))
		}
	}
	return &seed, nil
}

func runLoad(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("load needs exactly one seed file")
	}
	seed, err := readSeedFile(args[0])
	if err != nil {
		return err
	}
	for i := range seed.Sources {
		if _, err := a.orch.Engine.UpsertSource(ctx, &seed.Sources[i]); err != nil {
			return fmt.Errorf("source %q: %w", seed.Sources[i].Name, err)
		}
	}
	a.logger.Info("Quellen geladen", zap.Int("sources", len(seed.Sources)))
	rep, err := a.orch.Run(ctx, "load", seed.Compounds)
	if err != nil {
		return err
	}
	return a.print(rep)
}

func runCleanupTargets(ctx context.Context, a *app, args []string) error {
	removed, err := a.repo.CleanupNonHumanTargets(ctx)
	if err != nil {
		return err
	}
	return a.print(map[string]int{"removed": removed})
}

func runVerify(ctx context.Context, a *app, args []string) error {
	rep, err := a.repo.Verify(ctx)
	if err != nil {
		return err
	}
	return a.print(rep)
}
