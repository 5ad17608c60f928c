package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/cognicore/sensedrift/pkg/sensedrift"
	"github.com/cognicore/sensedrift/pkg/sensedrift/config"
	"github.com/cognicore/sensedrift/pkg/sensedrift/hdp"
	"github.com/cognicore/sensedrift/pkg/sensedrift/store/sqlite"
)

type report struct {
	RunID     string        `json:"run_id"`
	VocabSize int           `json:"vocab_size"`
	Documents int           `json:"documents"`
	Senses    int           `json:"senses"`
	Ranking   []rankedWord  `json:"ranking"`
	Targets   []targetEntry `json:"targets,omitempty"`
}

type rankedWord struct {
	Word    string  `json:"word"`
	Novelty float64 `json:"novelty"`
	Sense   int     `json:"sense"`
}

type targetEntry struct {
	Word string  `json:"word"`
	JSD  float64 `json:"jsd"`
}

func main() {
	var (
		cfgPath   = flag.String("config", "", "Path to run config YAML (required)")
		reference = flag.String("reference", "", "Override: reference corpus file")
		focus     = flag.String("focus", "", "Override: focus corpus file")
		output    = flag.String("output", "", "Override: snapshot output directory")
		quiet     = flag.Bool("quiet", false, "Suppress the sampling progress bar")
	)
	flag.Parse()

	if *cfgPath == "" {
		log.Fatal("--config required")
	}

	cfg, err := config.LoadRun(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *reference != "" {
		cfg.Reference = *reference
	}
	if *focus != "" {
		cfg.Focus = *focus
	}
	if *output != "" {
		cfg.Output = *output
	}
	if cfg.Output == "" {
		log.Fatal("output directory required (config `output` or --output)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := sqlite.Open(cfg.Output)
	if err != nil {
		log.Fatalf("open snapshot store: %v", err)
	}
	defer st.Close()

	opts := sensedrift.Options{
		Config:  cfg,
		Store:   st,
		Sampler: hdp.NewFrozen(),
	}
	if !*quiet {
		opts.Progress = os.Stderr
	}

	pipe, err := sensedrift.New(opts)
	if err != nil {
		log.Fatalf("configure pipeline: %v", err)
	}

	result, err := pipe.Run(ctx)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	rep := report{
		RunID:     result.RunID,
		VocabSize: result.VocabSize,
		Documents: result.Documents,
		Senses:    result.Senses,
	}
	for _, s := range result.Ranking {
		rep.Ranking = append(rep.Ranking, rankedWord{Word: s.Word, Novelty: s.Novelty, Sense: s.Sense})
	}
	for _, t := range result.Targets {
		rep.Targets = append(rep.Targets, targetEntry{Word: t.Word, JSD: t.JSD})
	}

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatalf("marshal report: %v", err)
	}
	fmt.Println(string(out))
}
