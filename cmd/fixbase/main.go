// Copyright 2026 Fixbase Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/fixbase/fixbase"
	"github.com/fixbase/fixbase/ai"
	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/search"
)

func main() {
	app := &cli.App{
		Name:  "fixbase",
		Usage: "Knowledge atom store with coverage routing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a local document into the atom store",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags: append(dbFlags(),
					&cli.StringFlag{
						Name:  "source-url",
						Usage: "Source URL recorded in citations (defaults to the file path)",
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Payload content type",
						Value: "text/html",
					},
				),
			},
			{
				Name:      "coverage",
				Usage:     "Evaluate atom coverage for a query and show the selected route",
				ArgsUsage: "<query>",
				Action:    coverageCommand,
				Flags:     dbFlags(),
			},
			{
				Name:      "search",
				Usage:     "Search stored atoms",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(dbFlags(),
					&cli.StringFlag{
						Name:  "manufacturer",
						Usage: "Restrict results to one manufacturer",
					},
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of results",
						Value: 10,
					},
				),
			},
			{
				Name:  "review",
				Usage: "Work the human review queue",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List entries awaiting review",
						Action: reviewListCommand,
						Flags:  dbFlags(),
					},
					{
						Name:      "approve",
						Usage:     "Approve an entry and store it as an atom",
						ArgsUsage: "<entry-id>",
						Action:    reviewApproveCommand,
						Flags:     dbFlags(),
					},
					{
						Name:      "reject",
						Usage:     "Reject and discard an entry",
						ArgsUsage: "<entry-id>",
						Action:    reviewRejectCommand,
						Flags:     dbFlags(),
					},
				},
			},
			{
				Name:  "jobs",
				Usage: "Inspect ingestion jobs",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List all job records",
						Action: jobsListCommand,
						Flags:  dbFlags(),
					},
					{
						Name:      "inspect",
						Usage:     "Show one job's stage timings and errors",
						ArgsUsage: "<job-id>",
						Action:    jobsInspectCommand,
						Flags:     dbFlags(),
					},
				},
			},
			{
				Name:   "sweep",
				Usage:  "Re-enqueue failed ingestions that are due for retry",
				Action: sweepCommand,
				Flags:  dbFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "ai-host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "generator-model",
			Usage: "Atom generation model name",
			Value: "qwen2.5:3b",
		},
	}
}

func openSystem(c *cli.Context) (*fixbase.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorModel(c.String("generator-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return fixbase.New(c.String("db"), fixbase.WithAIConfig(aiConfig))
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	sourceURL := c.String("source-url")
	if sourceURL == "" {
		sourceURL = path
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	result, err := system.Ingest(context.Background(), sourceURL, payload, c.String("content-type"))
	if err != nil {
		return err
	}

	fmt.Printf("atoms created: %d\n", result.AtomsCreated)
	fmt.Printf("atoms failed:  %d\n", result.AtomsFailed)
	if result.Duplicate {
		fmt.Println("content already ingested (fingerprint match)")
	}
	for _, msg := range result.Errors {
		fmt.Printf("error: %s\n", msg)
	}
	if !result.Success() {
		return fmt.Errorf("ingestion failed")
	}
	return nil
}

func coverageCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected a query argument")
	}
	query := strings.Join(c.Args().Slice(), " ")

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	decision := system.EvaluateCoverage(context.Background(), query)
	eval := decision.Evaluation

	fmt.Printf("route:         %s\n", decision.Route)
	fmt.Printf("confidence:    %.2f\n", decision.Confidence)
	fmt.Printf("reason:        %s\n", decision.Reason)
	fmt.Printf("manufacturer:  %s (%.2f)\n", orDash(eval.Manufacturer), eval.ManufacturerConfidence)
	fmt.Printf("atom count:    %d\n", eval.AtomCount)
	fmt.Printf("avg relevance: %.2f\n", eval.AvgRelevance)
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("expected a query argument")
	}
	query := strings.Join(c.Args().Slice(), " ")

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	filters := search.Filters{Manufacturer: c.String("manufacturer")}
	results, err := system.SearchAtoms(context.Background(), query, filters, c.Int("max-hits"))
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no matching atoms")
		return nil
	}
	for _, result := range results {
		atom := result.Atom
		fmt.Printf("%.2f  [%s] %s (%d)\n", result.Score, atom.Kind, atom.Title, atom.Id)
		fmt.Printf("      %s\n", atom.Summary)
	}
	return nil
}

func reviewListCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	entries, err := system.PendingReviews(context.Background())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no entries awaiting review")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%d  score=%d  [%s] %s\n",
			entry.Id, entry.Atom.QualityScore, entry.Atom.Kind, entry.Atom.Title)
	}
	return nil
}

func reviewApproveCommand(c *cli.Context) error {
	id, err := parseIDArg(c)
	if err != nil {
		return err
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	atom, err := system.ApproveReview(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Printf("stored atom %d: %s\n", atom.Id, atom.Title)
	return nil
}

func reviewRejectCommand(c *cli.Context) error {
	id, err := parseIDArg(c)
	if err != nil {
		return err
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	if err := system.RejectReview(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("rejected entry %d\n", id)
	return nil
}

func jobsListCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	jobs, err := system.Store().ListJobs(context.Background())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no job records")
		return nil
	}
	for _, job := range jobs {
		fmt.Printf("%s  %-9s  prio=%d  created=%d failed=%d  %s\n",
			job.Id, job.Status, job.Priority, job.AtomsCreated, job.AtomsFailed, job.Source.String())
	}
	return nil
}

func jobsInspectCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one job-id argument")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	job, err := system.Store().GetJob(context.Background(), c.Args().First())
	if err != nil {
		return err
	}

	fmt.Printf("job:           %s\n", job.Id)
	fmt.Printf("source:        %s\n", job.Source.String())
	fmt.Printf("status:        %s\n", job.Status)
	fmt.Printf("priority:      %d\n", job.Priority)
	fmt.Printf("atoms created: %d\n", job.AtomsCreated)
	fmt.Printf("atoms failed:  %d\n", job.AtomsFailed)
	if len(job.Hints) > 0 {
		fmt.Printf("hints:         %s\n", strings.Join(job.Hints, ", "))
	}
	if len(job.StageTimings) > 0 {
		fmt.Println("stage timings:")
		for stage, elapsed := range job.StageTimings {
			fmt.Printf("  %-12s %s\n", stage, elapsed)
		}
	}
	for _, msg := range job.Errors {
		fmt.Printf("error: %s\n", msg)
	}
	return nil
}

func sweepCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	enqueued, err := system.SweepFailures(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("re-enqueued %d failed ingestion(s)\n", enqueued)
	return nil
}

func parseIDArg(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one entry-id argument")
	}
	raw, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entry id %q: %w", c.Args().First(), err)
	}
	return core.ID(raw), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
