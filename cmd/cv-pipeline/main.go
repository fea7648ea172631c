// cv-pipeline extracts structured candidate records from uploaded CVs.
//
// Modes:
//
//	cv-pipeline --dir ./cvs            process local files, then exit
//	cv-pipeline --backfill [--prefix p] process the originals bucket, then exit
//	cv-pipeline --worker               consume upload events until interrupted
//	cv-pipeline --search-skill Python  query persisted candidates
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/config"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/extractor"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/logger"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/parser"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/pipeline"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/storage"
)

var version = "1.0.0" //nolint:gochecknoglobals

func main() {
	var (
		configPath     string
		localDir       string
		backfill       bool
		bucketPrefix   string
		runWorker      bool
		searchName     string
		searchSkill    string
		searchMinScore int
		showVersion    bool
	)
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	pflag.StringVar(&localDir, "dir", "", "process every file in this directory, then exit")
	pflag.BoolVar(&backfill, "backfill", false, "process the originals bucket, then exit")
	pflag.StringVar(&bucketPrefix, "prefix", "", "object key prefix for --backfill")
	pflag.BoolVar(&runWorker, "worker", false, "consume upload events until interrupted")
	pflag.StringVar(&searchName, "search-name", "", "list candidates matching this name")
	pflag.StringVar(&searchSkill, "search-skill", "", "list candidates with this skill")
	pflag.IntVar(&searchMinScore, "search-min-score", 0, "minimum confidence score for search")
	pflag.BoolVar(&showVersion, "version", false, "print version and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println("cv-pipeline", version)
		return
	}

	// Credentials may come from a local .env instead of the shell.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	store, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("initializing storage failed")
	}
	defer store.Close()

	ext := extractor.New(extractor.WithExtraSkills(cfg.Extractor.ExtraSkills))

	// An interface holding a typed nil is not nil; only assign Redis when it
	// actually initialized.
	var dedup pipeline.DedupCache
	if store.Redis != nil {
		dedup = store.Redis
	}
	pipe := pipeline.NewPipeline(store.MySQL, store.MySQL, store.MinIO, dedup, ext, cfg.Pipeline)

	switch {
	case localDir != "":
		if err := processLocalDir(ctx, pipe, localDir); err != nil {
			logger.Fatal().Err(err).Msg("processing local directory failed")
		}
	case backfill:
		results, err := pipe.ProcessBucketPrefix(ctx, bucketPrefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("backfill failed")
		}
		summarize(results)
	case runWorker:
		if store.RabbitMQ == nil {
			logger.Fatal().Msg("worker mode requires rabbitmq")
		}
		stopCh, err := pipe.StartUploadConsumer(ctx, store.RabbitMQ, cfg.RabbitMQ.UploadedQueue, cfg.RabbitMQ.PrefetchCount)
		if err != nil {
			logger.Fatal().Err(err).Msg("starting upload consumer failed")
		}
		logger.Info().Str("queue", cfg.RabbitMQ.UploadedQueue).Msg("worker running, ctrl-c to stop")
		<-ctx.Done()
		close(stopCh)
	case searchName != "" || searchSkill != "" || searchMinScore > 0:
		if err := runSearch(ctx, store, searchName, searchSkill, searchMinScore); err != nil {
			logger.Fatal().Err(err).Msg("search failed")
		}
	default:
		pflag.Usage()
		os.Exit(2)
	}
}

// processLocalDir decodes and ingests every regular file in dir. Unreadable
// or unsupported files are logged and skipped.
func processLocalDir(ctx context.Context, pipe *pipeline.Pipeline, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var processed, failed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("reading file failed, skipping")
			failed++
			continue
		}
		text, err := parser.DecodeText(data)
		if err != nil {
			logger.Warn().Err(err).Str("file", path).Msg("decoding file failed, skipping")
			failed++
			continue
		}

		result, err := pipe.ProcessText(ctx, path, text)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("processing file failed")
			failed++
			continue
		}
		logger.Info().
			Str("file", path).
			Str("outcome", result.Outcome).
			Str("candidat_id", result.CandidatID).
			Int("score", result.Score).
			Msg("file processed")
		processed++
	}

	logger.Info().Int("processed", processed).Int("failed", failed).Msg("local directory done")
	return nil
}

func summarize(results []*pipeline.Result) {
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Outcome]++
	}
	logger.Info().
		Int("inserted", counts[pipeline.OutcomeInserted]).
		Int("updated", counts[pipeline.OutcomeUpdated]).
		Int("skipped", counts[pipeline.OutcomeSkipped]).
		Int("duplicates", counts[pipeline.OutcomeDuplicate]).
		Int("failed", counts[pipeline.OutcomeFailed]).
		Msg("batch done")
}

func runSearch(ctx context.Context, store *storage.Storage, name, skill string, minScore int) error {
	rows, err := store.MySQL.SearchCandidates(ctx, storage.SearchQuery{
		Name:     name,
		Skill:    skill,
		MinScore: minScore,
	})
	if err != nil {
		return err
	}

	type hit struct {
		ID     string  `json:"candidat_id"`
		Nom    *string `json:"nom"`
		Prenom *string `json:"prenom"`
		Email  *string `json:"email"`
		Score  int     `json:"score"`
	}
	hits := make([]hit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, hit{
			ID:     row.CandidatID,
			Nom:    row.Nom,
			Prenom: row.Prenom,
			Email:  row.Email,
			Score:  row.Score,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(hits)
}
