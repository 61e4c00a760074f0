package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"diabetes-risk/internal/adapters/config"
	pgclient "diabetes-risk/internal/adapters/postgres"
	"diabetes-risk/internal/domain/evaluation"
	"diabetes-risk/internal/domain/insights"
	"diabetes-risk/internal/ml"
	filerepo "diabetes-risk/internal/repository/file"
	pgrepo "diabetes-risk/internal/repository/postgres"
	insightsservice "diabetes-risk/internal/services/insights"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Held-out CSV (defaults to INSIGHTS_EVALUATION_CSV, then the Postgres table)")
	threshold := flag.Float64("threshold", insightsservice.DefaultThreshold, "Decision threshold on the positive-class score")
	importCSV := flag.Bool("import", false, "Copy the CSV into the Postgres evaluation table and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()

	if *csvPath == "" {
		*csvPath = cfg.Insights.EvaluationCSV
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *importCSV {
		if err := importSamples(ctx, cfg, *csvPath, log); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		return
	}

	source, closeFn, err := openSource(cfg, *csvPath)
	if err != nil {
		log.Fatalf("No evaluation set: %v", err)
	}
	defer closeFn()

	model, err := ml.Load(ml.Config{
		ScalerPath:        cfg.Model.ScalerPath,
		ModelPath:         cfg.Model.ClassifierPath,
		SharedLibraryPath: cfg.Model.SharedLibraryPath,
		LabelOutput:       cfg.Model.LabelOutput,
		ScoreOutput:       cfg.Model.ScoreOutput,
		ScoreKind:         cfg.Model.ScoreKind,
	})
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	defer model.Close()

	log.Infow("Evaluating model",
		"source", source.Name(),
		"scorer", model.Kind(),
		"version", model.Info().Version,
		"threshold", *threshold,
	)

	svc := insightsservice.NewService(insightsservice.Config{}, model, source, nil, log)

	t, err := insightsservice.ClampThreshold(*threshold)
	if err != nil {
		log.Fatalf("Invalid threshold: %v", err)
	}

	perf, err := svc.Evaluate(ctx, t)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}

	printReport(os.Stdout, source.Name(), model.Info(), perf)
}

// openSource picks the CSV when given, the Postgres table otherwise
func openSource(cfg *config.Config, csvPath string) (evaluation.Source, func(), error) {
	if csvPath != "" {
		return filerepo.NewEvaluationCSV(csvPath), func() {}, nil
	}

	if !cfg.Postgres.Enabled {
		return nil, nil, errors.New("set -csv, INSIGHTS_EVALUATION_CSV or POSTGRES_ENABLED")
	}

	pg, err := pgclient.NewClient(cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}

	repo, err := pgrepo.NewEvaluationRepository(pg.DB(), cfg.Insights.EvaluationTable)
	if err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	return repo, func() { _ = pg.Close() }, nil
}

func importSamples(ctx context.Context, cfg *config.Config, csvPath string, log *logger.Logger) error {
	if csvPath == "" {
		return errors.New("-import needs -csv or INSIGHTS_EVALUATION_CSV")
	}

	samples, err := filerepo.NewEvaluationCSV(csvPath).Samples(ctx)
	if err != nil {
		return err
	}

	pg, err := pgclient.NewClient(cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	repo, err := pgrepo.NewEvaluationRepository(pg.DB(), cfg.Insights.EvaluationTable)
	if err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.Insert(ctx, samples); err != nil {
		return err
	}

	log.Infow("✅ Evaluation set imported",
		"rows", humanize.Comma(int64(len(samples))),
		"table", cfg.Insights.EvaluationTable,
	)
	return nil
}

func printReport(out io.Writer, source string, info ml.Info, perf *insights.Performance) {
	c := perf.Confusion
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Source\t%s (%s samples)\n", source, humanize.Comma(int64(perf.Samples)))
	fmt.Fprintf(w, "Model\t%s, %s, version %s\n", info.Format, info.Kind, info.Version)
	if perf.Threshold == insightsservice.DefaultThreshold {
		fmt.Fprintf(w, "Threshold\t%.2f (scorer class)\n", perf.Threshold)
	} else {
		fmt.Fprintf(w, "Threshold\t%.2f (p >= threshold)\n", perf.Threshold)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Accuracy\t%.4f\n", c.Accuracy)
	fmt.Fprintf(w, "Precision\t%.4f\n", c.Precision)
	fmt.Fprintf(w, "Recall\t%.4f\n", c.Recall)
	fmt.Fprintf(w, "F1\t%.4f\n", c.F1Score)
	fmt.Fprintf(w, "ROC AUC\t%.4f\n", perf.AUC)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Confusion matrix\tpredicted 0\tpredicted 1")
	fmt.Fprintf(w, "actual 0\t%d\t%d\n", c.TrueNegative, c.FalsePositive)
	fmt.Fprintf(w, "actual 1\t%d\t%d\n", c.FalseNegative, c.TruePositive)

	_ = w.Flush()
}
