package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/standings/internal/domain/dedupe"
	"github.com/okian/standings/internal/domain/delta"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/ranking"
	"github.com/okian/standings/pkg/metrics"
	"github.com/okian/standings/pkg/tracing"
)

// ErrNoRecords is returned when extraction succeeds but yields nothing.
var ErrNoRecords = errors.New("extraction returned no records")

// Fetcher retrieves the raw leaderboard text.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Extractor turns raw text into records.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]model.Record, error)
}

// Failure is a pipeline error tagged with the stage that raised it.
type Failure struct {
	Stage model.Stage
	Err   error
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %v", f.Stage, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }

// Result is the outcome of one successful pipeline run.
type Result struct {
	// Current holds the deduplicated records in extraction order. It becomes
	// the next reference.
	Current []model.Record
	// Snapshot is the ranked, delta-annotated view to publish.
	Snapshot   model.Snapshot
	Extracted  int
	Duplicates int
}

// Pipeline runs fetch, extract, dedupe, delta and rank. It holds no state
// between runs; the caller passes the previous reference in.
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	tracer    trace.Tracer
	now       func() time.Time
}

// NewPipeline wires a pipeline.
func NewPipeline(f Fetcher, e Extractor) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		extractor: e,
		tracer:    tracing.Tracer("standings/pipeline"),
		now:       time.Now,
	}
}

// Execute runs the pipeline once against ref. Errors are *Failure.
func (p *Pipeline) Execute(ctx context.Context, ref *model.Reference) (Result, error) {
	fctx, span := p.tracer.Start(ctx, "refresh.fetch")
	start := time.Now()
	text, err := p.fetcher.Fetch(fctx)
	endSpan(span, err)
	if err != nil {
		return Result{}, &Failure{Stage: model.StageFetch, Err: err}
	}
	metrics.RecordFetch(time.Since(start), len(text))

	ectx, span := p.tracer.Start(ctx, "refresh.extract")
	start = time.Now()
	records, err := p.extractor.Extract(ectx, text)
	if err == nil && len(records) == 0 {
		err = ErrNoRecords
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	endSpan(span, err)
	if err != nil {
		return Result{}, &Failure{Stage: model.StageExtract, Err: err}
	}
	metrics.RecordExtraction(time.Since(start), len(records))

	current := dedupe.Records(ctx, records)
	dups := len(records) - len(current)
	metrics.RecordDuplicatesDropped(dups)

	ranked := ranking.Rank(delta.Calculate(current, ref))
	return Result{
		Current:    current,
		Snapshot:   model.Snapshot{Entries: ranked, TakenAt: p.now()},
		Extracted:  len(records),
		Duplicates: dups,
	}, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
