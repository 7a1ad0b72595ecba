// Package graph drives one debate through the pipeline and commits the
// resulting argument graph atomically.
package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-debate-graph-service/internal/events"
	"ai-debate-graph-service/internal/models"
	"ai-debate-graph-service/internal/observability/logging"
	"ai-debate-graph-service/internal/observability/metrics"
	"ai-debate-graph-service/internal/oracle"
	"ai-debate-graph-service/internal/service/argument"
	"ai-debate-graph-service/internal/service/relation"
	"ai-debate-graph-service/internal/service/segment"
	"ai-debate-graph-service/internal/service/transcription"
)

// DefaultTitle is used when a run is submitted without a title.
const DefaultTitle = "Untitled debate"

const (
	defaultCommitTimeout = 30 * time.Second
	publishTimeout       = 10 * time.Second
)

// Committer persists a fully assembled debate in one transaction.
type Committer interface {
	CommitDebate(ctx context.Context, g *models.DebateGraph) (int64, error)
}

// EventSink receives debate lifecycle events.
type EventSink interface {
	PublishCreated(ctx context.Context, event events.DebateCreated) error
	PublishFailed(ctx context.Context, event events.DebateFailed) error
}

// Config tunes the pipeline.
type Config struct {
	AnalysisConcurrency int
	// MaxRelationPairs bounds relation verdicts per debate. 0 is unbounded.
	MaxRelationPairs int
	// CommitTimeout bounds the persistence transaction. It is the only
	// deadline the commit observes once started.
	CommitTimeout time.Duration
}

// Deps are the collaborators of an Assembler. Transcribers and Oracles are
// factories because credentials arrive with each run.
type Deps struct {
	Transcribers transcription.Factory
	Oracles      oracle.Factory
	Store        Committer
	Events       EventSink
	Metrics      *metrics.Metrics
}

// Request is one pipeline run. When Transcript is set, transcription is
// skipped and Audio is ignored.
type Request struct {
	Title                   string
	Description             string
	Audio                   []byte
	Transcript              *models.Transcript
	TranscriptionCredential string
	OracleCredential        string
}

// Outcome describes a committed debate.
type Outcome struct {
	RunID                string   `json:"run_id"`
	DebateID             int64    `json:"debate_id"`
	Title                string   `json:"title"`
	Speakers             []string `json:"speakers"`
	AudioDuration        float64  `json:"audio_duration"`
	Segments             int      `json:"segments"`
	Arguments            int      `json:"arguments"`
	Relations            int      `json:"relations"`
	SegmentationFallback bool     `json:"segmentation_fallback"`
}

// Assembler sequences transcription, segmentation, analysis and relation
// inference, then commits the debate. All oracle calls finish before the
// transaction opens.
type Assembler struct {
	cfg     Config
	deps    Deps
	metrics *metrics.Metrics
}

// New creates an Assembler. Deps.Store is required; Deps.Events may be nil.
func New(cfg Config, deps Deps) *Assembler {
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = defaultCommitTimeout
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Assembler{
		cfg:     cfg,
		deps:    deps,
		metrics: m,
	}
}

// run is the per-run state. Nothing in it is shared between runs.
type run struct {
	lc       *Lifecycle
	logger   zerolog.Logger
	stageLog zerolog.Logger
	stage    Stage
	began    time.Time
}

// Run executes the pipeline for req. On failure the returned error is a
// *StageError and nothing has been persisted.
func (a *Assembler) Run(ctx context.Context, req Request) (*Outcome, error) {
	if req.Title == "" {
		req.Title = DefaultTitle
	}
	r := &run{lc: NewLifecycle(uuid.NewString())}
	r.logger = logging.WithRun(r.lc.RunID())

	// Caller cancellation fails the run until the commit starts.
	stop := context.AfterFunc(ctx, func() {
		if err := r.lc.Cancel(); errors.Is(err, ErrCommitInProgress) {
			r.logger.Warn().Msg("Cancellation ignored, commit in progress")
		}
	})
	defer stop()

	a.metrics.RecordRunStart()
	start := time.Now()
	r.logger.Info().
		Str("title", req.Title).
		Int("audioBytes", len(req.Audio)).
		Bool("transcriptSupplied", req.Transcript != nil).
		Msg("Run started")

	out, err := a.execute(ctx, r, req)
	elapsed := time.Since(start)
	if err != nil {
		se := classify(ctx, r.stage, err)
		r.lc.Fail()
		a.metrics.RecordRunEnd(string(se.Kind), elapsed.Seconds())
		r.logger.Error().
			Err(se.Err).
			Str("stage", string(se.Stage)).
			Str("kind", string(se.Kind)).
			Dur("duration", elapsed).
			Msg("Run failed")
		a.publishFailed(ctx, r, req.Title, se)
		return nil, se
	}

	a.metrics.RecordRunEnd("committed", elapsed.Seconds())
	dl := logging.WithDebate(out.DebateID)
	dl.Info().
		Str("runId", out.RunID).
		Int("arguments", out.Arguments).
		Int("relations", out.Relations).
		Dur("duration", elapsed).
		Msg("Run committed")
	a.publishCreated(ctx, out)
	return out, nil
}

func (a *Assembler) execute(ctx context.Context, r *run, req Request) (*Outcome, error) {
	out := &Outcome{RunID: r.lc.RunID(), Title: req.Title}

	// Build the oracle first so a bad credential fails before any
	// transcription spend. It is first indispensable in analysis.
	r.stage = StageAnalysis
	orc, err := a.deps.Oracles(req.OracleCredential)
	if err != nil {
		return nil, fmt.Errorf("create oracle: %w", err)
	}

	t := req.Transcript
	if t == nil {
		if err := a.enter(ctx, r, StateTranscribing, StageTranscription); err != nil {
			return nil, err
		}
		if t, err = a.transcribe(ctx, req); err != nil {
			return nil, err
		}
		a.leave(r)
	} else if err := transcription.Check(t); err != nil {
		r.stage = StageTranscription
		return nil, err
	}
	out.Speakers = t.Speakers()
	out.AudioDuration = t.AudioDuration

	if err := a.enter(ctx, r, StateSegmenting, StageSegmentation); err != nil {
		return nil, err
	}
	merged, err := segment.NewMerger(orc, a.metrics).Merge(ctx, t.Utterances)
	if err != nil {
		return nil, err
	}
	out.Segments = len(merged.Segments)
	out.SegmentationFallback = merged.Fallback
	a.leave(r)

	if err := a.enter(ctx, r, StateAnalyzing, StageAnalysis); err != nil {
		return nil, err
	}
	args, err := argument.NewAnalyzer(orc, a.cfg.AnalysisConcurrency, a.metrics).AnalyzeAll(ctx, merged.Segments)
	if err != nil {
		return nil, err
	}
	a.leave(r)

	if err := a.enter(ctx, r, StateRelating, StageRelations); err != nil {
		return nil, err
	}
	rels, err := relation.NewEngine(orc, a.cfg.MaxRelationPairs, a.metrics).Infer(ctx, args)
	if err != nil {
		return nil, err
	}
	graphable := models.Graphable(rels)
	for range len(rels) - len(graphable) {
		a.metrics.RecordRelationDiscarded("none")
	}
	a.leave(r)

	// Last point at which cancellation is honoured.
	if err := a.enter(ctx, r, StateCommitting, StagePersistence); err != nil {
		return nil, err
	}
	id, err := a.commit(ctx, &models.DebateGraph{
		Title:       req.Title,
		Description: req.Description,
		Transcript:  t,
		Arguments:   args,
		Relations:   rels,
	})
	if err != nil {
		return nil, err
	}
	if err := r.lc.Advance(StateCommitted); err != nil {
		return nil, err
	}
	a.leave(r)

	out.DebateID = id
	out.Arguments = len(args)
	out.Relations = len(graphable)
	return out, nil
}

// enter moves the run into state. Before COMMITTING, a done ctx fails the
// run here instead of starting the next stage.
func (a *Assembler) enter(ctx context.Context, r *run, state RunState, stage Stage) error {
	r.stage = stage
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Kind: KindCanceled, Err: err}
	}
	if err := r.lc.Advance(state); err != nil {
		if ctx.Err() != nil {
			return &StageError{Stage: stage, Kind: KindCanceled, Err: ctx.Err()}
		}
		return err
	}
	r.began = time.Now()
	r.stageLog = logging.WithStage(r.lc.RunID(), string(stage))
	r.stageLog.Info().Msg("Stage started")
	return nil
}

func (a *Assembler) leave(r *run) {
	elapsed := time.Since(r.began)
	a.metrics.RecordStage(string(r.stage), elapsed.Seconds())
	r.stageLog.Info().
		Dur("duration", elapsed).
		Msg("Stage finished")
}

func (a *Assembler) transcribe(ctx context.Context, req Request) (*models.Transcript, error) {
	tr, err := a.deps.Transcribers(ctx, req.TranscriptionCredential)
	if err != nil {
		return nil, fmt.Errorf("create transcriber: %w", err)
	}
	if c, ok := tr.(io.Closer); ok {
		defer c.Close()
	}

	t, err := tr.Transcribe(ctx, req.Audio)
	if err != nil {
		return nil, err
	}
	if err := transcription.Check(t); err != nil {
		return nil, err
	}
	return t, nil
}

// commit runs the transaction on a context detached from the caller, so a
// started commit either completes or rolls back on CommitTimeout.
func (a *Assembler) commit(ctx context.Context, g *models.DebateGraph) (int64, error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.CommitTimeout)
	defer cancel()

	id, err := a.deps.Store.CommitDebate(cctx, g)
	a.metrics.RecordCommit(err)
	return id, err
}

func (a *Assembler) publishCreated(ctx context.Context, out *Outcome) {
	if a.deps.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := a.deps.Events.PublishCreated(pctx, events.DebateCreated{
		EventType:            events.TypeDebateCreated,
		RunID:                out.RunID,
		DebateID:             out.DebateID,
		Title:                out.Title,
		Speakers:             out.Speakers,
		AudioDuration:        out.AudioDuration,
		Arguments:            out.Arguments,
		Relations:            out.Relations,
		SegmentationFallback: out.SegmentationFallback,
		Timestamp:            time.Now().UTC(),
	})
	if err != nil {
		dl := logging.WithDebate(out.DebateID)
		dl.Warn().Err(err).Str("runId", out.RunID).Msg("Failed to publish debate.created")
	}
}

func (a *Assembler) publishFailed(ctx context.Context, r *run, title string, se *StageError) {
	if a.deps.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := a.deps.Events.PublishFailed(pctx, events.DebateFailed{
		EventType: events.TypeDebateFailed,
		RunID:     r.lc.RunID(),
		Title:     title,
		Stage:     string(se.Stage),
		Kind:      string(se.Kind),
		Error:     se.Err.Error(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to publish debate.failed")
	}
}
