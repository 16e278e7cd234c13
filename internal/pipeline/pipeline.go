// Package pipeline wires mapping, recovery, compliance evaluation, purge
// and audit into the per-record ingest flow and its batch driver.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"omnigest/internal/compliance"
	"omnigest/internal/platform/metrics"
	"omnigest/internal/purge"
	"omnigest/internal/purge/registry"
	"omnigest/internal/records"
	"omnigest/internal/recovery"
	"omnigest/internal/schema"
	"omnigest/pkg/domain"
	audit "omnigest/pkg/platform/audit"
	"omnigest/pkg/requestcontext"
)

// registryMargin pads purge markers past the statutory retention horizon so
// the marker never expires before the audit line it backs.
const registryMargin = 30 * 24 * time.Hour

// Pipeline processes raw rows into dispositioned canonical records. Safe
// for concurrent use; all per-record state lives on the stack.
type Pipeline struct {
	mapper   *schema.Mapper
	recovery *recovery.Service
	registry registry.Registry
	purger   *purge.Service
	policy   compliance.Policy
	store    records.Store
	audit    audit.Appender
	metrics  *metrics.Metrics
	log      *slog.Logger
	tracer   trace.Tracer
}

// Config carries the pipeline's collaborators. Store and Metrics may be
// nil; Registry and Audit must not be.
type Config struct {
	Registry registry.Registry
	Audit    audit.Appender
	Policy   compliance.Policy
	Store    records.Store
	Metrics  *metrics.Metrics
	Log      *slog.Logger
}

func New(cfg Config) *Pipeline {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		mapper:   schema.NewMapper(),
		recovery: recovery.NewService(cfg.Metrics, log),
		registry: cfg.Registry,
		purger:   purge.NewService(cfg.Audit, cfg.Policy, log),
		policy:   cfg.Policy,
		store:    cfg.Store,
		audit:    cfg.Audit,
		metrics:  cfg.Metrics,
		log:      log,
		tracer:   otel.Tracer("omnigest/pipeline"),
	}
}

// Process runs one raw row through the full flow. The returned record
// always carries a disposition except when the error is non-nil: an audit
// or storage failure leaves the disposition unset so the caller can retry
// the row without a half-applied outcome.
func (p *Pipeline) Process(ctx context.Context, raw schema.RawRecord) (schema.CanonicalRecord, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Process")
	defer span.End()

	rec := p.mapper.Map(raw)

	_, rescueSpan := p.tracer.Start(ctx, "recovery.Rescue")
	p.recovery.Rescue(&rec, raw)
	rescueSpan.SetAttributes(
		attribute.Bool("record.rescued", rec.Get(schema.KeyABHAID).RecoveredViaFallback))
	rescueSpan.End()

	now := requestcontext.Now(ctx)
	outcome := p.evaluate(ctx, &rec, now)

	switch outcome.Disposition {
	case domain.DispositionPurged:
		if err := p.executePurge(ctx, &rec, outcome.Reason, now); err != nil {
			return rec, err
		}
	case domain.DispositionQuarantined:
		p.appendNonFatal(ctx, now, audit.ActionRecordQuarantined, &rec, outcome.Reason)
	case domain.DispositionProcessed:
		p.appendNonFatal(ctx, now, audit.ActionRecordProcessed, &rec, outcome.Reason)
	}

	rec.Disposition = outcome.Disposition
	rec.StatusReason = string(outcome.Reason)

	if p.store != nil {
		if err := p.store.Save(ctx, &rec); err != nil {
			return rec, fmt.Errorf("persist record: %w", err)
		}
	}

	span.SetAttributes(
		attribute.String("record.disposition", string(rec.Disposition)),
		attribute.String("record.reason", rec.StatusReason),
	)
	p.metrics.ObserveDisposition(string(rec.Disposition), rec.StatusReason)
	return rec, nil
}

// evaluate applies the rule chain, first consulting the purge registry so
// erasure stays absorbing for subjects purged in earlier batches.
func (p *Pipeline) evaluate(ctx context.Context, rec *schema.CanonicalRecord, now time.Time) compliance.Outcome {
	if id := rec.Value(schema.KeyABHAID); domain.IsWellFormedABHA(id) {
		purged, err := p.registry.IsPurged(ctx, purge.SubjectReference(id))
		if err != nil {
			// Registry outage must not stall ingestion; the in-record
			// sentinels still catch replays of already-erased rows.
			p.log.WarnContext(ctx, "purge registry check failed", slog.Any("error", err))
		} else if purged {
			return compliance.Outcome{
				Disposition: domain.DispositionPurged,
				Reason:      compliance.ReasonAlreadyPurged,
			}
		}
	}
	return compliance.Evaluate(rec, now, p.policy)
}

// executePurge erases the record behind a confirmed audit line and marks
// the subject in the registry. Audit failure aborts before any erasure.
func (p *Pipeline) executePurge(ctx context.Context, rec *schema.CanonicalRecord, reason compliance.Reason, now time.Time) error {
	ctx, span := p.tracer.Start(ctx, "purge.Apply")
	defer span.End()

	// Derived before Apply erases the pre-image; shares the purge
	// service's name fallback so the registry marker matches the
	// audit entry's handle.
	subjectRef := purge.RecordSubjectReference(rec)

	start := time.Now()
	if err := p.purger.Apply(ctx, rec, reason, now); err != nil {
		return err
	}
	p.metrics.ObserveAuditAppend(time.Since(start))

	if err := p.registry.MarkPurged(ctx, subjectRef, p.policy.RetentionWindow()+registryMargin); err != nil {
		p.log.WarnContext(ctx, "purge registry mark failed",
			slog.String("subject_reference", subjectRef), slog.Any("error", err))
	}
	return nil
}

// appendNonFatal records a quarantine or processed event. Unlike a purge,
// these entries do not gate the disposition; a failed append is logged and
// the record proceeds.
func (p *Pipeline) appendNonFatal(ctx context.Context, now time.Time, action audit.Action, rec *schema.CanonicalRecord, reason compliance.Reason) {
	subjectRef := purge.RecordSubjectReference(rec)
	entry := audit.NewEntry(now, action, subjectRef, string(reason), p.policy.RetentionWindow())

	start := time.Now()
	if err := p.audit.Append(ctx, entry); err != nil {
		p.log.WarnContext(ctx, "audit append failed",
			slog.String("action", string(action)), slog.Any("error", err))
		return
	}
	p.metrics.ObserveAuditAppend(time.Since(start))
}
