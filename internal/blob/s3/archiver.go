package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// archiveBatchSize bounds how many events a single archive pass loads into
// memory before uploading.
const archiveBatchSize = 5000

// EventArchiveStore is the narrow view of the event log the archiver needs.
// The Postgres EventStore satisfies it.
type EventArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Event, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ArchiveImpl implements domain.Archiver by draining old marketplace events
// from the primary store into JSONL objects in S3, then deleting the archived
// rows. Deletion happens only after every batch has been uploaded, so a
// failed upload leaves the event log untouched.
type ArchiveImpl struct {
	writer domain.BlobWriter
	events EventArchiveStore
	logger *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, events EventArchiveStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		events: events,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveEvents uploads all marketplace events recorded strictly before the
// cutoff to S3 and removes them from the primary store. Events are written in
// batches to archive/events/YYYY-MM/ keys; the returned count is the number
// of archived records.
func (a *ArchiveImpl) ArchiveEvents(ctx context.Context, before time.Time) (int64, error) {
	var archived int64
	batch := 0

	for {
		events, err := a.events.ListBefore(ctx, before, archiveBatchSize)
		if err != nil {
			return archived, fmt.Errorf("s3blob: archive events query: %w", err)
		}
		if len(events) == 0 {
			break
		}

		buf, err := marshalJSONL(events)
		if err != nil {
			return archived, fmt.Errorf("s3blob: archive events marshal: %w", err)
		}

		path := archivePath(before, batch)
		if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
			return archived, fmt.Errorf("s3blob: archive events upload: %w", err)
		}

		// Delete only the batch that was uploaded. Events are returned oldest
		// first, so the last element bounds the batch.
		cutoff := events[len(events)-1].CreatedAt.Add(time.Nanosecond)
		if cutoff.After(before) {
			cutoff = before
		}
		deleted, err := a.events.DeleteBefore(ctx, cutoff)
		if err != nil {
			return archived, fmt.Errorf("s3blob: archive events delete: %w", err)
		}

		archived += deleted
		a.logger.InfoContext(ctx, "archived event batch",
			slog.String("path", path),
			slog.Int("events", len(events)),
			slog.Int64("deleted", deleted),
		)

		if len(events) < archiveBatchSize {
			break
		}
		batch++
	}

	return archived, nil
}

// archivePath builds the S3 key for an archive batch, partitioned by the
// year-month of the cutoff time.
//
//	archive/events/2026-08/batch-0.jsonl
func archivePath(before time.Time, batch int) string {
	return fmt.Sprintf("archive/events/%s/batch-%d.jsonl", before.Format("2006-01"), batch)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
