package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/ilagnev/barnes-tms-extract/pkg/config"
	"github.com/ilagnev/barnes-tms-extract/pkg/logger"
	"github.com/ilagnev/barnes-tms-extract/pkg/progress"
	"github.com/ilagnev/barnes-tms-extract/pkg/record"
	"github.com/ilagnev/barnes-tms-extract/pkg/status"
	"github.com/ilagnev/barnes-tms-extract/pkg/tms"
	"github.com/ilagnev/barnes-tms-extract/pkg/warnings"
	"github.com/ilagnev/barnes-tms-extract/pkg/writer"
)

// Source iterates the remote collection. Count and HasMore failures abort
// the whole run; Next failures skip one object and the iteration continues.
// Next returns (nil, nil) as the end-of-collection sentinel.
type Source interface {
	Count(ctx context.Context) (int, error)
	HasMore(ctx context.Context) (bool, error)
	Next(ctx context.Context) (*tms.Object, error)
}

// Snapshot is the externally visible run state
type Snapshot struct {
	RunID     string
	Active    bool
	CSV       string
	Processed int
	Total     int
	Status    status.ExportStatus
}

// Controller drives a single export run: one counting phase, one
// item-by-item iteration phase, exactly one finalization. A Controller
// is good for one Run call.
type Controller struct {
	cfg      *config.Config
	source   Source
	notifier progress.Notifier
	log      *logger.Logger

	mu        sync.RWMutex
	runID     string
	active    bool
	processed int
	total     int
	csvPath   string
	store     *status.Store
}

// NewController creates a controller for one export run
func NewController(cfg *config.Config, source Source, notifier progress.Notifier, log *logger.Logger) *Controller {
	if notifier == nil {
		notifier = progress.Nop{}
	}
	return &Controller{
		cfg:      cfg,
		source:   source,
		notifier: notifier,
		log:      log,
	}
}

// Run executes the export and resolves with the final snapshot.
//
// Configuration and output-directory errors are returned directly, before
// any collaborator exists. Every failure discovered after the run has
// started is folded into a terminal ERROR status instead: the call still
// returns a nil error and callers must inspect Snapshot.Status. That
// asymmetry is part of the contract.
func (c *Controller) Run(ctx context.Context) (Snapshot, error) {
	if err := c.cfg.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(c.cfg.Export.OutputDirectory, 0755); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create export root: %w", err)
	}

	// One export run at a time per export root: two runs started in the
	// same second would collide on the directory name
	lock := flock.New(filepath.Join(c.cfg.Export.OutputDirectory, ".export.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to acquire export lock: %w", err)
	}
	if !locked {
		return Snapshot{}, fmt.Errorf("another export run is already in progress under %s", c.cfg.Export.OutputDirectory)
	}
	defer lock.Unlock()

	runDir := filepath.Join(c.cfg.Export.OutputDirectory, time.Now().Format("20060102-150405"))
	if err := os.Mkdir(runDir, 0755); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create run directory: %w", err)
	}

	runID := uuid.New().String()
	runLog := c.log.WithContext(ctx).WithRunID(runID).WithComponent("exporter")

	store, err := status.NewStore(runDir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to initialize status store: %w", err)
	}

	sink, err := writer.New(c.cfg.Export.Format)
	if err != nil {
		return Snapshot{}, err
	}
	outName := "objects.csv"
	if c.cfg.Export.Format == "xlsx" {
		outName = "objects.xlsx"
	}
	outPath := filepath.Join(runDir, outName)
	if err := sink.Initialize(ctx, outPath); err != nil {
		return Snapshot{}, fmt.Errorf("failed to initialize record sink: %w", err)
	}
	if err := sink.WriteHeader(c.cfg.FieldNames()); err != nil {
		sink.Cleanup()
		return Snapshot{}, fmt.Errorf("failed to write header: %w", err)
	}

	collector, err := warnings.NewCollector(ctx, c.cfg.Warnings, c.cfg.Export.Fields, filepath.Join(runDir, "warnings.csv"))
	if err != nil {
		sink.Cleanup()
		return Snapshot{}, err
	}

	c.mu.Lock()
	c.runID = runID
	c.active = true
	c.processed = 0
	c.total = 0
	c.csvPath = outPath
	c.store = store
	c.mu.Unlock()

	runLog.LogRunStarted("Export run started", logger.Fields{
		"run_dir": runDir,
		"format":  c.cfg.Export.Format,
		"fields":  len(c.cfg.Export.Fields),
	})
	c.notifier.Started(c.update())

	start := time.Now()
	builder := record.NewBuilder(c.cfg.Export.Fields, c.cfg.PrimaryKey())

	// Counting phase. A configured debug limit stands in for the true
	// collection size and skips the count call entirely.
	limited := c.cfg.Debug.Limit > 0
	if limited {
		c.setTotal(c.cfg.Debug.Limit)
	} else {
		total, err := c.source.Count(ctx)
		if err != nil {
			runLog.LogRunFailed("Counting the collection failed", "COUNT_ERROR", err.Error(), nil)
			return c.finalize(runLog, sink, collector, status.StatusError, start), nil
		}
		c.setTotal(total)
	}

	// Iteration phase
	terminal := c.iterate(ctx, runLog, builder, sink, collector, limited)
	return c.finalize(runLog, sink, collector, terminal, start), nil
}

// iterate runs the item loop and returns the terminal status. An explicit
// loop with owned counters: stack usage stays constant however large the
// collection is.
func (c *Controller) iterate(ctx context.Context, runLog *logger.ContextLogger, builder *record.Builder, sink writer.Writer, collector *warnings.Collector, limited bool) status.ExportStatus {
	consecutiveSkips := 0
	skippedLast := false

	for {
		if !c.isActive() || ctx.Err() != nil {
			return status.StatusCancelled
		}

		// After a skip the next object is fetched directly; HasMore is
		// not re-consulted. The skipped object is never refetched since
		// the source cursor has already moved past it.
		if !skippedLast {
			more, err := c.source.HasMore(ctx)
			if err != nil {
				runLog.LogRunFailed("Advancing the collection cursor failed", "CURSOR_ERROR", err.Error(), nil)
				return status.StatusError
			}
			if !more {
				return status.StatusCompleted
			}
		}
		skippedLast = false

		obj, err := c.source.Next(ctx)
		if err != nil {
			consecutiveSkips++
			runLog.LogItemSkipped("Object fetch failed, skipping", logger.Fields{
				"error":             err.Error(),
				"consecutive_skips": consecutiveSkips,
			})
			if c.cfg.Fetch.MaxConsecutiveSkips > 0 && consecutiveSkips >= c.cfg.Fetch.MaxConsecutiveSkips {
				runLog.LogRunFailed("Too many consecutive fetch failures", "FETCH_STALLED",
					fmt.Sprintf("%d consecutive object fetches failed", consecutiveSkips), nil)
				return status.StatusError
			}
			skippedLast = true
			continue
		}
		consecutiveSkips = 0

		if obj == nil {
			// Source signalled end of collection ahead of HasMore
			return status.StatusCompleted
		}

		// Cancellation may have arrived while the fetch was in flight; the
		// fetch completes but its record is never written
		if !c.isActive() || ctx.Err() != nil {
			return status.StatusCancelled
		}

		if err := c.process(runLog, builder, sink, collector, obj); err != nil {
			runLog.LogRunFailed("Writing object failed", "WRITE_ERROR", err.Error(), logger.Fields{
				"object_id": obj.ID,
			})
			return status.StatusError
		}

		if limited && c.processedCount() >= c.cfg.Debug.Limit {
			return status.StatusCompleted
		}
	}
}

// process transforms and persists a single object
func (c *Controller) process(runLog *logger.ContextLogger, builder *record.Builder, sink writer.Writer, collector *warnings.Collector, obj *tms.Object) error {
	pk := builder.PrimaryKeyValue(obj)
	rec := builder.Build(obj)

	if err := sink.WriteRecord(builder.Row(rec)); err != nil {
		return err
	}
	if err := collector.Inspect(pk, obj, rec); err != nil {
		return err
	}

	c.mu.Lock()
	c.processed++
	processed := c.processed
	c.mu.Unlock()

	if err := c.store.SetProcessed(processed); err != nil {
		return err
	}

	runLog.LogItemProcessed("Object exported", logger.Fields{
		"object_id":   obj.ID,
		"primary_key": pk,
	})
	c.notifier.Progress(c.update())
	return nil
}

// finalize drives the single terminal transition: deactivate, flush and
// close both report files, persist the terminal status, notify observers
func (c *Controller) finalize(runLog *logger.ContextLogger, sink writer.Writer, collector *warnings.Collector, terminal status.ExportStatus, start time.Time) Snapshot {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()

	if meta, err := sink.Finalize(); err != nil {
		runLog.LogError("SinkCloseError", "Failed to finalize export file", "IO_ERROR", err.Error(), nil)
		if terminal == status.StatusCompleted {
			terminal = status.StatusError
		}
	} else {
		runLog.LogFileFinalized("Export file finalized", time.Since(start).Milliseconds(), logger.Fields{
			"path":     meta.Path,
			"rows":     meta.RowCount,
			"size":     meta.Size,
			"checksum": meta.Checksum,
		})
	}

	if _, err := collector.Close(); err != nil {
		runLog.LogError("WarningsCloseError", "Failed to finalize warnings report", "IO_ERROR", err.Error(), nil)
	}

	if err := c.store.SetStatus(terminal); err != nil {
		runLog.LogError("StatusWriteError", "Failed to persist terminal status", "IO_ERROR", err.Error(), nil)
	}

	snap := c.Status()
	runLog.LogRunFinalized("Export run finalized", time.Since(start).Milliseconds(), logger.Fields{
		"status":    string(snap.Status),
		"processed": snap.Processed,
		"total":     snap.Total,
	})
	c.notifier.Completed(c.update())
	return snap
}

// Cancel requests cooperative cancellation. Idempotent; the loop observes
// it at the next iteration boundary, an in-flight fetch completes first.
func (c *Controller) Cancel() {
	c.mu.Lock()
	wasActive := c.active
	store := c.store
	c.active = false
	c.mu.Unlock()

	if !wasActive || store == nil {
		return
	}
	// Persist immediately rather than waiting for finalization
	if err := store.SetStatus(status.StatusCancelled); err != nil {
		c.log.Error("Failed to persist cancellation", logger.Fields{"error": err.Error()})
	}
}

// Status returns a point-in-time snapshot, safe to call mid-run
func (c *Controller) Status() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		RunID:     c.runID,
		Active:    c.active,
		CSV:       c.csvPath,
		Processed: c.processed,
		Total:     c.total,
		Status:    status.StatusIncomplete,
	}
	if c.store != nil {
		snap.Status = c.store.Snapshot().Status
	}
	return snap
}

func (c *Controller) isActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *Controller) processedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processed
}

func (c *Controller) setTotal(total int) {
	c.mu.Lock()
	c.total = total
	store := c.store
	c.mu.Unlock()

	if err := store.SetTotal(total); err != nil {
		c.log.Error("Failed to persist total count", logger.Fields{"error": err.Error()})
	}
}

func (c *Controller) update() progress.Update {
	snap := c.Status()
	return progress.Update{
		RunID:     snap.RunID,
		Processed: snap.Processed,
		Total:     snap.Total,
		Status:    string(snap.Status),
	}
}
