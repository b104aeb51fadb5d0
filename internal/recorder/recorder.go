// Package recorder persists per-frame particle counts, positions and
// thumbnails to SQLite, one session per run.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"
	_ "modernc.org/sqlite"

	"freeswim-tracker/internal/logger"
	"freeswim-tracker/internal/pipeline"
)

const (
	component    = "Recorder"
	defaultQueue = 256
)

type frameRow struct {
	sequence      uint64
	capturedAt    time.Time
	total         uint64
	filtered      uint64
	paramsVersion uint64
	positions     []r2.Vec
	areas         []float64
	thumbnails    []*image.Gray
}

// Recorder implements pipeline.Sink. Publish never blocks the frame loop:
// when the writer falls behind, frames are dropped and counted.
type Recorder struct {
	db      *sql.DB
	session uuid.UUID
	logger  logger.Logger

	mu     sync.RWMutex
	queue  chan frameRow
	closed bool

	written atomic.Uint64
	dropped atomic.Uint64
	onDrop  func()

	wg      sync.WaitGroup
	started bool
}

// Options for Open. Zero values pick defaults.
type Options struct {
	Device     string
	Parameters string
	QueueSize  int
	OnDrop     func()
}

// Open creates or upgrades the database at path and starts a new session.
func Open(path string, opts Options, log logger.Logger) (*Recorder, error) {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = defaultQueue
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open recorder database: %w", err)
	}
	// One connection keeps in-memory databases intact and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure recorder database: %w", err)
	}
	if err := migrateUp(db, log); err != nil {
		db.Close()
		return nil, err
	}

	r := &Recorder{
		db:      db,
		session: uuid.New(),
		logger:  log,
		queue:   make(chan frameRow, opts.QueueSize),
		onDrop:  opts.OnDrop,
	}

	_, err = db.Exec(`INSERT INTO sessions (session_id, device, started_at_ns, parameters) VALUES (?, ?, ?, ?)`,
		r.session.String(), opts.Device, time.Now().UnixNano(), opts.Parameters)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info(component, "recording session started", map[string]interface{}{
		"session": r.session.String(),
		"path":    path,
	})
	return r, nil
}

func (r *Recorder) Session() uuid.UUID {
	return r.session
}

// Start runs the writer until Shutdown drains the queue.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	r.wg.Add(1)
	go r.writeLoop()
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()
	for row := range r.queue {
		if err := r.write(context.Background(), row); err != nil {
			r.logger.Error(component, err, map[string]interface{}{
				"sequence": row.sequence,
			})
			continue
		}
		r.written.Add(1)
	}
}

// Publish implements pipeline.Sink.
func (r *Recorder) Publish(result *pipeline.FrameResult) {
	row := frameRow{
		sequence:      result.Sequence,
		capturedAt:    result.Timestamp,
		total:         result.RawCount,
		filtered:      result.FilteredCount,
		paramsVersion: result.ParamsVersion,
		positions:     append([]r2.Vec(nil), result.Positions[:result.Selected()]...),
		areas:         append([]float64(nil), result.Areas[:result.Selected()]...),
		thumbnails:    copyThumbnails(result.Thumbnails[:result.Selected()]),
	}
	result.Release()

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- row:
	default:
		r.dropped.Add(1)
		if r.onDrop != nil {
			r.onDrop()
		}
	}
}

func (r *Recorder) write(ctx context.Context, row frameRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin frame %d: %w", row.sequence, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO frames (session_id, sequence, captured_at_ns, particle_count_total, particle_count_filtered, params_version)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.session.String(), row.sequence, row.capturedAt.UnixNano(), row.total, row.filtered, row.paramsVersion)
	if err != nil {
		return fmt.Errorf("insert frame %d: %w", row.sequence, err)
	}

	for slot, p := range row.positions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO particle_positions (session_id, sequence, slot, x, y, area)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.session.String(), row.sequence, slot, p.X, p.Y, row.areas[slot])
		if err != nil {
			return fmt.Errorf("insert particle %d of frame %d: %w", slot, row.sequence, err)
		}
	}

	for slot, thumb := range row.thumbnails {
		if thumb == nil {
			continue
		}
		b := thumb.Bounds()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO particle_thumbnails (session_id, sequence, slot, width, height, pix)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.session.String(), row.sequence, slot, b.Dx(), b.Dy(), thumb.Pix)
		if err != nil {
			return fmt.Errorf("insert thumbnail %d of frame %d: %w", slot, row.sequence, err)
		}
	}
	return tx.Commit()
}

// copyThumbnails detaches the selected thumbnails from the result, which
// other sinks still read. Each copy is packed with Stride == width.
func copyThumbnails(thumbs []*image.Gray) []*image.Gray {
	out := make([]*image.Gray, len(thumbs))
	for i, src := range thumbs {
		if src == nil {
			continue
		}
		b := src.Bounds()
		dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		out[i] = dst
	}
	return out
}

// Stats returns frames written and frames dropped.
func (r *Recorder) Stats() (written, dropped uint64) {
	return r.written.Load(), r.dropped.Load()
}

// Shutdown drains pending frames, closes the session and the database.
func (r *Recorder) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	started := r.started
	r.mu.Unlock()

	if started {
		r.wg.Wait()
	} else {
		for row := range r.queue {
			if err := r.write(context.Background(), row); err == nil {
				r.written.Add(1)
			}
		}
	}

	if _, err := r.db.Exec(`UPDATE sessions SET ended_at_ns = ? WHERE session_id = ?`,
		time.Now().UnixNano(), r.session.String()); err != nil {
		r.logger.Error(component, fmt.Errorf("close session: %w", err), nil)
	}

	written, dropped := r.Stats()
	r.logger.Info(component, "recording session ended", map[string]interface{}{
		"session": r.session.String(),
		"written": written,
		"dropped": dropped,
	})
	r.db.Close()
}
