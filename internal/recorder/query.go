package recorder

import (
	"context"
	"fmt"
	"image"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// FrameRecord is one stored frame with its selected particles.
type FrameRecord struct {
	Sequence      uint64
	CapturedAt    time.Time
	Total         uint64
	Filtered      uint64
	ParamsVersion uint64
	Positions     []r2.Vec
	Areas         []float64
}

// Frames returns every stored frame of the current session in sequence
// order.
func (r *Recorder) Frames(ctx context.Context) ([]FrameRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sequence, captured_at_ns, particle_count_total, particle_count_filtered, params_version
		FROM frames WHERE session_id = ? ORDER BY sequence`, r.session.String())
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var f FrameRecord
		var ns int64
		if err := rows.Scan(&f.Sequence, &ns, &f.Total, &f.Filtered, &f.ParamsVersion); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		f.CapturedAt = time.Unix(0, ns)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.loadPositions(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Recorder) loadPositions(ctx context.Context, f *FrameRecord) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT x, y, area FROM particle_positions
		WHERE session_id = ? AND sequence = ? ORDER BY slot`, r.session.String(), f.Sequence)
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p r2.Vec
		var area float64
		if err := rows.Scan(&p.X, &p.Y, &area); err != nil {
			return fmt.Errorf("scan position: %w", err)
		}
		f.Positions = append(f.Positions, p)
		f.Areas = append(f.Areas, area)
	}
	return rows.Err()
}

// Thumbnails returns the stored thumbnails of one frame of the current
// session, in slot order.
func (r *Recorder) Thumbnails(ctx context.Context, sequence uint64) ([]*image.Gray, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT width, height, pix FROM particle_thumbnails
		WHERE session_id = ? AND sequence = ? ORDER BY slot`, r.session.String(), sequence)
	if err != nil {
		return nil, fmt.Errorf("query thumbnails: %w", err)
	}
	defer rows.Close()

	var out []*image.Gray
	for rows.Next() {
		var width, height int
		var pix []byte
		if err := rows.Scan(&width, &height, &pix); err != nil {
			return nil, fmt.Errorf("scan thumbnail: %w", err)
		}
		if len(pix) != width*height {
			return nil, fmt.Errorf("thumbnail of frame %d: %d bytes for %dx%d", sequence, len(pix), width, height)
		}
		out = append(out, &image.Gray{Pix: pix, Stride: width, Rect: image.Rect(0, 0, width, height)})
	}
	return out, rows.Err()
}
