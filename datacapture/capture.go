// Package datacapture records published windows and actuation commands to a sqlite file so a run
// can be inspected afterwards.
package datacapture

import (
	"context"
	"database/sql"
	_ "embed"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"go.viam.com/pathtracker/control"
	"go.viam.com/pathtracker/lookahead"
)

// schema.sql creates the session, window and actuation tables.
//
//go:embed schema.sql
var schemaSQL string

// WindowSample is one recorded window summary.
type WindowSample struct {
	Seq           uint64
	Stamp         time.Time
	StartIndex    int
	Size          int
	FirstVelocity float64
	MinVelocity   float64
}

// ActuationSample is one recorded control output.
type ActuationSample struct {
	Stamp   time.Time
	Command control.Actuation
	CTE     float64
	Elapsed time.Duration
}

// Samples is everything recorded in one session.
type Samples struct {
	Windows   []WindowSample
	Actuation []ActuationSample
}

// Recorder writes samples for a single capture session. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	db      *sql.DB
	session uuid.UUID
	clk     clock.Clock
}

// Open creates or opens the database at path and starts a new session. Use ":memory:" for a
// throwaway database.
func Open(ctx context.Context, path, notes string, clk clock.Clock) (*Recorder, error) {
	if clk == nil {
		clk = clock.New()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening capture database %s", path)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, errors.Wrap(multierr.Combine(err, db.Close()), "creating capture schema")
	}
	r := &Recorder{db: db, session: uuid.New(), clk: clk}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO capture_sessions (session_id, started_ns, notes) VALUES (?, ?, ?)`,
		r.session.String(), clk.Now().UnixNano(), notes,
	); err != nil {
		return nil, errors.Wrap(multierr.Combine(err, db.Close()), "starting capture session")
	}
	return r, nil
}

// Session is the id every row of this recorder is tagged with.
func (r *Recorder) Session() uuid.UUID {
	return r.session
}

// PublishWindow records a summary of w.
func (r *Recorder) PublishWindow(ctx context.Context, w *lookahead.Window) error {
	if w.Len() == 0 {
		return nil
	}
	start, _ := w.Start()
	vel := w.Velocities()

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO windows (session_id, seq, stamp_ns, start_index, size, first_velocity, min_velocity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.session.String(), int64(w.Seq), w.Stamp.UnixNano(), start, w.Len(), vel[0], lo.Min(vel))
	if err != nil {
		return errors.Wrapf(err, "recording window %d", w.Seq)
	}
	return nil
}

// PublishActuation records one control output together with the error it corrected.
func (r *Recorder) PublishActuation(ctx context.Context, in control.Input, out control.Actuation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO actuation (session_id, stamp_ns, throttle, brake, steering, cte, dt_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.session.String(), r.clk.Now().UnixNano(), out.Throttle, out.Brake, out.Steering,
		in.CrossTrackError, in.Elapsed.Seconds())
	if err != nil {
		return errors.Wrap(err, "recording actuation")
	}
	return nil
}

// Samples reads back everything recorded in this session in order.
func (r *Recorder) Samples(ctx context.Context) (Samples, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out Samples
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, stamp_ns, start_index, size, first_velocity, min_velocity
		FROM windows WHERE session_id = ? ORDER BY seq
	`, r.session.String())
	if err != nil {
		return out, errors.Wrap(err, "querying windows")
	}
	for rows.Next() {
		var (
			s       WindowSample
			seq     int64
			stampNs int64
		)
		if err := rows.Scan(&seq, &stampNs, &s.StartIndex, &s.Size, &s.FirstVelocity, &s.MinVelocity); err != nil {
			return out, errors.Wrap(multierr.Combine(err, rows.Close()), "scanning window")
		}
		s.Seq, s.Stamp = uint64(seq), time.Unix(0, stampNs)
		out.Windows = append(out.Windows, s)
	}
	if err := multierr.Combine(rows.Err(), rows.Close()); err != nil {
		return out, err
	}

	rows, err = r.db.QueryContext(ctx, `
		SELECT stamp_ns, throttle, brake, steering, cte, dt_seconds
		FROM actuation WHERE session_id = ? ORDER BY id
	`, r.session.String())
	if err != nil {
		return out, errors.Wrap(err, "querying actuation")
	}
	for rows.Next() {
		var (
			s       ActuationSample
			stampNs int64
			dt      float64
		)
		if err := rows.Scan(&stampNs, &s.Command.Throttle, &s.Command.Brake, &s.Command.Steering, &s.CTE, &dt); err != nil {
			return out, errors.Wrap(multierr.Combine(err, rows.Close()), "scanning actuation")
		}
		s.Stamp, s.Elapsed = time.Unix(0, stampNs), time.Duration(dt*float64(time.Second))
		out.Actuation = append(out.Actuation, s)
	}
	return out, multierr.Combine(rows.Err(), rows.Close())
}

// Close closes the database.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}
