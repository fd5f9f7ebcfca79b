// Package replay reads recorded detector output, one JSON object per
// line, and turns it into session frames with a per-frame delta.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"github.com/banshee-data/pose.stabilizer/internal/session"
	"github.com/banshee-data/pose.stabilizer/internal/timeutil"
)

// DefaultDelta is the delta reported for the first frame of a recording.
const DefaultDelta = 1.0 / 30

// maxLineBytes bounds a single record. A full face mesh plus both pose
// lists is well under this.
const maxLineBytes = 16 << 20

// Record is one line of a recording. TimestampMS is optional; without it
// deltas come from the reader's clock.
type Record struct {
	TimestampMS *float64 `json:"timestamp_ms,omitempty"`
	landmark.DetectorResult
}

// Config controls delta derivation and pacing.
type Config struct {
	// SpeedMultiplier paces replay against recorded timestamps
	// (1.0 = real time, 2.0 = twice as fast). Zero or less disables pacing.
	SpeedMultiplier float64

	// FirstDelta is the delta for the first frame, in seconds.
	FirstDelta float64

	// Clock supplies wall time for untimestamped records and pacing.
	Clock timeutil.Clock
}

// DefaultConfig replays unpaced on the real clock.
func DefaultConfig() Config {
	return Config{FirstDelta: DefaultDelta, Clock: timeutil.RealClock{}}
}

// Reader yields frames from a JSON-lines stream.
type Reader struct {
	cfg  Config
	sc   *bufio.Scanner
	line int

	started  bool
	lastTS   *float64
	lastRead time.Time
}

// NewReader wraps r. Zero fields in cfg take their defaults.
func NewReader(r io.Reader, cfg Config) *Reader {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.FirstDelta <= 0 {
		cfg.FirstDelta = DefaultDelta
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	return &Reader{cfg: cfg, sc: sc}
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int { return r.line }

// Next returns the next frame, or io.EOF when the stream is exhausted.
// Blank lines are skipped. When pacing is enabled Next sleeps for the
// scaled gap between recorded timestamps before returning.
func (r *Reader) Next() (session.Frame, error) {
	for r.sc.Scan() {
		r.line++
		b := r.sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return session.Frame{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return session.Frame{Result: rec.DetectorResult, DeltaSeconds: r.delta(rec.TimestampMS)}, nil
	}
	if err := r.sc.Err(); err != nil {
		return session.Frame{}, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return session.Frame{}, io.EOF
}

func (r *Reader) delta(ts *float64) float64 {
	clock := r.cfg.Clock
	defer func() {
		r.lastTS = ts
		r.lastRead = clock.Now()
	}()

	if !r.started {
		r.started = true
		return r.cfg.FirstDelta
	}
	if ts == nil || r.lastTS == nil {
		return clock.Since(r.lastRead).Seconds()
	}

	dt := (*ts - *r.lastTS) / 1000
	if dt <= 0 {
		opsf("line %d: timestamp %.3fms does not advance past %.3fms", r.line, *ts, *r.lastTS)
		return 0
	}
	if r.cfg.SpeedMultiplier > 0 {
		wait := time.Duration(math.Round(dt / r.cfg.SpeedMultiplier * float64(time.Second)))
		tracef("line %d: pacing %v", r.line, wait)
		clock.Sleep(wait)
	}
	return dt
}

// Stats summarises a Run.
type Stats struct {
	Frames  int
	Dropped int
	Errors  int
}

// Run feeds every frame from r to s in order. Frames the session rejects
// as busy are counted, not retried. Per-frame processing errors are
// counted and passed to onResult with the frame that produced them; a
// non-nil error from onResult stops the run.
func Run(ctx context.Context, r *Reader, s *session.Session, onResult func(session.Frame, session.Result) error) (Stats, error) {
	var st Stats
	start := r.cfg.Clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			diagf("replay stopping after %d frames: %v", st.Frames, err)
			return st, err
		}
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			diagf("replay complete: %d frames (%d dropped, %d with errors) in %v",
				st.Frames, st.Dropped, st.Errors, r.cfg.Clock.Since(start))
			return st, nil
		}
		if err != nil {
			return st, err
		}

		res, err := s.Submit(ctx, f)
		if errors.Is(err, session.ErrBusy) {
			st.Dropped++
			continue
		}
		if err != nil {
			return st, err
		}
		st.Frames++
		if res.Err != nil {
			st.Errors++
		}
		if onResult != nil {
			if err := onResult(f, res); err != nil {
				return st, err
			}
		}
	}
}
