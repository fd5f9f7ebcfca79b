// Command stabilizer replays recorded detector output through a
// stabilisation session and writes one snapshot per frame as JSON lines.
//
// Usage:
//
//	go run ./cmd/stabilizer [flags]
//
// Flags:
//
//	-in          Recording to replay, one JSON object per line (default: stdin)
//	-out         Snapshot output path (default: stdout)
//	-config      Tuning config JSON (default: built-in defaults)
//	-speed       Pace replay against recorded timestamps (0 = as fast as possible)
//	-plot-dir    Write raw vs filtered trace PNGs for one landmark here
//	-plot-html   Write the same trace as an interactive HTML page
//	-plot-set    Landmark set to trace: pose or face (default: pose)
//	-plot-index  Landmark index to trace (default: 23, left hip)
//	-version     Print build metadata and exit
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/pose.stabilizer/internal/config"
	"github.com/banshee-data/pose.stabilizer/internal/landmark"
	"github.com/banshee-data/pose.stabilizer/internal/monitor"
	"github.com/banshee-data/pose.stabilizer/internal/processor"
	"github.com/banshee-data/pose.stabilizer/internal/replay"
	"github.com/banshee-data/pose.stabilizer/internal/session"
	"github.com/banshee-data/pose.stabilizer/internal/version"
)

var (
	inPath     = flag.String("in", "-", "Recording to replay (JSON lines, - for stdin)")
	outPath    = flag.String("out", "-", "Snapshot output (JSON lines, - for stdout)")
	configPath = flag.String("config", "", "Path to tuning config JSON")
	speed      = flag.Float64("speed", 0, "Replay speed multiplier against recorded timestamps (0 = unpaced)")

	plotDir   = flag.String("plot-dir", "", "Directory for raw vs filtered trace PNGs")
	plotHTML  = flag.String("plot-html", "", "Path for an interactive trace HTML page")
	plotSet   = flag.String("plot-set", "pose", "Landmark set to trace (pose or face)")
	plotIndex = flag.Int("plot-index", landmark.PoseLeftHip, "Landmark index to trace")

	logDiag     = flag.Bool("log-diag", false, "Enable the diag log stream on stderr")
	logTrace    = flag.Bool("log-trace", false, "Enable the per-frame trace log stream on stderr")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	configureLogging(os.Stderr, *logDiag, *logTrace)

	tuning := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	cfg, err := processor.ConfigFromTuning(tuning)
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	var tp *monitor.TracePlotter
	if *plotDir != "" || *plotHTML != "" {
		tp, err = monitor.NewTracePlotter(monitor.Set(*plotSet), *plotIndex, cfg.PoseSource)
		if err != nil {
			log.Fatalf("Invalid trace selection: %v", err)
		}
	}

	s, err := session.New(cfg)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	in := io.Reader(os.Stdin)
	if *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			log.Fatalf("Failed to open recording: %v", err)
		}
		defer f.Close()
		in = f
	}

	out := io.Writer(os.Stdout)
	var outFile *os.File
	if *outPath != "-" {
		outFile, err = os.Create(*outPath)
		if err != nil {
			log.Fatalf("Failed to create output: %v", err)
		}
		out = outFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	rcfg := replay.DefaultConfig()
	rcfg.SpeedMultiplier = *speed
	st, err := run(ctx, in, out, s, rcfg, tp)
	stop()
	s.Close()
	if outFile != nil {
		if cerr := outFile.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close output: %w", cerr))
		}
	}

	log.Printf("Processed %d frames (%d dropped, %d with input errors), session %s",
		st.Frames, st.Dropped, st.Errors, s.ID())
	if tp != nil {
		writeTraces(tp, *plotDir, *plotHTML)
	}
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
}

// run replays in through s and writes one snapshot per frame to out. Output
// is flushed whether or not the replay succeeds, so every processed frame
// reaches out. An interrupted replay is not an error.
func run(ctx context.Context, in io.Reader, out io.Writer, s *session.Session, rcfg replay.Config, tp *monitor.TracePlotter) (replay.Stats, error) {
	w := bufio.NewWriter(out)
	reader := replay.NewReader(in, rcfg)
	enc := json.NewEncoder(w)
	st, err := replay.Run(ctx, reader, s, func(f session.Frame, res session.Result) error {
		if tp != nil {
			tp.Sample(f.Result, res.Snapshot)
		}
		return enc.Encode(res.Snapshot)
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	} else if err != nil {
		err = fmt.Errorf("replay stopped at line %d: %w", reader.Line(), err)
	}
	if ferr := w.Flush(); ferr != nil {
		err = errors.Join(err, fmt.Errorf("flush output: %w", ferr))
	}
	return st, err
}

// configureLogging routes every package's log streams. The ops stream is
// always on; diag and trace are opt-in.
func configureLogging(w io.Writer, diag, trace bool) {
	var diagW, traceW io.Writer
	if diag {
		diagW = w
	}
	if trace {
		traceW = w
	}
	processor.SetLogWriters(w, diagW, traceW)
	session.SetLogWriters(w, diagW, traceW)
	replay.SetLogWriters(w, diagW, traceW)
}

func writeTraces(tp *monitor.TracePlotter, dir, htmlPath string) {
	if dir != "" {
		n, err := tp.GeneratePlots(dir)
		if err != nil {
			log.Printf("Failed to write trace plots: %v", err)
		} else {
			log.Printf("Wrote %d trace plots to %s", n, dir)
		}
	}
	if htmlPath != "" {
		f, err := os.Create(htmlPath)
		if err != nil {
			log.Printf("Failed to create %s: %v", htmlPath, err)
			return
		}
		defer f.Close()
		if err := tp.RenderHTML(f); err != nil {
			log.Printf("Failed to render trace page: %v", err)
			return
		}
		log.Printf("Wrote trace page to %s", htmlPath)
	}
}
