// Command regiontrack runs region tracking sessions over video
// sources. It either performs a single tracking run from the command
// line or serves the session API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/golang/geo/r2"

	"github.com/keyframe-systems/regiontrack/internal/api"
	"github.com/keyframe-systems/regiontrack/internal/config"
	"github.com/keyframe-systems/regiontrack/internal/geom"
	"github.com/keyframe-systems/regiontrack/internal/render"
	"github.com/keyframe-systems/regiontrack/internal/store"
	"github.com/keyframe-systems/regiontrack/internal/track"
	"github.com/keyframe-systems/regiontrack/internal/version"
	"github.com/keyframe-systems/regiontrack/internal/video"
	"github.com/keyframe-systems/regiontrack/internal/vision"
	"github.com/keyframe-systems/regiontrack/internal/vision/ollama"
)

var (
	serve      = flag.Bool("serve", false, "run the HTTP session API server")
	listen     = flag.String("listen", "", "listen address (default from config)")
	configPath = flag.String("config", "", "path to a tuning config JSON file")
	dbPath     = flag.String("db", "", "path to the sqlite database (default from config)")
	mediaRoot  = flag.String("media-root", "", "directory client-supplied source paths must stay within")

	sourceArg   = flag.String("source", "", "frame source: image directory, video file or URL, or \"synthetic\"")
	width       = flag.Int("width", 1280, "decoded frame width for video sources")
	height      = flag.Int("height", 720, "decoded frame height for video sources")
	orientation = flag.Int("orientation", 0, "source rotation in quarter turns counterclockwise (0-3)")
	modeArg     = flag.String("mode", "object", "tracking mode: object or rectangle")
	precArg     = flag.String("precision", "accurate", "precision level: fast or accurate")
	boxesArg    = flag.String("boxes", "", "nominated regions as x,y,w,h;x,y,w,h in normalized coordinates")
	outDir      = flag.String("out", "", "directory for annotated frame dumps")
	record      = flag.Bool("record", false, "record the run to the sqlite database")
	paced       = flag.Bool("paced", false, "pace playback at the source frame rate")

	ollamaURL   = flag.String("ollama-url", "", "use an Ollama vision model at this URL for rectangle detection")
	ollamaModel = flag.String("ollama-model", "minicpm-v", "Ollama model name")
	useOpenCV   = flag.Bool("opencv", false, "use the OpenCV correlation tracker (needs the opencv build tag)")

	verbose     = flag.Bool("v", false, "enable diagnostic logging")
	traceLog    = flag.Bool("trace", false, "enable per-frame trace logging")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("regiontrack", version.String())
		return
	}

	cfg := loadConfig()
	setupTrackLogging()

	tracker, cleanup, err := buildTracker(cfg)
	if err != nil {
		log.Fatalf("tracker: %v", err)
	}
	defer cleanup()
	detector, err := buildDetector(cfg)
	if err != nil {
		log.Fatalf("detector: %v", err)
	}

	if *serve {
		runServer(cfg, tracker, detector)
		return
	}
	if *sourceArg == "" {
		fmt.Fprintln(os.Stderr, "regiontrack: -source or -serve is required")
		flag.Usage()
		os.Exit(2)
	}
	runOnce(cfg, tracker, detector)
}

func loadConfig() *config.TuningConfig {
	if *configPath == "" {
		return config.EmptyTuningConfig()
	}
	cfg, err := config.LoadTuningConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

func setupTrackLogging() {
	ops := io.Writer(os.Stderr)
	var diag, trc io.Writer
	if *verbose || *traceLog {
		diag = os.Stderr
	}
	if *traceLog {
		trc = os.Stderr
	}
	track.SetLogWriters(ops, diag, trc)
}

// buildTracker selects the tracking capability. The returned cleanup
// releases any capability resources and is safe to call always.
func buildTracker(cfg *config.TuningConfig) (track.Tracker, func(), error) {
	if *useOpenCV {
		return newOpenCVTracker()
	}
	return vision.NewTemplateTracker(cfg), func() {}, nil
}

func buildDetector(cfg *config.TuningConfig) (track.Detector, error) {
	if *ollamaURL != "" {
		return ollama.NewDetector(*ollamaURL, *ollamaModel, cfg)
	}
	return vision.NewGradientDetector(cfg), nil
}

// newSourceConstructor builds the frame source named by -source. A
// directory replays its images, "synthetic" generates frames, anything
// else is handed to ffmpeg.
func newSourceConstructor(cfg *config.TuningConfig) (func() (video.Source, error), error) {
	if *orientation < 0 || *orientation > 3 {
		return nil, fmt.Errorf("orientation must be 0-3 quarter turns, got %d", *orientation)
	}
	orient := video.Orientation(*orientation)
	src := *sourceArg

	if src == "synthetic" {
		return func() (video.Source, error) {
			return video.NewSyntheticSource(video.SyntheticOptions{
				Interval:    cfg.GetFrameInterval(),
				Orientation: orient,
			}), nil
		}, nil
	}
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return func() (video.Source, error) {
			return video.NewImageDirSource(video.ImageDirOptions{
				Dir:         src,
				Interval:    cfg.GetFrameInterval(),
				Orientation: orient,
			})
		}, nil
	}
	if *width <= 0 || *height <= 0 {
		return nil, fmt.Errorf("video sources need -width and -height")
	}
	return func() (video.Source, error) {
		return video.NewFFmpegSource(video.FFmpegOptions{
			FFmpegPath:  cfg.GetFFmpegPath(),
			Input:       src,
			Width:       *width,
			Height:      *height,
			FrameRate:   cfg.GetFrameRate(),
			Orientation: orient,
		})
	}, nil
}

// parseBoxes parses the -boxes argument: semicolon-separated x,y,w,h
// quadruples in normalized coordinates.
func parseBoxes(s string) ([]r2.Rect, error) {
	if s == "" {
		return nil, nil
	}
	var rects []r2.Rect
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("box %q: want x,y,w,h", part)
		}
		var vals [4]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("box %q: %v", part, err)
			}
			vals[i] = v
		}
		rects = append(rects, geom.RectXYWH(vals[0], vals[1], vals[2], vals[3]))
	}
	return rects, nil
}

func effectiveDBPath(cfg *config.TuningConfig) string {
	if *dbPath != "" {
		return *dbPath
	}
	return cfg.GetDBPath()
}

// runOnce executes a single tracking session and prints its outcome.
func runOnce(cfg *config.TuningConfig, tracker track.Tracker, detector track.Detector) {
	mode := track.Mode(*modeArg)
	precision := track.Precision(*precArg)
	if !mode.Valid() {
		log.Fatalf("unknown tracking mode %q", *modeArg)
	}
	if !precision.Valid() {
		log.Fatalf("unknown precision level %q", *precArg)
	}

	newSource, err := newSourceConstructor(cfg)
	if err != nil {
		log.Fatalf("source: %v", err)
	}
	boxes, err := parseBoxes(*boxesArg)
	if err != nil {
		log.Fatalf("boxes: %v", err)
	}
	if mode == track.ModeObject && len(boxes) == 0 {
		log.Fatalf("object mode needs at least one -boxes region")
	}

	var observers track.MultiObserver
	var dumper *render.FrameDumper
	if *outDir != "" {
		dumper, err = render.NewFrameDumper(&render.Renderer{ApplyDisplay: true}, *outDir, "jpg", 90)
		if err != nil {
			log.Fatalf("frame dump directory: %v", err)
		}
		observers = append(observers, dumper)
	}
	var recorder *store.Recorder
	if *record {
		st, err := store.Open(effectiveDBPath(cfg))
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer st.Close()
		recorder = store.NewRecorder(st)
		observers = append(observers, recorder)
	}

	sess, err := track.NewSession(track.SessionConfig{
		NewSource: newSource,
		Tracker:   tracker,
		Detector:  detector,
		Observer:  observers,
		Pacing:    *paced,
		QueueSize: cfg.GetObserverQueueSize(),
	})
	if err != nil {
		log.Fatalf("create session: %v", err)
	}
	if recorder != nil {
		recorder.Bind(sess)
	}
	if len(boxes) > 0 {
		if err := sess.Nominate(boxes); err != nil {
			log.Fatalf("nominate: %v", err)
		}
	}

	runErr := sess.Run(mode, precision)

	if recorder != nil {
		if err := recorder.Finalize(runErr); err != nil {
			log.Printf("warning: failed to record terminal state: %v", err)
		}
		if err := recorder.Err(); err != nil {
			log.Printf("warning: persistence degraded during run: %v", err)
		}
	}
	if dumper != nil {
		if err := dumper.Err(); err != nil {
			log.Printf("warning: frame dump incomplete: %v", err)
		}
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, track.ErrObjectTrackingFailed):
		log.Printf("warning: %v", runErr)
	default:
		log.Fatalf("session %s failed: %v", sess.ID, runErr)
	}

	fmt.Printf("session %s: %s after %d frames\n", sess.ID, sess.State(), sess.FrameCount())
	for i, reg := range sess.Regions() {
		fmt.Printf("  region %d %s: confidence %.2f (%s)\n", i+1, reg.ID, reg.Confidence, reg.Style)
	}
}

// runServer wires the session manager and serves the HTTP API until
// interrupted.
func runServer(cfg *config.TuningConfig, tracker track.Tracker, detector track.Detector) {
	st, err := store.Open(effectiveDBPath(cfg))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer st.Close()

	var newSource func() (video.Source, error)
	if *sourceArg != "" {
		newSource, err = newSourceConstructor(cfg)
		if err != nil {
			log.Fatalf("source: %v", err)
		}
	}

	mgr, err := api.NewManager(api.ManagerConfig{
		NewSource: newSource,
		Tracker:   tracker,
		Detector:  detector,
		Store:     st,
		Tuning:    cfg,
		MediaRoot: *mediaRoot,
	})
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}

	addr := *listen
	if addr == "" {
		addr = cfg.GetListenAddr()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// periodically expire old observations
	wg.Add(1)
	go func() {
		defer wg.Done()
		ttl := cfg.GetObservationTTL()
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := st.PruneObservations(ttl)
				if err != nil {
					log.Printf("prune observations: %v", err)
				} else if removed > 0 {
					log.Printf("pruned %d observations older than %s", removed, ttl)
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    addr,
			Handler: api.LoggingMiddleware(api.NewServer(mgr, st).Routes()),
		}

		go func() {
			log.Printf("listening on %s", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("shutdown complete")
}
