// Command session-report renders the report artifacts for a recorded
// tracking session: report.html with the confidence and coverage
// charts, and confidence.png for embedding elsewhere.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/keyframe-systems/regiontrack/internal/report"
	"github.com/keyframe-systems/regiontrack/internal/security"
	"github.com/keyframe-systems/regiontrack/internal/store"
)

func main() {
	var dbPath string
	var sessionID string
	var outDir string

	flag.StringVar(&dbPath, "db", "regiontrack.db", "path to sqlite db")
	flag.StringVar(&sessionID, "session", "", "session id (default: most recent)")
	flag.StringVar(&outDir, "out", "reports", "directory to write report files into")
	flag.Parse()

	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer st.Close()

	if sessionID == "" {
		recent, err := st.Sessions(1)
		if err != nil {
			log.Fatalf("list sessions: %v", err)
		}
		if len(recent) == 0 {
			log.Fatalf("no recorded sessions in %s", dbPath)
		}
		sessionID = recent[0].SessionID
	}

	d, err := report.Load(st, sessionID)
	if err != nil {
		log.Fatalf("load report data: %v", err)
	}

	dir := filepath.Join(outDir, security.SanitizeFilename(sessionID))
	if err := d.WriteFiles(dir); err != nil {
		log.Fatalf("write report: %v", err)
	}

	fmt.Printf("session %s: %s, %d frames\n", d.Session.SessionID, d.Session.State, d.Session.FrameCount)
	fmt.Printf("%-22s %8s %9s %7s %7s %7s %7s\n", "REGION", "SAMPLES", "COVERAGE", "MEAN", "P50", "P90", "MAX")
	for _, s := range report.Summarize(d) {
		fmt.Printf("%-22s %8d %8.1f%% %7.3f %7.3f %7.3f %7.3f\n",
			s.RegionID, s.Samples, s.Coverage*100, s.Mean, s.P50, s.P90, s.Max)
	}
	fmt.Printf("report written to %s\n", dir)
}
