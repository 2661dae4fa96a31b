package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-errors/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/mhallum/calista/pkg/app"
	"github.com/mhallum/calista/pkg/config"
	"github.com/mhallum/calista/pkg/envelope"
	logpkg "github.com/mhallum/calista/pkg/log"
)

const defaultVersion = "unversioned"

var (
	commit  string
	version = defaultVersion
	date    string
)

// main wires a Core from the config file named by CALISTA_CONFIG (or
// the embedded-SQLite defaults if unset) and exercises it end-to-end:
// one append, one stream read-back, one blob round trip. The
// persistence core's real entrypoint is the library itself
// (pkg/app, pkg/eventstore, pkg/blobstore); this program exists only
// to prove the wiring compiles and runs, not as a product CLI.
func main() {
	updateBuildInfo()
	fmt.Printf("calista %s (%s, %s/%s)\n", version, date, runtime.GOOS, runtime.GOARCH)

	cfg, err := config.Load(os.Getenv("CALISTA_CONFIG"))
	if err != nil {
		log.Fatal(err.Error())
	}

	logger := logpkg.NewLogger(logpkg.Options{
		Debug:   cfg.Debug,
		LogDir:  cfg.LogDir,
		Version: version,
	})

	ctx := context.Background()
	core, err := app.NewCore(ctx, cfg, logger)
	if err != nil {
		reportFatal(logger, err)
	}
	defer core.Close()

	if err := demo(ctx, core); err != nil {
		reportFatal(logger, err)
	}
}

// demo appends a two-event session stream, reads it back, and stores
// and retrieves one blob, printing each step — a smoke test a reader
// can run without standing up a database.
func demo(ctx context.Context, core *app.Core) error {
	sessionID, err := core.IDs.New()
	if err != nil {
		return fmt.Errorf("generating stream id: %w", err)
	}

	startedID, err := core.IDs.New()
	if err != nil {
		return fmt.Errorf("generating event id: %w", err)
	}
	started, err := envelope.New("Session", sessionID, 1, startedID, "SessionStarted",
		envelope.JSON{"operator": "demo"}, envelope.JSON{})
	if err != nil {
		return fmt.Errorf("building envelope: %w", err)
	}

	endedID, err := core.IDs.New()
	if err != nil {
		return fmt.Errorf("generating event id: %w", err)
	}
	ended, err := envelope.New("Session", sessionID, 2, endedID, "SessionEnded",
		envelope.JSON{"outcome": "ok"}, envelope.JSON{})
	if err != nil {
		return fmt.Errorf("building envelope: %w", err)
	}

	batch, err := envelope.NewBatch([]envelope.Envelope{started, ended})
	if err != nil {
		return fmt.Errorf("building batch: %w", err)
	}

	persisted, err := core.Events.Append(ctx, batch)
	if err != nil {
		return fmt.Errorf("appending batch: %w", err)
	}
	fmt.Printf("appended %d events to stream %s\n", len(persisted), sessionID)

	it, err := core.Events.ReadStream(ctx, "Session", sessionID, 1)
	if err != nil {
		return fmt.Errorf("reading stream back: %w", err)
	}
	defer it.Close()
	for it.Next() {
		e := it.Envelope()
		fmt.Printf("  #%d v%d %s recorded_at=%s\n", e.GlobalSeq, e.Version, e.EventType, e.RecordedAt)
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("iterating stream: %w", err)
	}

	stat, err := core.Blobs.Store(ctx, strings.NewReader("hello, calista"))
	if err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}
	fmt.Printf("stored blob %s (%d bytes)\n", stat.Digest, stat.Size)

	rc, err := core.Blobs.OpenRead(ctx, stat.Digest)
	if err != nil {
		return fmt.Errorf("reopening blob: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("reading blob back: %w", err)
	}
	fmt.Printf("read blob back: %q\n", string(content))

	return nil
}

func reportFatal(logger *logrus.Entry, err error) {
	wrapped := errors.Wrap(err, 0)
	stackTrace := wrapped.ErrorStack()
	logger.Error(stackTrace)
	log.Fatalf("calista: fatal error\n\n%s", stackTrace)
}

func updateBuildInfo() {
	if version != defaultVersion {
		return
	}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	revision, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
		return setting.Key == "vcs.revision"
	})
	if ok {
		commit = revision.Value
		version = commit
		if len(version) > 7 {
			version = version[:7]
		}
	}
	buildTime, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
		return setting.Key == "vcs.time"
	})
	if ok {
		date = buildTime.Value
	}
}
