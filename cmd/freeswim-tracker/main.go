package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"freeswim-tracker/internal/attribute"
	"freeswim-tracker/internal/camera"
	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/control"
	"freeswim-tracker/internal/gui"
	"freeswim-tracker/internal/logger"
	"freeswim-tracker/internal/metrics"
	"freeswim-tracker/internal/monitor"
	"freeswim-tracker/internal/opencv/memory"
	"freeswim-tracker/internal/pipeline"
	"freeswim-tracker/internal/recorder"
	"freeswim-tracker/internal/shutdown"
)

const (
	AppName = "Freeswim Tracker"
	AppID   = "org.freeswim.tracker"

	defaultDevice = "multiple_fish_vertical_swim"
	controlQueue  = 16
)

type options struct {
	device     string
	source     string
	replay     string
	width      int
	height     int
	fps        float64
	configPath string
	httpAddr   string
	dbPath     string
	gui        bool
	logLevel   string
	logJSON    bool
}

func main() {
	opts := parseFlags()
	log := newLogger(opts)

	if err := run(opts, log); err != nil {
		log.Error("Main", err, nil)
		os.Exit(1)
	}
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.device, "device", defaultDevice, "camera device id the routine reads")
	flag.StringVar(&o.source, "source", "0", "camera index, stream URL or video file")
	flag.StringVar(&o.replay, "replay", "", "directory of PNG frames to replay instead of a camera")
	flag.IntVar(&o.width, "width", 0, "frame width (0 takes it from the camera)")
	flag.IntVar(&o.height, "height", 0, "frame height (0 takes it from the camera)")
	flag.Float64Var(&o.fps, "fps", 0, "replay rate; live capture runs per frame arrival")
	flag.StringVar(&o.configPath, "config", "", "optional JSON parameter file")
	flag.StringVar(&o.httpAddr, "http", monitor.DefaultConfig().Addr, "monitor listen address, empty disables it")
	flag.StringVar(&o.dbPath, "db", "", "SQLite file for recorded positions, empty disables recording")
	flag.BoolVar(&o.gui, "gui", false, "open the operator window")
	flag.StringVar(&o.logLevel, "log-level", os.Getenv("LOG_LEVEL"), "debug, info, warn or error")
	flag.BoolVar(&o.logJSON, "log-json", false, "write JSON log lines instead of console output")
	flag.Parse()
	return o
}

func newLogger(o options) logger.Logger {
	level := logger.ParseLevel(o.logLevel)
	if o.logJSON {
		return logger.NewJSONLogger(os.Stderr, level)
	}
	return logger.NewConsoleLogger(level)
}

func run(o options, log logger.Logger) error {
	params := config.Defaults()
	if o.configPath != "" {
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return err
		}
		params = loaded
	}
	store, err := config.NewStore(params)
	if err != nil {
		return err
	}

	log.Info("Main", "starting", map[string]interface{}{
		"device":     o.device,
		"go_version": runtime.Version(),
		"parameters": params.String(),
	})

	sm := shutdown.NewManager(log, shutdown.DefaultTimeout)
	ctx := sm.Context()

	mem := memory.NewManager(log)
	sm.Register("memory", mem)

	m := metrics.New()
	m.WatchMemory(mem)

	frames, width, height, fps, err := openFrames(ctx, o, log, m, sm)
	if err != nil {
		return err
	}

	outputs := attribute.NewStore(attribute.DefaultHistory)
	sm.Register("attributes", outputs)

	sinks := attribute.Multi{outputs}
	if o.dbPath != "" {
		rec, err := recorder.Open(o.dbPath, recorder.Options{
			Device:     o.device,
			Parameters: params.String(),
			OnDrop:     m.RecordDropped,
		}, log)
		if err != nil {
			return err
		}
		rec.Start()
		sm.Register("recorder", rec)
		sinks = append(sinks, rec)
	}

	tracker := pipeline.NewTracker(pipeline.TrackerConfig{
		DeviceID: o.device,
		Width:    width,
		Height:   height,
	}, store, mem, log)
	tracker.SetObserver(m)
	sm.Register("tracker", shutdown.Func(func() {
		if err := tracker.Close(); err != nil {
			log.Warning("Main", "tracker close failed", map[string]interface{}{"error": err.Error()})
		}
	}))

	ctrl := control.NewChannel(store, controlQueue, log)
	ctrl.SetObserver(m)
	go ctrl.Run(ctx)

	runner := pipeline.NewRunner(tracker, frames, sinks, fps, log)
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if err := runner.Run(ctx); err != nil {
			log.Error("Main", err, nil)
			go sm.Shutdown()
		}
	}()
	sm.Register("runner", shutdown.Func(func() { <-runnerDone }))

	if o.httpAddr != "" {
		cfg := monitor.DefaultConfig()
		cfg.Addr = o.httpAddr
		srv := monitor.NewServer(cfg, outputs, store, ctrl, m.Handler(), log)
		srv.Start()
		sm.Register("monitor", srv)
	}

	sm.Listen()

	if o.gui {
		runWindow(ctx, sm, outputs, store, ctrl, log)
	}
	sm.Wait()
	return nil
}

// openFrames picks the frame source and registers it for shutdown. Frame
// size and rate fall back to what the source reports.
func openFrames(ctx context.Context, o options, log logger.Logger, m *metrics.Metrics, sm *shutdown.Manager) (pipeline.FrameProvider, int, int, float64, error) {
	if o.replay != "" {
		if o.width <= 0 || o.height <= 0 {
			return nil, 0, 0, 0, errors.New("replay needs -width and -height")
		}
		paths, err := filepath.Glob(filepath.Join(o.replay, "*.png"))
		if err != nil {
			return nil, 0, 0, 0, err
		}
		if len(paths) == 0 {
			return nil, 0, 0, 0, fmt.Errorf("no PNG frames in %s", o.replay)
		}
		seq := camera.NewSequence(o.device)
		if err := seq.LoadImages(paths...); err != nil {
			seq.Shutdown()
			return nil, 0, 0, 0, err
		}
		sm.Register("replay", seq)
		log.Info("Main", "replaying frames", map[string]interface{}{"frames": len(paths), "dir": o.replay})
		return seq, o.width, o.height, o.fps, nil
	}

	capture, err := camera.Open(o.device, o.source, log)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	capture.Start(ctx)
	sm.Register("camera", capture)
	m.WatchCapture(capture.Stats)

	width, height := capture.Size()
	if o.width > 0 && o.height > 0 {
		width, height = o.width, o.height
	}
	fps := o.fps
	if fps <= 0 {
		fps = capture.FPS()
	}
	return capture, width, height, fps, nil
}

// runWindow blocks on the fyne event loop. Closing the window shuts the
// process down, and a shutdown from elsewhere closes the window.
func runWindow(ctx context.Context, sm *shutdown.Manager, outputs *attribute.Store, store *config.Store, ctrl *control.Channel, log logger.Logger) {
	a := app.NewWithID(AppID)
	window := a.NewWindow(AppName)

	manager := gui.NewManager(window, outputs, store, ctrl, log)
	window.SetOnClosed(func() {
		go sm.Shutdown()
	})
	window.Resize(fyne.NewSize(1100, 700))

	go manager.Run(ctx)
	go func() {
		<-sm.Done()
		fyne.Do(a.Quit)
	}()

	log.Info("Main", "operator window open", map[string]interface{}{
		"attributes": strings.Join(attribute.FrameNames, ","),
	})
	window.ShowAndRun()
}
