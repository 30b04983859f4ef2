package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/routekit/editor/v2/internal/animation"
	"github.com/routekit/editor/v2/internal/api"
	"github.com/routekit/editor/v2/internal/cache"
	"github.com/routekit/editor/v2/internal/channel"
	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/internal/dispatcher"
	"github.com/routekit/editor/v2/internal/editor"
	"github.com/routekit/editor/v2/internal/gesture"
	"github.com/routekit/editor/v2/internal/influx"
	"github.com/routekit/editor/v2/internal/labels"
	"github.com/routekit/editor/v2/internal/logging"
	"github.com/routekit/editor/v2/internal/monitor"
	intOtel "github.com/routekit/editor/v2/internal/otel"
	"github.com/routekit/editor/v2/internal/parser"
	"github.com/routekit/editor/v2/internal/session"
	"github.com/routekit/editor/v2/internal/storage"
	"github.com/routekit/editor/v2/internal/util"
	"github.com/routekit/editor/v2/internal/worker"
	"github.com/routekit/editor/v2/pkg/core"
	"github.com/routekit/editor/v2/pkg/streaming"
	"github.com/routekit/editor/v2/pkg/surface"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// tool defs - BuildDate can be set at build time via ldflags
var (
	ToolName  string = "routekit_replay"
	BuildDate string = "unknown"
)

// file paths
var (
	// WorkDir is the directory the tool was started from. The config
	// file is read from here.
	WorkDir string

	InitLogFilePath string
	InitLogFile     *os.File

	ReplayLogFilePath string
	ReplayLogFile     *os.File
)

// global state
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZeroLogger feeds the components that log through zerolog
	// (dispatcher adapter, influx, database manager)
	ZeroLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()

	// hostVersion is reported by the script via :HOST:VERSION:
	hostVersion string = "unknown"

	// engine services
	sessionCtx      *session.Context
	editorService   *editor.Service
	gestureMachine  *gesture.Machine
	animPlayer      *animation.Player
	parserService   *parser.Parser
	influxManager   *influx.Manager
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher

	// Storage backend selected by config
	storageBackend storage.Backend

	// headless drives the engine without a real map view
	headless *surface.Headless

	// envelopes carries every outbound engine message to the runner
	envelopes channel.Channel[streaming.Envelope]
)

const envelopeBufferSize = 1_000

// init wires logging and the command bridge before main runs.
func init() {
	var err error

	WorkDir, err = os.Getwd()
	if err != nil {
		panic(err)
	}

	InitLogFilePath = filepath.Join(WorkDir, "init.log")

	InitLogFile, err = os.Create(InitLogFilePath)
	if err != nil {
		// Log to stderr since logging isn't set up yet
		fmt.Fprintf(os.Stderr, "Failed to create init log file: %v\n", err)
	}

	// Initialize slog manager with initial config
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(InitLogFile, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	// load config
	err = loadConfig()
	if err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	// create logs dir if it doesn't exist
	if _, err := os.Stat(viper.GetString("logsDir")); os.IsNotExist(err) {
		os.Mkdir(viper.GetString("logsDir"), 0755)
	}

	ReplayLogFilePath = logging.LogFilePath(viper.GetString("logsDir"), ToolName, SessionStartTime)

	// a leftover file from an earlier run with the same timestamp is
	// moved aside rather than appended to
	if _, err := os.Stat(ReplayLogFilePath); err == nil {
		os.Rename(ReplayLogFilePath, ReplayLogFilePath+".old")
	}

	ReplayLogFile, err = os.OpenFile(ReplayLogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", ReplayLogFilePath)
	}

	Logger.Info("Begin logging in logs directory", "path", ReplayLogFilePath)

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    ReplayLogFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			if otelCfg.Endpoint != "" {
				Logger.Info("OTel provider initialized", "file", ReplayLogFilePath, "endpoint", otelCfg.Endpoint)
			} else {
				Logger.Info("OTel provider initialized", "file", ReplayLogFilePath)
			}
		}
	}

	// Re-setup logging with file output, optional OTel, optional Graylog
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	var extraHandlers []slog.Handler
	if viper.GetBool("graylog.enabled") {
		gelfHandler, gerr := logging.NewGELFHandler(viper.GetString("graylog.address"), slog.LevelInfo)
		if gerr != nil {
			Logger.Warn("Graylog handler unavailable", "error", gerr)
		} else {
			extraHandlers = append(extraHandlers, gelfHandler)
		}
	}
	SlogManager.Setup(ReplayLogFile, viper.GetString("logLevel"), otelLogProvider, extraHandlers...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", ReplayLogFilePath)

	ZeroLogger = newZeroLogger(ReplayLogFile)

	// set up the command bridge
	surface.SetVersion(core.EngineVersion)
	err = setupBridge()
	if err != nil {
		Logger.Error("Failed to set up command bridge!", "error", err)
		panic(err)
	}
	Logger.Info("Command bridge set up")

	// leave headroom for the host process
	numCPUs := runtime.NumCPU()
	runtime.GOMAXPROCS(int(math.Max(float64(numCPUs-2), 1)))
}

// newZeroLogger builds the zerolog logger with console and file output.
func newZeroLogger(file *os.File) zerolog.Logger {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		// console format with colors to the console
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}
	if file != nil {
		// console format without colors to the file
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

func loadConfig() (err error) {
	return config.Load(WorkDir)
}

// setupBridge creates the dispatcher and registers lifecycle handlers.
// Engine handlers are added later by startEngine; lifecycle commands
// work as soon as the process is up.
func setupBridge() (err error) {
	dispatcherLogger := logging.NewDispatcherLogger(ZeroLogger)
	d, err := dispatcher.New(dispatcherLogger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	registerLifecycleHandlers(d)
	surface.SetDispatcher(d)
	eventDispatcher = d

	return nil
}

// registerLifecycleHandlers registers system/lifecycle command handlers with the dispatcher
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		return "ok", nil
	})

	// Simple queries - sync return is sufficient
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{core.EngineVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:WORK:", func(e dispatcher.Event) (any, error) {
		return WorkDir, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return ReplayLogFilePath, nil
	})

	// Commands with args
	d.Register(":HOST:VERSION:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) > 0 {
			hostVersion = util.FixEscapeQuotes(util.TrimQuotes(e.Args[0]))
			Logger.Info("Host version", "version", hostVersion)
		}
		return "ok", nil
	})

	d.Register(":SESSION:START:", func(e dispatcher.Event) (any, error) {
		if editorService == nil {
			return nil, fmt.Errorf("engine not started")
		}
		name := ""
		if len(e.Args) > 0 {
			name = util.FixEscapeQuotes(util.TrimQuotes(e.Args[0]))
		}
		editorService.StartSession(name)
		return "ok", nil
	})

	d.Register(":ROUTE:OPEN:", func(e dispatcher.Event) (any, error) {
		if editorService == nil {
			return nil, fmt.Errorf("engine not started")
		}
		if len(e.Args) == 0 {
			return nil, fmt.Errorf("no route id given")
		}
		id, err := strconv.ParseUint(util.TrimQuotes(e.Args[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad route id %q", e.Args[0])
		}
		if err := editorService.Load(uint(id)); err != nil {
			return nil, err
		}
		return "ok", nil
	})

	d.Register(":ROUTE:LIST:", func(e dispatcher.Event) (any, error) {
		if storageBackend == nil {
			return nil, fmt.Errorf("storage not initialized")
		}
		metas, err := storageBackend.ListRoutes()
		if err != nil {
			return nil, err
		}
		return metas, nil
	})

	d.Register(":SAVE:", func(e dispatcher.Event) (any, error) {
		Logger.Info("Received :SAVE: command, flushing telemetry")
		flushTelemetry()
		return "ok", nil
	})
}

// startEngine builds the editing engine and binds its command
// handlers to the dispatcher.
func startEngine() {
	sessionCtx = session.NewContext()
	registry := cache.NewPointRegistry()
	routeCache := cache.NewRouteCache()
	placer := labels.NewPlacer(config.GetLabelConfig())

	// The replay surface starts at the label reference zoom; scripts
	// change it with :ZOOM:SET:.
	headless = surface.NewHeadless(config.GetLabelConfig().ReferenceZoom)

	envelopes = channel.New[streaming.Envelope](envelopeBufferSize)
	emitter := surface.EmitterFunc(func(e streaming.Envelope) {
		envelopes.Send(e)
	})

	editorService = editor.NewService(editor.Dependencies{
		LogManager: SlogManager,
		Session:    sessionCtx,
		Registry:   registry,
		Routes:     routeCache,
		Labels:     placer,
		Surface:    headless,
		Emitter:    emitter,
		DefaultTag: viper.GetString("defaultTag"),
	})

	gestureMachine = gesture.New(config.GetGestureConfig(), editorService.Gestures(), headless, Logger, nil)
	animPlayer = animation.NewPlayer(config.GetAnimationConfig(), emitter, Logger, nil)
	parserService = parser.NewParser(Logger, hostVersion, core.EngineVersion)

	influxManager = influx.NewManager(ZeroLogger, filepath.Join(viper.GetString("logsDir"), "metrics_backup.gz"))
	var metricsSink *influx.Manager
	if viper.GetBool("influx.enabled") {
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB not reachable, metrics go to the backup file", "error", err)
		}
		metricsSink = influxManager
	}

	workerManager = worker.NewManager(worker.Dependencies{
		LogManager: SlogManager,
		Parser:     parserService,
		Machine:    gestureMachine,
		Editor:     editorService,
		Player:     animPlayer,
		Surface:    headless,
		Emitter:    emitter,
		Influx:     metricsSink,
	})
	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Info("Engine handlers registered with dispatcher")

	go checkServerStatus()
}

// startMonitor runs after storage is up so the monitor can see the
// backend and, for database backends, the gorm handle.
func startMonitor() {
	monitorService = monitor.NewService(monitor.Dependencies{
		DB:          backendDatabase(),
		LogManager:  SlogManager,
		Session:     sessionCtx,
		Editor:      editorService,
		Backend:     storageBackend,
		EnvelopeLen: envelopes.Len,
		StatusDir:   viper.GetString("logsDir"),
	})

	if !monitorService.IsRunning() {
		monitorService.Start()
	}

	validateHypertables()
}

// checkServerStatus probes the route archive healthcheck endpoint.
func checkServerStatus() {
	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(); err != nil {
		Logger.Info("Route archive is offline")
	} else {
		Logger.Info("Route archive is online")
	}
}

// flushTelemetry pushes buffered OTel and influx data out.
func flushTelemetry() {
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := OTelProvider.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush OTel data", "error", err)
		}
	}
	if influxManager != nil {
		for _, w := range influxManager.Writers {
			w.Flush()
		}
	}
}

// shutdown stops services and flushes everything that buffers.
func shutdown() {
	if monitorService != nil {
		monitorService.Stop()
	}
	if animPlayer != nil {
		animPlayer.Stop()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}

	flushTelemetry()
	if influxManager != nil {
		if influxManager.IsValid {
			influxManager.Client.Close()
		} else if influxManager.BackupWriter != nil {
			influxManager.BackupWriter.Close()
		}
	}
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		OTelProvider.Shutdown(ctx)
		cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	SlogManager.Flush(ctx)
	cancel()
}

func printUsage() {
	fmt.Printf(`Usage: %s <command> [args]

Commands:
  replay <script>   replay a command script against the engine
  setupdb           create tables and default settings in the database
  recover           migrate local SQLite backups into Postgres
  upload            upload the exported GeoJSON to the route archive
  version           print version information
`, ToolName)
}

func run(args []string) int {
	Logger.Info("Starting up...")

	startEngine()

	Logger.Info("Initializing storage...")
	if err := initStorage(); err != nil {
		Logger.Error("Storage initialization failed", "error", err)
		return 1
	}
	Logger.Info("Storage initialization complete.")

	startMonitor()

	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(args[0]) {
	case "replay":
		if len(args) < 2 {
			fmt.Println("No script path provided.")
			return 2
		}
		if err := runScript(args[1]); err != nil {
			Logger.Error("Replay failed", "error", err)
			return 1
		}
	case "setupdb":
		if err := setupDatabase(); err != nil {
			Logger.Error("DB setup failed", "error", err)
			return 1
		}
		Logger.Info("DB setup complete.")
	case "recover":
		if err := recoverBackups(); err != nil {
			Logger.Error("Backup recovery failed", "error", err)
			return 1
		}
		Logger.Info("Finished recovering backups.")
	case "upload":
		if err := uploadExport(); err != nil {
			Logger.Error("Upload failed", "error", err)
			return 1
		}
	case "version":
		fmt.Printf("%s %s (built %s)\n", ToolName, core.EngineVersion, BuildDate)
	default:
		printUsage()
		return 2
	}

	return 0
}

func main() {
	code := run(os.Args[1:])
	shutdown()
	os.Exit(code)
}
