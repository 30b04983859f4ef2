package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/routekit/editor/v2/internal/editor"
	"github.com/routekit/editor/v2/internal/logging"
	"github.com/routekit/editor/v2/internal/model"
	"github.com/routekit/editor/v2/internal/session"
	"github.com/routekit/editor/v2/internal/storage"

	"gorm.io/gorm"
)

// performanceRecorder is implemented by backends that batch performance samples.
type performanceRecorder interface {
	RecordPerformance(model.SessionPerformance)
}

// writeTimer is implemented by backends that track write latency.
type writeTimer interface {
	GetLastDBWriteDuration() time.Duration
}

// pendingReporter is implemented by backends that park writes behind a
// dead connection.
type pendingReporter interface {
	PendingWrites() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	DB          *gorm.DB
	LogManager  *logging.SlogManager
	Session     *session.Context
	Editor      *editor.Service
	Backend     storage.Backend
	EnvelopeLen func() int // outbound envelopes not yet consumed by the host
	StatusDir   string
}

// Service samples editing statistics once a second, mirrors them to a
// status file, and forwards them to the storage backend when it records
// performance samples.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current engine status
func (s *Service) GetProgramStatus(
	editCounts bool,
	queueLengths bool,
	lastWrite bool,
) (output []string, perfModel model.SessionPerformance) {
	meta := s.deps.Session.GetMeta()
	stats := s.deps.Editor.Stats()

	editsObj := model.EditCounts{
		Adds:       uint32(stats.Adds),
		Inserts:    uint32(stats.Inserts),
		Moves:      uint32(stats.Moves),
		Deletes:    uint32(stats.Deletes),
		RoundTrips: uint32(stats.RoundTrips),
		Undos:      uint32(stats.Undos),
	}

	queuesObj := model.QueueLengths{}
	if s.deps.EnvelopeLen != nil {
		queuesObj.Envelopes = uint16(s.deps.EnvelopeLen())
	}
	if pr, ok := s.deps.Backend.(pendingReporter); ok {
		queuesObj.StoragePending = uint16(pr.PendingWrites())
	}

	perf := model.SessionPerformance{
		Time:         time.Now(),
		RouteName:    meta.Name,
		EditCounts:   editsObj,
		QueueLengths: queuesObj,
		RoutePoints:  uint16(s.deps.Editor.Len()),
		UndoDepth:    uint8(s.deps.Editor.UndoDepth()),
	}
	if wt, ok := s.deps.Backend.(writeTimer); ok {
		perf.LastWriteDurationMs = float32(wt.GetLastDBWriteDuration().Milliseconds())
	}

	if editCounts {
		editsStr, err := json.MarshalIndent(editsObj, "", "  ")
		if err != nil {
			editsStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(editsStr))
	}
	if queueLengths {
		queuesStr, err := json.MarshalIndent(queuesObj, "", "  ")
		if err != nil {
			queuesStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(queuesStr))
	}
	if lastWrite {
		lastWriteStr, err := json.MarshalIndent(perf.LastWriteDurationMs, "", "  ")
		if err != nil {
			lastWriteStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(lastWriteStr))
	}

	return output, perf
}

// ValidateHypertables validates and creates TimescaleDB hypertables
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	functionName := "validateHypertables"

	all := []any{}
	s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables`).Scan(&all)
	for _, row := range all {
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`hypertable row: %v`, row), "DEBUG")
	}

	for table := range tables {
		hypertable := any(nil)
		s.deps.DB.Exec(`SELECT x.* FROM timescaledb_information.hypertables WHERE hypertable_name = ?`, table).Scan(&hypertable)
		if hypertable != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Table %s is already configured`, table), "INFO")
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		err := s.deps.DB.Exec(queryCreateHypertable).Error
		if err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to create hypertable for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Created hypertable for %s`, table), "INFO")

		queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
		err = s.deps.DB.Exec(
			queryCompressHypertable,
			strings.Join(tables[table], ","),
		).Error
		if err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to enable compression for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Enabled hypertable compression for %s`, table), "INFO")

		queryCompressAfterHypertable := fmt.Sprintf(`
				SELECT add_compression_policy(
					'%s',
					compress_after => interval '14 day');
			`, table)
		err = s.deps.DB.Exec(queryCompressAfterHypertable).Error
		if err != nil {
			s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Failed to set compress_after for %s. Err: %s`, table, err), "ERROR")
			return err
		}
		s.deps.LogManager.WriteLog(functionName, fmt.Sprintf(`Set compress_after for %s`, table), "INFO")
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(1000 * time.Millisecond)

				if !s.deps.Session.Active() {
					continue
				}

				statusStr, perfModel := s.GetProgramStatus(true, true, true)

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				if rec, ok := s.deps.Backend.(performanceRecorder); ok {
					rec.RecordPerformance(perfModel)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
