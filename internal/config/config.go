package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/GeoJSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds local database storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebsocketConfig holds live storage backend settings
type WebsocketConfig struct {
	URL     string        `json:"url" mapstructure:"url"`
	APIKey  string        `json:"apiKey" mapstructure:"apiKey"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// StorageConfig selects and configures the route storage backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Websocket WebsocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry export settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GestureConfig holds pointer gesture timing and thresholds
type GestureConfig struct {
	DragArm         time.Duration `json:"dragArm" mapstructure:"dragArm"`
	DeleteArm       time.Duration `json:"deleteArm" mapstructure:"deleteArm"`
	DragRelease     time.Duration `json:"dragRelease" mapstructure:"dragRelease"`
	MoveThresholdPx float64       `json:"moveThresholdPx" mapstructure:"moveThresholdPx"`
}

// LabelConfig holds badge placement geometry, expressed in degrees at
// the reference zoom
type LabelConfig struct {
	ReferenceZoom     float64 `json:"referenceZoom" mapstructure:"referenceZoom"`
	MinZoom           float64 `json:"minZoom" mapstructure:"minZoom"`
	PinStepDeg        float64 `json:"pinStepDeg" mapstructure:"pinStepDeg"`
	PinThresholdDeg   float64 `json:"pinThresholdDeg" mapstructure:"pinThresholdDeg"`
	PinCandidates     int     `json:"pinCandidates" mapstructure:"pinCandidates"`
	TitleOffsetDeg    float64 `json:"titleOffsetDeg" mapstructure:"titleOffsetDeg"`
	TitleThresholdDeg float64 `json:"titleThresholdDeg" mapstructure:"titleThresholdDeg"`
	TitlePushDeg      float64 `json:"titlePushDeg" mapstructure:"titlePushDeg"`
	MaxPushAttempts   int     `json:"maxPushAttempts" mapstructure:"maxPushAttempts"`
}

// AnimationConfig holds playback pacing
type AnimationConfig struct {
	FrameInterval time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Walk")
	viper.SetDefault("logsDir", "./routekitlogs")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "routekit")

	viper.SetDefault("influx.enabled", true)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "routekit-metrics")

	viper.SetDefault("graylog.enabled", true)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./routes")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./routekit_routes.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5001/ws")
	viper.SetDefault("storage.websocket.apiKey", "")
	viper.SetDefault("storage.websocket.timeout", "10s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "routekit-editor")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("gesture.dragArm", "180ms")
	viper.SetDefault("gesture.deleteArm", "1s")
	viper.SetDefault("gesture.dragRelease", "300ms")
	viper.SetDefault("gesture.moveThresholdPx", 10.0)

	viper.SetDefault("labels.referenceZoom", 16.0)
	viper.SetDefault("labels.minZoom", 13.0)
	viper.SetDefault("labels.pinStepDeg", 0.0003)
	viper.SetDefault("labels.pinThresholdDeg", 0.0005)
	viper.SetDefault("labels.pinCandidates", 4)
	viper.SetDefault("labels.titleOffsetDeg", 0.0008)
	viper.SetDefault("labels.titleThresholdDeg", 0.001)
	viper.SetDefault("labels.titlePushDeg", 0.0005)
	viper.SetDefault("labels.maxPushAttempts", 5)

	viper.SetDefault("animation.frameInterval", "120ms")

	viper.SetConfigName("routekit.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the typed storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Websocket: WebsocketConfig{
			URL:     viper.GetString("storage.websocket.url"),
			APIKey:  viper.GetString("storage.websocket.apiKey"),
			Timeout: viper.GetDuration("storage.websocket.timeout"),
		},
	}
}

// GetOTelConfig returns the typed OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGestureConfig returns the typed gesture settings. The drag-arm
// delay is clamped to [100ms, 500ms]: below that range drags misfire
// on ordinary clicks, above it the tool feels unresponsive.
func GetGestureConfig() GestureConfig {
	cfg := GestureConfig{
		DragArm:         viper.GetDuration("gesture.dragArm"),
		DeleteArm:       viper.GetDuration("gesture.deleteArm"),
		DragRelease:     viper.GetDuration("gesture.dragRelease"),
		MoveThresholdPx: viper.GetFloat64("gesture.moveThresholdPx"),
	}
	if cfg.DragArm < 100*time.Millisecond {
		cfg.DragArm = 100 * time.Millisecond
	}
	if cfg.DragArm > 500*time.Millisecond {
		cfg.DragArm = 500 * time.Millisecond
	}
	return cfg
}

// GetLabelConfig returns the typed badge placement settings.
func GetLabelConfig() LabelConfig {
	return LabelConfig{
		ReferenceZoom:     viper.GetFloat64("labels.referenceZoom"),
		MinZoom:           viper.GetFloat64("labels.minZoom"),
		PinStepDeg:        viper.GetFloat64("labels.pinStepDeg"),
		PinThresholdDeg:   viper.GetFloat64("labels.pinThresholdDeg"),
		PinCandidates:     viper.GetInt("labels.pinCandidates"),
		TitleOffsetDeg:    viper.GetFloat64("labels.titleOffsetDeg"),
		TitleThresholdDeg: viper.GetFloat64("labels.titleThresholdDeg"),
		TitlePushDeg:      viper.GetFloat64("labels.titlePushDeg"),
		MaxPushAttempts:   viper.GetInt("labels.maxPushAttempts"),
	}
}

// GetAnimationConfig returns the typed playback settings.
func GetAnimationConfig() AnimationConfig {
	return AnimationConfig{
		FrameInterval: viper.GetDuration("animation.frameInterval"),
	}
}
