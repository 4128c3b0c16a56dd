package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/OCAP2/markerview/internal/markerview"
	"github.com/OCAP2/markerview/internal/trace"
)

// FileName is the config file looked up in the config directory.
const FileName = "markerview.cfg.json"

// CameraConfig holds the simulated viewport settings.
type CameraConfig struct {
	Width         float64
	Height        float64
	FrameInterval time.Duration
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GraylogConfig holds GELF output settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// SetDefaults registers every default value. Load calls it; callers running
// without a config file may call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./mvlogs")
	viper.SetDefault("logBackend", "slog")

	viper.SetDefault("coordinator.rateLimit", "250ms")
	viper.SetDefault("coordinator.animationDuration", "300ms")
	viper.SetDefault("coordinator.exitAnimation", false)
	viper.SetDefault("coordinator.exitDuration", "150ms")
	viper.SetDefault("coordinator.selectScale", 1.2)
	viper.SetDefault("coordinator.allowMultipleSelection", false)

	viper.SetDefault("camera.width", 1080)
	viper.SetDefault("camera.height", 1920)
	viper.SetDefault("camera.frameInterval", "16ms")

	viper.SetDefault("trace.type", "none")
	viper.SetDefault("trace.batchSize", 500)
	viper.SetDefault("trace.memory.outputDir", "./traces")
	viper.SetDefault("trace.memory.compressOutput", true)
	viper.SetDefault("trace.sqlite.path", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "markerview")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "markerview")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetCoordinatorConfig returns the marker view coordinator settings.
func GetCoordinatorConfig() markerview.Config {
	return markerview.Config{
		RateLimit:              viper.GetDuration("coordinator.rateLimit"),
		AnimationDuration:      viper.GetDuration("coordinator.animationDuration"),
		ExitAnimation:          viper.GetBool("coordinator.exitAnimation"),
		ExitDuration:           viper.GetDuration("coordinator.exitDuration"),
		SelectScale:            viper.GetFloat64("coordinator.selectScale"),
		AllowMultipleSelection: viper.GetBool("coordinator.allowMultipleSelection"),
	}
}

// GetCameraConfig returns the simulated viewport settings.
func GetCameraConfig() CameraConfig {
	return CameraConfig{
		Width:         viper.GetFloat64("camera.width"),
		Height:        viper.GetFloat64("camera.height"),
		FrameInterval: viper.GetDuration("camera.frameInterval"),
	}
}

// GetTraceConfig returns the trace sink settings.
func GetTraceConfig() trace.Config {
	return trace.Config{
		Type:      viper.GetString("trace.type"),
		BatchSize: viper.GetInt("trace.batchSize"),
		Memory: trace.MemoryConfig{
			OutputDir:      viper.GetString("trace.memory.outputDir"),
			CompressOutput: viper.GetBool("trace.memory.compressOutput"),
		},
		SQLitePath: viper.GetString("trace.sqlite.path"),
		Postgres: trace.PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetOTelConfig returns OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns GELF output settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
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

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
