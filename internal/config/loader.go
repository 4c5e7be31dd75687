package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Evolution EvolutionConfig `mapstructure:"evolution"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Fleet     FleetConfig     `mapstructure:"fleet"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	AdminAPIKey string `mapstructure:"admin_api_key"`
	// TriggerSecret guards privileged triggers. A value starting with "$2" is
	// treated as a bcrypt hash.
	TriggerSecret  string   `mapstructure:"trigger_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
	EnableEventStream    bool   `mapstructure:"enable_event_stream"`
	WatchConfig          bool   `mapstructure:"watch_config"`
}

type QueueConfig struct {
	BatchSize        int           `mapstructure:"batch_size"`
	MaxBatchSize     int           `mapstructure:"max_batch_size"`
	MaxBatchDuration time.Duration `mapstructure:"max_batch_duration"`
	SimulatedLatency time.Duration `mapstructure:"simulated_latency"`
	FailureRate      float64       `mapstructure:"failure_rate"`
	Seed             uint64        `mapstructure:"seed"`
}

type EvolutionConfig struct {
	MicroCap           int           `mapstructure:"micro_cap"`
	TacticalPool       int           `mapstructure:"tactical_pool"`
	TacticalPerGroup   int           `mapstructure:"tactical_per_group"`
	StrategicCap       int           `mapstructure:"strategic_cap"`
	StrategicThreshold float64       `mapstructure:"strategic_threshold"`
	MaxDelta           float64       `mapstructure:"max_delta"`
	FallbackDelta      FallbackDelta `mapstructure:"fallback_delta"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	MaxCycleDuration   time.Duration `mapstructure:"max_cycle_duration"`
}

type FallbackDelta struct {
	Micro     float64 `mapstructure:"micro"`
	Tactical  float64 `mapstructure:"tactical"`
	Strategic float64 `mapstructure:"strategic"`
}

type HeartbeatConfig struct {
	Seed                uint64  `mapstructure:"seed"`
	WarningThreshold    float64 `mapstructure:"warning_threshold"`
	RecoveryThreshold   float64 `mapstructure:"recovery_threshold"`
	RecoveryProbability float64 `mapstructure:"recovery_probability"`
}

type ReasoningConfig struct {
	// Provider is "gemini" or "none".
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type RoutingConfig struct {
	TablePath     string `mapstructure:"table_path"`
	DefaultWorker string `mapstructure:"default_worker"`
}

type FleetConfig struct {
	SeedPath string `mapstructure:"seed_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fleet")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "fleet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.output_paths", []string{"stdout"})
	v.SetDefault("logger.error_output_paths", []string{"stderr"})

	v.SetDefault("auth.admin_api_key", "")
	v.SetDefault("auth.trigger_secret", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("features.request_id_header", "X-Request-ID")
	v.SetDefault("features.enable_event_stream", true)

	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.max_batch_size", 50)
	v.SetDefault("queue.max_batch_duration", 60*time.Second)
	v.SetDefault("queue.simulated_latency", 50*time.Millisecond)

	v.SetDefault("evolution.micro_cap", 5)
	v.SetDefault("evolution.tactical_pool", 30)
	v.SetDefault("evolution.tactical_per_group", 3)
	v.SetDefault("evolution.strategic_cap", 10)
	v.SetDefault("evolution.strategic_threshold", 70.0)
	v.SetDefault("evolution.max_delta", 10.0)
	v.SetDefault("evolution.fallback_delta.micro", 1.0)
	v.SetDefault("evolution.fallback_delta.tactical", 2.0)
	v.SetDefault("evolution.fallback_delta.strategic", 3.0)
	v.SetDefault("evolution.lock_ttl", 5*time.Minute)
	v.SetDefault("evolution.max_cycle_duration", 5*time.Minute)

	v.SetDefault("heartbeat.warning_threshold", 80.0)
	v.SetDefault("heartbeat.recovery_threshold", 85.0)
	v.SetDefault("heartbeat.recovery_probability", 0.5)

	v.SetDefault("reasoning.provider", "none")
	v.SetDefault("reasoning.api_key", "")
	v.SetDefault("reasoning.model", "gemini-2.5-flash")
	v.SetDefault("reasoning.timeout", 30*time.Second)

	v.SetDefault("routing.default_worker", "orchestrator-prime")
}

func Load(path string) (*Config, error) {
	setDefaults(viper.GetViper())
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("FLEET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a Config populated only from the registered defaults.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
