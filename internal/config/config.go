// Package config loads the server configuration from defaults, an optional
// file and BGTUTOR_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yourusername/bgtutor/internal/pool"
	"github.com/yourusername/bgtutor/pkg/coach"
	"github.com/yourusername/bgtutor/pkg/engine"
	"github.com/yourusername/bgtutor/pkg/evaluator"
)

// EnvPrefix prefixes every environment variable, e.g. BGTUTOR_SERVER_PORT.
const EnvPrefix = "BGTUTOR"

type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"` // idle sessions are dropped after this
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Coach struct {
	coach.Config `mapstructure:",squash"`
	Threshold    float64 `mapstructure:"threshold"`
	Summaries    bool    `mapstructure:"summaries"`
}

type Engine struct {
	StrictInvariants bool                    `mapstructure:"strict_invariants"`
	AutoRoll         bool                    `mapstructure:"auto_roll"`
	Heuristic        engine.HeuristicWeights `mapstructure:"heuristic"`
	METFile          string                  `mapstructure:"met_file"`
}

type Postgres struct {
	DSN string `mapstructure:"dsn"`
}

type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type Mongo struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Config is the complete server configuration. Empty Postgres, Redis or
// Mongo settings select the in-memory store for that concern.
type Config struct {
	Server    Server           `mapstructure:"server"`
	Evaluator evaluator.Config `mapstructure:"evaluator"`
	Coach     Coach            `mapstructure:"coach"`
	Engine    Engine           `mapstructure:"engine"`
	Pool      pool.Config      `mapstructure:"pool"`
	Postgres  Postgres         `mapstructure:"postgres"`
	Redis     Redis            `mapstructure:"redis"`
	Mongo     Mongo            `mapstructure:"mongo"`
	Log       Log              `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.session_ttl", 2*time.Hour)

	ev := evaluator.DefaultConfig()
	v.SetDefault("evaluator.url", ev.URL)
	v.SetDefault("evaluator.timeout", ev.Timeout)
	v.SetDefault("evaluator.ply", ev.Ply)

	v.SetDefault("coach.url", "")
	v.SetDefault("coach.timeout", 60*time.Second)
	v.SetDefault("coach.threshold", engine.SkillThresholds[1])
	v.SetDefault("coach.summaries", true)

	w := engine.DefaultHeuristicWeights()
	v.SetDefault("engine.strict_invariants", false)
	v.SetDefault("engine.auto_roll", true)
	v.SetDefault("engine.heuristic.pip", w.Pip)
	v.SetDefault("engine.heuristic.hit", w.Hit)
	v.SetDefault("engine.heuristic.new_point", w.NewPoint)
	v.SetDefault("engine.heuristic.blot", w.Blot)
	v.SetDefault("engine.heuristic.bear_off", w.BearOff)
	v.SetDefault("engine.heuristic.prime", w.Prime)
	v.SetDefault("engine.heuristic.anchor", w.Anchor)
	v.SetDefault("engine.met_file", "")

	p := pool.DefaultConfig()
	v.SetDefault("pool.max_eval_workers", p.MaxEvalWorkers)
	v.SetDefault("pool.max_coach_workers", p.MaxCoachWorkers)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*24*time.Hour)
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "bgtutor")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads the configuration. path may be empty; a missing file is an
// error only when path is given.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Evaluator.Ply < 0 || c.Evaluator.Ply > 4 {
		errs = append(errs, fmt.Errorf("evaluator.ply %d out of range 0-4", c.Evaluator.Ply))
	}
	if c.Coach.Threshold < 0 {
		errs = append(errs, fmt.Errorf("coach.threshold %v is negative", c.Coach.Threshold))
	}
	if c.Pool.MaxEvalWorkers < 0 || c.Pool.MaxCoachWorkers < 0 {
		errs = append(errs, errors.New("pool sizes must not be negative"))
	}
	return errors.Join(errs...)
}
