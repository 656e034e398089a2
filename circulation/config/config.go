package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/libracore/circulation-service/pkg/kafka"
	"github.com/libracore/circulation-service/pkg/logger"
	"github.com/libracore/circulation-service/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `envconfig:"CIRCULATION_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `envconfig:"CIRCULATION_HTTP_PORT" default:"8060"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"10s"`
}

type Circulation struct {
	FineRatePerDay  int64 `envconfig:"FINE_RATE_PER_DAY" default:"10"`
	DefaultLoanDays int   `envconfig:"DEFAULT_LOAN_DAYS" default:"7"`
}

type Config struct {
	Server      HTTPServer
	Database    postgres.Config
	Kafka       kafka.Config
	Circulation Circulation
	Log         logger.Log
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		config := Config{}
		config.Database.Name = "library"
		for _, op := range ops {
			op(&config)
		}
		if err := envconfig.Process("", &config); err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = timeout
	}
}
