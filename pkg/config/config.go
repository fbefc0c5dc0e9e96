package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		HTTP      HTTP      `envPrefix:"HTTP_"`
		Logger    Logger    `envPrefix:"LOGGER_"`
		Telemetry Telemetry `envPrefix:"TELEMETRY_"`
		Redis     Redis     `envPrefix:"REDIS_"`
		Source    Source    `envPrefix:"SOURCE_"`
		Render    Render    `envPrefix:"RENDER_"`
		View      View      `envPrefix:"VIEW_"`
	}

	HTTP struct {
		Server Server `envPrefix:"SERVER_"`
	}

	Server struct {
		Port         string        `env:"PORT,required"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	}

	Logger struct {
		Level string `env:"LEVEL,required"`
	}

	Telemetry struct {
		Enabled        bool   `env:"ENABLED" envDefault:"false"`
		ServiceName    string `env:"SERVICE_NAME" envDefault:"guide-helper-tilerender"`
		ServiceVersion string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
		Environment    string `env:"ENVIRONMENT" envDefault:"production"`
		OTLPEndpoint   string `env:"OTLP_ENDPOINT" envDefault:"otel-collector.observability.svc.cluster.local:4317"`
	}

	Redis struct {
		Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
		Password string        `env:"PASSWORD" envDefault:""`
		DB       int           `env:"DB" envDefault:"0"`
		Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
	}

	// Source selects the backend the render worker reads features from.
	Source struct {
		Kind       string `env:"KIND" envDefault:"sqlite"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"features.db"`
		Dir        string `env:"DIR" envDefault:"features"`
	}

	Render struct {
		TileSize     int           `env:"TILE_SIZE" envDefault:"640" validate:"gt=0"`
		DataMaxZoom  int           `env:"DATA_MAX_ZOOM" envDefault:"12" validate:"gte=0,lte=22"`
		MinZoom      int           `env:"MIN_ZOOM" envDefault:"12" validate:"gte=0,lte=22"`
		Workers      int           `env:"WORKERS" envDefault:"1" validate:"gte=1"`
		IdleInterval time.Duration `env:"IDLE_INTERVAL" envDefault:"1s" validate:"gt=0"`
		BusyInterval time.Duration `env:"BUSY_INTERVAL" envDefault:"10ms" validate:"gt=0"`
		FontSize     float64       `env:"FONT_SIZE" envDefault:"14" validate:"gt=0"`
	}

	View struct {
		CenterLon float64 `env:"CENTER_LON" envDefault:"-1.1425" validate:"gte=-180,lte=180"`
		CenterLat float64 `env:"CENTER_LAT" envDefault:"52.5" validate:"gte=-85,lte=85"`
		Zoom      int     `env:"ZOOM" envDefault:"12" validate:"gte=0,lte=22"`
		Width     int     `env:"WIDTH" envDefault:"1280" validate:"gt=0"`
		Height    int     `env:"HEIGHT" envDefault:"800" validate:"gt=0"`
	}
)

// Seed is the subset of the configuration the seed tool needs.
type Seed struct {
	Logger Logger `envPrefix:"LOGGER_"`
	Redis  Redis  `envPrefix:"REDIS_"`
	Source Source `envPrefix:"SOURCE_"`
	Render Render `envPrefix:"RENDER_"`
}

func New() (*Config, error) {
	return load[Config]()
}

func NewSeed() (*Seed, error) {
	return load[Seed]()
}

func load[T any]() (*T, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("NOTICE: .env file not found or cannot be loaded: %v\n", err)
	}

	cfg, err := env.ParseAs[T]()
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
