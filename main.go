package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"irisserve/db"
	qhttp "irisserve/http"
	"irisserve/logging"
	"irisserve/ml"
	"irisserve/monitoring"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port               int      `yaml:"port"`
		TimeoutSeconds     int      `yaml:"timeout_seconds"`
		MaxBodyBytes       int64    `yaml:"max_body_bytes"`
		AllowedOrigins     []string `yaml:"allowed_origins"`
		WorkloadCapSeconds int      `yaml:"workload_cap_seconds"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Model struct {
		Path      string `yaml:"path"`
		CacheSize int    `yaml:"cache_size"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"model"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	logger, err := logging.Init(config.Log.Level, config.Log.File)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	// 3. Initialize database
	if err := db.InitDB(config.Database.Path); err != nil {
		zap.S().Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	zap.S().Infof("Database initialized at %s", config.Database.Path)

	// 4. Load the classifier; a missing or corrupt artifact is fatal
	model, err := ml.LoadModel(config.Model.Path)
	if err != nil {
		zap.S().Fatalf("Failed to load model: %v", err)
	}
	qhttp.SetClassifier(model)
	zap.S().Infof("Model loaded: %s (%s v%s, labels=%v)",
		config.Model.Path, model.Meta.ModelType, model.Meta.Version, model.Meta.Labels)

	if config.Model.CacheSize > 0 {
		cache, err := ml.NewPredictionCache(config.Model.CacheSize)
		if err != nil {
			zap.S().Fatalf("Failed to create prediction cache: %v", err)
		}
		qhttp.SetPredictionCache(cache)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Monitoring: metrics collector and realtime event hub
	collector := monitoring.NewMetricsCollector()
	qhttp.SetMetricsCollector(collector)

	hub := monitoring.NewPredictionHub()
	go hub.Start(ctx)
	qhttp.SetPredictionHub(hub)

	// 6. Hot-reload the model when the artifact changes on disk
	if config.Model.Watch {
		err := ml.WatchModel(ctx, config.Model.Path, func() {
			reloaded, err := ml.LoadModel(config.Model.Path)
			if err != nil {
				// 保留旧模型继续服务
				zap.S().Errorf("Model reload failed, keeping previous model: %v", err)
				return
			}
			qhttp.SetClassifier(reloaded)
			zap.S().Infof("Model reloaded from %s", config.Model.Path)
		})
		if err != nil {
			zap.S().Warnf("Model watcher unavailable: %v", err)
		}
	}

	// 7. Start HTTP server
	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port > 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if config.Http.MaxBodyBytes > 0 {
		serverConfig.MaxBodyBytes = config.Http.MaxBodyBytes
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}
	qhttp.SetWorkloadCap(config.Http.WorkloadCapSeconds)

	server := qhttp.NewServer(serverConfig)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			zap.S().Fatalf("HTTP server failed: %v", err)
		}
	}()

	// 8. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("Shutting down...")

	cancel()
	if err := server.Stop(); err != nil {
		zap.S().Warnf("Server forced to shutdown: %v", err)
	}

	zap.S().Info("Exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
