// Package main provides the entry point for the AI gateway server: it
// loads configuration, builds the credential pool and provider executors,
// and starts the HTTP API.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nexusgate/aigateway/internal/api"
	"github.com/nexusgate/aigateway/internal/config"
	"github.com/nexusgate/aigateway/internal/dispatch"
	"github.com/nexusgate/aigateway/internal/runtime/executor"
	_ "github.com/nexusgate/aigateway/internal/translator"
	"github.com/nexusgate/aigateway/internal/util"
	sdkaccess "github.com/nexusgate/aigateway/sdk/access"
	_ "github.com/nexusgate/aigateway/sdk/access/providers/configapikey"
	coreauth "github.com/nexusgate/aigateway/sdk/cliproxy/auth"
)

var (
	Version        = "dev"
	Commit         = "none"
	BuildDate      = "unknown"
	logWriter      *lumberjack.Logger
	ginInfoWriter  *io.PipeWriter
	ginErrorWriter *io.PipeWriter
)

// LogFormatter renders one log entry as "[timestamp] [level] [file:line] message".
type LogFormatter struct{}

func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}
	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	newLog := fmt.Sprintf("[%s] [%s] [%s:%d] %s\n", timestamp, entry.Level, filepath.Base(entry.Caller.File), entry.Caller.Line, entry.Message)
	b.WriteString(newLog)
	return b.Bytes(), nil
}

func init() {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	logWriter = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "main.log"),
		MaxSize:    10,
		MaxBackups: 0,
		MaxAge:     0,
		Compress:   false,
	}

	log.SetOutput(logWriter)
	log.SetReportCaller(true)
	log.SetFormatter(&LogFormatter{})

	ginInfoWriter = log.StandardLogger().Writer()
	gin.DefaultWriter = ginInfoWriter
	ginErrorWriter = log.StandardLogger().WriterLevel(log.ErrorLevel)
	gin.DefaultErrorWriter = ginErrorWriter
	gin.DebugPrintFunc = func(format string, values ...interface{}) {
		log.StandardLogger().Infof(format, values...)
	}
	log.RegisterExitHandler(func() {
		if logWriter != nil {
			_ = logWriter.Close()
		}
		if ginInfoWriter != nil {
			_ = ginInfoWriter.Close()
		}
		if ginErrorWriter != nil {
			_ = ginErrorWriter.Close()
		}
	})
}

func buildExecutors(cfg *config.Config, transports executor.RoundTripperProvider) map[coreauth.Format]executor.Executor {
	connectTimeout := time.Duration(cfg.ConnectTimeoutSecs) * time.Second
	return map[coreauth.Format]executor.Executor{
		coreauth.Claude:       executor.NewClaudeExecutor(transports, connectTimeout),
		coreauth.Gemini:       executor.NewGeminiExecutor(transports, connectTimeout),
		coreauth.OpenAI:       executor.NewOpenAICompatExecutor(transports, connectTimeout),
		coreauth.OpenAICompat: executor.NewOpenAICompatExecutor(transports, connectTimeout),
	}
}

func main() {
	fmt.Printf("aigateway version: %s, commit: %s, built: %s\n", Version, Commit, BuildDate)
	log.Infof("aigateway version: %s, commit: %s, built: %s", Version, Commit, BuildDate)

	var configPath string
	flag.StringVar(&configPath, "config", "", "configuration file path")
	flag.Parse()

	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to get working directory: %v", err)
		}
		configPath = filepath.Join(wd, "config.yaml")
	}

	pool := coreauth.NewPool(coreauth.RoundRobin)
	transports := executor.NewTransportCache()
	accessManager := sdkaccess.NewManager()
	dispatcher := dispatch.New(pool, nil, nil)

	applyConfig := func(cfg *config.Config) {
		pool.UpdateFromConfig(coreauth.BuildFromConfig(cfg), coreauth.StrategyFromConfig(cfg.Routing.Strategy))
		dispatcher.SetExecutors(buildExecutors(cfg, transports))
		util.SetLogLevel(cfg)
		if providers, err := sdkaccess.BuildProviders(cfg); err != nil {
			log.Errorf("failed to build access providers: %v", err)
		} else {
			accessManager.SetProviders(providers)
		}
	}

	watcher, err := config.NewWatcher(configPath, applyConfig)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	stop := make(chan struct{})
	watcher.Start(stop)
	defer close(stop)

	dispatcher.Config = watcher.Current
	server := api.NewServer(watcher.Current, pool, dispatcher, accessManager)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}
}
