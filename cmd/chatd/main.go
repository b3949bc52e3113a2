// Command chatd serves the conversation API backing the desktop chat
// client: it persists conversations locally and proxies user messages
// to the configured language-model provider.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shaharia-lab/chatd"
	"github.com/shaharia-lab/chatd/observability"
)

func main() {
	logger, flush, err := buildLogger(os.Getenv("CHATD_LOG_BACKEND"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	if err := run(logger); err != nil {
		logger.WithErr(err).Error("chatd exited")
		os.Exit(1)
	}
}

// buildLogger selects the logging backend: zap's production logger by
// default, logrus with JSON output when CHATD_LOG_BACKEND=logrus.
func buildLogger(backend string) (observability.Logger, func(), error) {
	switch backend {
	case "logrus":
		logrusLogger := logrus.New()
		logrusLogger.SetFormatter(&logrus.JSONFormatter{})
		return observability.NewLogrusLogger(logrusLogger), func() {}, nil
	case "", "zap":
		zapLogger, err := zap.NewProduction()
		if err != nil {
			return nil, nil, err
		}
		return observability.NewZapLogger(zapLogger), func() { _ = zapLogger.Sync() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

func run(logger observability.Logger) error {
	config, err := chatd.LoadConfig()
	if err != nil {
		return err
	}

	storage, err := buildStorage(config, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	gateway, err := buildGateway(config)
	if err != nil {
		return err
	}

	service := chatd.NewConversationService(chatd.ConversationServiceConfig{
		Storage: storage,
		Gateway: chatd.NewTracingModelGateway(gateway),
		ReplyConfig: chatd.NewReplyConfig(
			chatd.WithTemperature(config.Temperature),
			chatd.WithTopP(config.TopP),
			chatd.WithMaxToken(config.MaxToken),
		),
		WindowSize:      config.WindowSize,
		UpstreamTimeout: config.UpstreamTimeout,
		UpstreamRPS:     config.UpstreamRPS,
		Logger:          logger,
	})

	server := chatd.NewServer(config.ListenAddress, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithFields(map[string]interface{}{
			"address":  config.ListenAddress,
			"provider": config.Provider,
			"data":     config.DataFile,
		}).Info("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildStorage picks the storage backend from the data file extension:
// .db or .sqlite selects the embedded database, anything else the flat
// JSON document.
func buildStorage(config chatd.Config, logger observability.Logger) (chatd.ConversationStorage, error) {
	switch filepath.Ext(config.DataFile) {
	case ".db", ".sqlite":
		return chatd.NewSQLiteStorage(config.DataFile, logger)
	default:
		return chatd.NewFileStorage(config.DataFile, logger)
	}
}

func buildGateway(config chatd.Config) (chatd.ModelGateway, error) {
	switch config.Provider {
	case "openai":
		return chatd.NewOpenAIGateway(chatd.OpenAIGatewayConfig{
			Client: chatd.NewOpenAIClient(config.APIKey),
			Model:  config.Model,
		}), nil
	case "anthropic":
		return chatd.NewAnthropicGateway(chatd.AnthropicGatewayConfig{
			Client: chatd.NewAnthropicClient(config.APIKey),
			Model:  anthropic.Model(config.Model),
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
}
