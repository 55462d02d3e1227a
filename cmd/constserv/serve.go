package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"constserv/config"
	"constserv/constants"
	"constserv/dataset"
	"constserv/db"
	"constserv/kafka"
	"constserv/lifecycle"
	"constserv/logger"
	"constserv/metrics"
	"constserv/mqttclient"
	"constserv/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// OS 시그널(Ctrl+C, 종료 신호) 수신 시 ctx 취소
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, configPath)
	},
}

var _ server.EventPublisher = (*kafka.KafkaPublisher)(nil)

// newBootLogger builds the logger used before settings are known.
var newBootLogger = func() (*zap.Logger, error) {
	return logger.New("", "")
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, path string) error {
	bootLog, err := newBootLogger()
	if err != nil {
		return err
	}

	// 설정 파일 로드 (실패 시 기본값 사용)
	settings, origin := config.LoadOrDefault(path, bootLog)
	// 폴백 경고가 종료 전에 출력되도록 즉시 flush
	_ = bootLog.Sync()

	log, err := logger.New(settings.Log.Level, settings.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("origin", origin.String()), zap.String("address", settings.Address()))

	// 데이터셋 로드
	table, store, err := loadDataset(ctx, settings, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("Failed to close database", zap.Error(err))
			}
		}()
	}
	resolver := constants.NewResolver(table)
	metrics.RecordDatasetReload("success", resolver.Len())
	log.Info("Dataset loaded", zap.Int("constants", resolver.Len()))

	// CSV 데이터셋 변경 감시
	if store == nil {
		watcher, err := dataset.NewWatcher(settings.Database.Path, resolver, log)
		if err != nil {
			return fmt.Errorf("failed to create dataset watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			log.Warn("Dataset hot reload disabled", zap.Error(err))
		}
		defer watcher.Stop()
	}

	shutdown := lifecycle.NewShutdown()

	opts := []server.Option{server.WithLogger(log)}
	if len(settings.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewKafkaPublisher(settings.Kafka.Brokers, log)
		if err != nil {
			log.Warn("Lookup events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			opts = append(opts, server.WithPublisher(publisher, settings.Kafka.Topic))
		}
	}
	srv := server.NewServer(settings, resolver, shutdown.Trigger("http"), opts...)
	// 서버 종료 후 남은 이벤트 전송 대기 (publisher.Close 보다 먼저 실행)
	defer srv.Wait()

	if settings.MQTT.Broker != "" {
		control, err := mqttclient.NewControlClient(settings.MQTT.Broker, settings.MQTT.ClientID,
			settings.MQTT.ControlTopic, shutdown.Trigger("mqtt"), log)
		if err != nil {
			log.Warn("MQTT control disabled", zap.Error(err))
		} else {
			defer control.Disconnect()
			if err := control.Subscribe(); err != nil {
				log.Warn("MQTT control subscribe failed", zap.Error(err))
			}
		}
	}

	coordinator := lifecycle.NewCoordinator(settings.Address(), srv.Handler(), shutdown,
		lifecycle.WithDrainTimeout(settings.Server.DrainTimeout),
		lifecycle.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coordinator.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			log.Info("Signal received")
			shutdown.Trigger("signal").Fire()
		case <-shutdown.Done():
		case <-gctx.Done():
		}
		return nil
	})

	return g.Wait()
}

// loadDataset reads constants from PostgreSQL when configured, otherwise from the CSV file.
// A configured database that cannot be reached is fatal; a broken CSV file is not.
func loadDataset(ctx context.Context, settings config.Settings, log *zap.Logger) (*constants.Table, *db.Store, error) {
	if settings.Database.ConnectionString == "" {
		table, err := constants.LoadCSV(settings.Database.Path)
		if err != nil {
			log.Warn("Failed to load dataset, starting empty", zap.Error(err))
			return constants.EmptyTable(), nil, nil
		}
		return table, nil, nil
	}

	store, err := db.NewStore(ctx, settings.Database.ConnectionString)
	if err != nil {
		return nil, nil, err
	}
	if err := store.SetupTables(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	table, err := store.LoadTable(ctx)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if table.Len() > 0 {
		return table, store, nil
	}

	// 비어 있는 테이블은 CSV 데이터셋으로 초기화
	seed, err := constants.LoadCSV(settings.Database.Path)
	if err != nil || seed.Len() == 0 {
		return table, store, nil
	}
	rows := make([]constants.Constant, 0, seed.Len())
	for _, name := range seed.Names() {
		c, _ := seed.Lookup(name)
		rows = append(rows, c)
	}
	if err := store.SeedConstants(ctx, rows); err != nil {
		log.Warn("Failed to seed constants table", zap.Error(err))
		return table, store, nil
	}
	log.Info("Seeded constants table from CSV", zap.Int("constants", len(rows)))
	return seed, store, nil
}
