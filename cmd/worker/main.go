// Worker consumes auth events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asr-auth/internal/config"
	"asr-auth/internal/logger"
	"asr-auth/internal/telemetry/loki"

	"github.com/segmentio/kafka-go"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "text").Fatalf("config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat).WithField("component", "worker")

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("LOKI_URL is required")
	}

	client, err := loki.NewClient(cfg.LokiURL, "asr-auth")
	if err != nil {
		log.WithError(err).Fatal("loki")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    cfg.TelemetryKafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(map[string]interface{}{
		"topic": cfg.TelemetryKafkaTopic,
		"group": cfg.KafkaGroupID,
		"loki":  cfg.LokiURL,
	}).Info("consuming auth events")

	for {
		batch, err := fetchBatch(ctx, reader, maxBatch, batchWait)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("stopped")
				return
			}
			log.WithError(err).Warn("kafka read error")
			continue
		}

		values := make([][]byte, len(batch))
		for i, m := range batch {
			values[i] = m.Value
		}
		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		err = client.Push(pushCtx, values...)
		pushCancel()
		if err != nil {
			// Uncommitted offsets are redelivered after a restart.
			log.WithError(err).WithFields(map[string]interface{}{
				"first_offset": batch[0].Offset,
				"count":        len(batch),
			}).Warn("loki push failed")
			continue
		}
		if err := reader.CommitMessages(ctx, batch...); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("kafka commit failed")
		}
	}
}

const (
	maxBatch  = 100
	batchWait = time.Second
)

// fetchBatch blocks for one message, then collects more until limit or wait elapses.
func fetchBatch(ctx context.Context, r *kafka.Reader, limit int, wait time.Duration) ([]kafka.Message, error) {
	first, err := r.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	for len(batch) < limit {
		m, err := r.FetchMessage(waitCtx)
		if err != nil {
			break
		}
		batch = append(batch, m)
	}
	return batch, nil
}
