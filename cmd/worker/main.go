// Worker consumes registration broadcasts from Kafka and pushes them to Loki, labelled by target
// app, action and outcome. Broadcasts without a target or that do not decode are logged and skipped.
// Set KAFKA_BROKERS, BROADCAST_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"device-checkin/internal/config"
	"device-checkin/internal/gcm/notify"
	"device-checkin/internal/telemetry/loki"
)

const pushTimeout = 10 * time.Second

// pushFunc sends one raw broadcast to the log sink.
type pushFunc func(ctx context.Context, raw []byte) error

// tally counts what happened to consumed broadcasts; it is logged on shutdown.
type tally struct {
	pushed, skipped, failed int
}

// handleBroadcast forwards one Kafka message value. Only envelopes addressed to an app are pushed.
func handleBroadcast(ctx context.Context, push pushFunc, value []byte, t *tally) {
	env, err := notify.Unmarshal(value)
	switch {
	case errors.Is(err, notify.ErrNoTarget):
		log.Printf("worker: skipping broadcast without target (intent %s)", env.Payload.IntentID)
		t.skipped++
		return
	case err != nil:
		log.Printf("worker: skipping malformed broadcast: %v", err)
		t.skipped++
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if err := push(pushCtx, value); err != nil {
		log.Printf("worker: loki push for %s failed: %v", env.Target, err)
		t.failed++
		return
	}
	t.pushed++
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	topic := cfg.BroadcastKafkaTopic
	if topic == "" {
		topic = "gcm-registrations"
	}
	groupID := cfg.KafkaGroupID
	if groupID == "" {
		groupID = "gcm-broadcast-worker"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	push := func(ctx context.Context, raw []byte) error {
		return loki.PushBroadcastJSON(ctx, cfg.LokiURL, raw)
	}
	var t tally
	log.Printf("worker: consuming broadcasts from %s (group %s), pushing to %s", topic, groupID, cfg.LokiURL)
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("worker: stopped (pushed=%d skipped=%d failed=%d)", t.pushed, t.skipped, t.failed)
				return
			}
			log.Printf("worker: kafka read error: %v", err)
			continue
		}
		handleBroadcast(ctx, push, msg.Value, &t)
	}
}
