package main

import (
	"bytes"
	"context"
	"crypto/cipher"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/DamionHane/FHEReporting/internal/config"
	"github.com/DamionHane/FHEReporting/internal/logger"
	"github.com/DamionHane/FHEReporting/internal/models"
	"github.com/DamionHane/FHEReporting/internal/oracle"
	"github.com/DamionHane/FHEReporting/internal/sealing"
	"github.com/DamionHane/FHEReporting/internal/workflow"
)

// worker consumes decryption requests, opens the sealed boxes with the shared
// sealing key, and posts signed results back to the callback endpoint.
type worker struct {
	aead         cipher.AEAD
	signer       *oracle.Signer
	callbackURL  string
	client       *http.Client
	retryBackoff time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, "oracle-worker")

	slog.Info("Starting oracle worker",
		"queue", cfg.Oracle.Queue,
		"callback_url", cfg.Oracle.CallbackURL,
	)

	key, err := sealing.KeyFromEnv(cfg.Sealing.Key, cfg.Sealing.Secret)
	if err != nil {
		slog.Error("Failed to load sealing key", "error", err)
		os.Exit(1)
	}
	aead, err := sealing.NewAEAD(key)
	if err != nil {
		slog.Error("Failed to initialize sealing cipher", "error", err)
		os.Exit(1)
	}

	signer, err := oracle.NewSigner(cfg.Oracle.SignerSeed)
	if err != nil {
		slog.Error("Failed to load signing seed", "error", err)
		os.Exit(1)
	}

	conn, err := amqp.Dial(cfg.Oracle.AMQPURI)
	if err != nil {
		slog.Error("Failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		slog.Error("Failed to open channel", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	deliveries, err := oracle.Consume(ch, cfg.Oracle.Queue)
	if err != nil {
		slog.Error("Failed to start consuming", "error", err)
		os.Exit(1)
	}

	w := &worker{
		aead:         aead,
		signer:       signer,
		callbackURL:  cfg.Oracle.CallbackURL,
		client:       &http.Client{Timeout: 10 * time.Second},
		retryBackoff: cfg.Oracle.CallbackInterval,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("Oracle worker ready")

	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				slog.Error("Delivery channel closed")
				os.Exit(1)
			}
			w.handle(delivery)
		case <-quit:
			slog.Info("Oracle worker stopping")
			return
		}
	}
}

// handle processes one decryption request. Requeue on transient failures,
// drop on malformed payloads.
func (w *worker) handle(delivery amqp.Delivery) {
	var req models.OracleRequest
	if err := json.Unmarshal(delivery.Body, &req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		_ = delivery.Nack(false, false)
		return
	}

	values, err := w.decrypt(&req)
	if err != nil {
		slog.Error("Failed to decrypt request", "request_id", req.RequestID, "error", err)
		_ = delivery.Nack(false, false)
		return
	}

	if err := w.postCallback(req.RequestID, values); err != nil {
		slog.Error("Callback failed", "request_id", req.RequestID, "error", err)
		// Pace the requeue so a downed API does not spin the queue.
		time.Sleep(w.retryBackoff)
		_ = delivery.Nack(false, true)
		return
	}

	slog.Info("Decryption completed", "request_id", req.RequestID, "report_id", req.ReportID)
	_ = delivery.Ack(false)
}

// decrypt opens the sealed boxes carried in the request.
func (w *worker) decrypt(req *models.OracleRequest) (models.ClearValues, error) {
	var values models.ClearValues

	category, err := sealing.Unseal(w.aead, workflow.SealedKindCategory, req.SealedCategory)
	if err != nil {
		return values, fmt.Errorf("category: %w", err)
	}
	severity, err := sealing.Unseal(w.aead, workflow.SealedKindSeverity, req.SealedSeverity)
	if err != nil {
		return values, fmt.Errorf("severity: %w", err)
	}
	rawTimestamp, err := sealing.Unseal(w.aead, workflow.SealedKindTimestamp, req.SealedTimestamp)
	if err != nil {
		return values, fmt.Errorf("timestamp: %w", err)
	}

	if len(category) != 1 || len(severity) != 1 {
		return values, fmt.Errorf("unexpected value length")
	}
	timestamp, err := workflow.DecodeTimestamp(rawTimestamp)
	if err != nil {
		return values, err
	}

	values.Category = category[0]
	values.Severity = severity[0]
	values.Timestamp = timestamp
	return values, nil
}

// postCallback signs the result and delivers it to the API.
func (w *worker) postCallback(requestID string, values models.ClearValues) error {
	proof := w.signer.Sign(requestID, values)

	payload, err := json.Marshal(map[string]interface{}{
		"request_id": requestID,
		"category":   values.Category,
		"severity":   values.Severity,
		"timestamp":  values.Timestamp,
		"proof":      hex.EncodeToString(proof),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal callback: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.callbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to post callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("callback rejected with status %d", resp.StatusCode)
	}
	return nil
}
