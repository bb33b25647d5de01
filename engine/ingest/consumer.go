package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
)

const (
	// IngestSubject is the NATS subject for incoming incident reports.
	IngestSubject = "copilot.ingest"
	// DLQSubject is the dead letter queue for documents that keep failing.
	DLQSubject = "copilot.ingest.dlq"
	// MaxRetries before a document is sent to the DLQ.
	MaxRetries = 3
)

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Doc     SourceDoc `json:"doc"`
	Error   string    `json:"error"`
	Retries int       `json:"retries"`
}

// StartConsumer subscribes to IngestSubject and runs incoming reports
// through the ingestion pipeline with retry and DLQ support. Parse failures
// go straight to the DLQ; transient embed/store failures are re-published
// with an incremented retry count.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	ing := New(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(IngestSubject, func(msg *nats.Msg) {
		var doc SourceDoc
		if err := json.Unmarshal(msg.Data, &doc); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		incidentID, err := ing.IngestDoc(ctx, doc)
		if err == nil {
			log.Info("ingest: success", "incident_id", incidentID)
			if msg.Reply != "" {
				_ = msg.Ack()
			}
			return
		}

		retries++
		log.Error("ingest: pipeline failed", "doc", doc.Name, "error", err, "retry", retries)

		// Malformed documents never become valid on retry.
		if errors.Is(err, domain.ErrIngestionParse) || retries >= MaxRetries {
			dlq := dlqMessage{Doc: doc, Error: err.Error(), Retries: retries}
			data, _ := json.Marshal(dlq)
			if perr := nc.Publish(DLQSubject, data); perr != nil {
				log.Error("ingest: DLQ publish failed", "error", perr)
			}
		} else {
			retryMsg := nats.NewMsg(IngestSubject)
			retryMsg.Data = msg.Data
			retryMsg.Header = nats.Header{}
			retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
			if perr := nc.PublishMsg(retryMsg); perr != nil {
				log.Error("ingest: retry publish failed", "error", perr)
			}
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}
