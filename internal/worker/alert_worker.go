package worker

// alert_worker.go
// Processes status alert jobs from QueueAlerts: emails supervisors when an
// allocation turns delayed or overproduced. Failures go to the DLQ so a down
// SMTP server never loses an alert silently.

import (
	"context"
	"encoding/json"
	"fmt"

	"stitcherp/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// AlertWorker sends allocation status alerts via SMTP.
type AlertWorker struct {
	mailer *infra.Mailer
	to     string
}

func NewAlertWorker(mailer *infra.Mailer, to string) *AlertWorker {
	return &AlertWorker{mailer: mailer, to: to}
}

// Process sends one alert email.
func (w *AlertWorker) Process(ctx context.Context, rdb *redis.Client, raw json.RawMessage) {
	var payload StatusAlertPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alert_worker: invalid payload")
		return
	}
	if w.to == "" {
		log.Warn().Msg("alert_worker: no alert recipient configured, skipping")
		return
	}

	subject := fmt.Sprintf("Allocation %s: machine %s on order %s",
		payload.Status, payload.MachineID, payload.WorkOrderID)
	body := fmt.Sprintf(
		"Allocation for work order %s on machine %s changed to %s (pending stitches: %s).",
		payload.WorkOrderID, payload.MachineID, payload.Status, payload.Pending)

	if err := w.mailer.SendAlert(w.to, subject, body); err != nil {
		log.Error().Err(err).Str("to", w.to).Msg("alert_worker: failed to send alert")
		SendToDLQ(ctx, rdb, QueueAlerts, "status_alert", raw, err.Error(), 1)
		return
	}
	log.Info().
		Str("work_order", payload.WorkOrderID).
		Str("machine", payload.MachineID).
		Str("status", payload.Status).
		Msg("alert_worker: alert sent")
}
