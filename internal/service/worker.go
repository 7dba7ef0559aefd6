package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/artloop/notify-backend/internal/queue"
)

// Worker drains queued recipient jobs: each job is one gateway attempt plus
// its outcome row, followed by a reconcile pass that finalizes the campaign
// once all of its recipients have been attempted.
type Worker struct {
	Dispatch   *DispatchService
	Reconciler *Reconciler
	Logger     zerolog.Logger
}

// Constructor
func NewWorker(dispatch *DispatchService, reconciler *Reconciler, logger zerolog.Logger) *Worker {
	return &Worker{
		Dispatch:   dispatch,
		Reconciler: reconciler,
		Logger:     logger,
	}
}

// Handle processes a single job. A returned error triggers redelivery, so it
// is only returned before the outcome row exists.
func (w *Worker) Handle(job queue.Job) error {
	if err := w.Dispatch.ProcessJob(context.Background(), job); err != nil {
		return err
	}
	if err := w.Reconciler.ReconcileCampaign(job.CampaignID); err != nil {
		// The outcome row is already durable; the startup sweep will
		// finalize this campaign if we cannot right now.
		w.Logger.Error().Err(err).Int("campaign_id", job.CampaignID).Msg("reconcile after job failed")
	}
	return nil
}

// Run subscribes the worker to the dispatch topic.
func (w *Worker) Run(q queue.Queue) error {
	return q.Subscribe(QueueTopic, w.Handle)
}
