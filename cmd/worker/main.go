// cmd/worker/main.go
package main

import (
	"github.com/rs/zerolog"

	"github.com/artloop/notify-backend/internal/config"
	"github.com/artloop/notify-backend/internal/db"
	"github.com/artloop/notify-backend/internal/gateway"
	"github.com/artloop/notify-backend/internal/logger"
	"github.com/artloop/notify-backend/internal/model"
	"github.com/artloop/notify-backend/internal/queue"
	"github.com/artloop/notify-backend/internal/repository"
	"github.com/artloop/notify-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	outcomeRepo := &repository.OutcomeRepository{DB: conn}

	dispatchService := &service.DispatchService{
		CampaignRepo: campaignRepo,
		OutcomeRepo:  outcomeRepo,
		NewGateway:   gatewayFactory(cfg, log),
		SendTimeout:  cfg.SendTimeout,
		Logger:       log,
	}
	reconciler := &service.Reconciler{
		CampaignRepo: campaignRepo,
		OutcomeRepo:  outcomeRepo,
		Logger:       log,
	}

	// Finalize anything a previous worker left half-sent before consuming
	// new jobs.
	if err := reconciler.ReconcileAll(); err != nil {
		log.Error().Err(err).Msg("startup reconcile failed")
	}

	q, err := queue.DialAMQP(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("amqp connection failed")
	}
	defer q.Close()

	worker := service.NewWorker(dispatchService, reconciler, log)
	if err := worker.Run(q); err != nil {
		log.Fatal().Err(err).Msg("worker subscribe failed")
	}

	log.Info().Str("topic", service.QueueTopic).Msg("worker consuming")
	select {}
}

func gatewayFactory(cfg config.Config, log zerolog.Logger) service.GatewayFactory {
	return func(c *model.Campaign, sender string) (gateway.Gateway, error) {
		return gateway.ForCampaign(c, sender, cfg, log)
	}
}
