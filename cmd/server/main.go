// cmd/server/main.go
package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artloop/notify-backend/internal/config"
	"github.com/artloop/notify-backend/internal/controller"
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
		Mode:         cfg.DispatchMode,
		SendTimeout:  cfg.SendTimeout,
		Logger:       log,
	}

	if cfg.DispatchMode == config.DispatchQueue {
		q, err := queue.DialAMQP(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("amqp connection failed")
		}
		defer q.Close()
		dispatchService.Queue = q
	}

	// Campaigns stuck in `sending` from a previous crash get their terminal
	// status recomputed from their outcome rows before we take traffic.
	reconciler := &service.Reconciler{
		CampaignRepo: campaignRepo,
		OutcomeRepo:  outcomeRepo,
		Logger:       log,
	}
	if err := reconciler.ReconcileAll(); err != nil {
		log.Error().Err(err).Msg("startup reconcile failed")
	}

	campaignController := &controller.CampaignController{
		Dispatch:     dispatchService,
		CampaignRepo: campaignRepo,
		OutcomeRepo:  outcomeRepo,
		Logger:       log,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateAndSendCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Get("/campaigns/{id}/outcomes", campaignController.ListOutcomes)
	r.Post("/campaigns/preview", campaignController.Preview)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Str("mode", cfg.DispatchMode).Msg("server running")
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func gatewayFactory(cfg config.Config, log zerolog.Logger) service.GatewayFactory {
	return func(c *model.Campaign, sender string) (gateway.Gateway, error) {
		return gateway.ForCampaign(c, sender, cfg, log)
	}
}
