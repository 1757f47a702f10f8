package httpservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ark-network/raffle/internal/config"
	"github.com/ark-network/raffle/internal/core/application"
	interfaces "github.com/ark-network/raffle/internal/interface"
	"github.com/ark-network/raffle/internal/interface/http/handlers"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type service struct {
	config    Config
	appConfig *config.Config
	appSvc    application.Service
	server    *http.Server
}

func NewService(
	svcConfig Config, appConfig *config.Config,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{config: svcConfig, appConfig: appConfig}, nil
}

func (s *service) Start() error {
	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return err
	}

	handler, err := handlers.NewHandler(appSvc)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Addr:              s.config.address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := appSvc.Start(); err != nil {
		return fmt.Errorf("failed to start app service: %s", err)
	}
	s.appSvc = appSvc
	log.Info("started app service")

	go func() {
		if err := s.server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()
	log.Infof("started listening at %s", s.config.address())

	return nil
}

func (s *service) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		//nolint:all
		s.server.Shutdown(ctx)
		log.Info("stopped http server")
	}

	if s.appSvc != nil {
		s.appSvc.Stop()
		log.Info("stopped app service")
	}
}
