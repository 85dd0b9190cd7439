package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/iurnickita/ecosystem/internal/config"
	"github.com/iurnickita/ecosystem/internal/handler"
	"github.com/iurnickita/ecosystem/internal/logger"
	"github.com/iurnickita/ecosystem/internal/service"
	"github.com/iurnickita/ecosystem/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.GetConfig()

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	service, err := service.NewService(cfg.Service, cfg.Notify, store, zaplog)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(context.Background()); err != nil {
			zaplog.Error("service close", zap.Error(err))
		}
	}()

	if err = service.Activate(context.Background()); err != nil {
		return err
	}

	return handler.Serve(cfg.Handler, service, zaplog)
}
