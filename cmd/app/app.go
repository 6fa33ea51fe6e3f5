package main

import (
	"os"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/app"
	config "github.com/NouvelleRive/nouvelle-rive-sub001/internal/cfg"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
)

// @title			Sales reconciliation API
// @version		1.0
// @description	Приём продаж из кассы, маркетплейса и витрины, сверка журнала продаж и оформление заказов.
// @BasePath		/
func main() {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "sales-reconciliation"
	}
	log := logger.MustNewZapLogger(service, os.Getenv("APP_ENV"))

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		os.Exit(1)
	}
}
