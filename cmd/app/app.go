package main

import (
	"os"

	"github.com/DRSN-tech/storefront-sync/internal/app"
	config "github.com/DRSN-tech/storefront-sync/internal/cfg"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
)

// @title			Storefront Sync API
// @version		1.0
// @description	Каталог админки, витрина и корзина с синхронизацией между вкладками
// @BasePath		/api/v1
func main() {
	log := logger.NewSlogLogger()

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
