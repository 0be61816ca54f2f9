package main

import (
	"fmt"
	"os"

	"github.com/avtoline/garage-billing/internal/auth"
	"github.com/avtoline/garage-billing/internal/config"
	"github.com/avtoline/garage-billing/internal/db"
	"github.com/avtoline/garage-billing/internal/excel"
	httphandler "github.com/avtoline/garage-billing/internal/http"
	"github.com/avtoline/garage-billing/internal/http/middleware"
	"github.com/avtoline/garage-billing/internal/logger"
	"github.com/avtoline/garage-billing/internal/pdf"
	"github.com/avtoline/garage-billing/internal/repository"
	"github.com/avtoline/garage-billing/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	documentRepo := repository.NewDocumentRepository(database)
	pdfGenerator := pdf.NewGenerator()
	excelGenerator := excel.NewGenerator()

	documentService := service.NewDocumentService(documentRepo, pdfGenerator, excelGenerator, cfg)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(documentService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting billing service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
