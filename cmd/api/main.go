package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/erp-offline/internal/application/company"
	"github.com/jhoicas/erp-offline/internal/application/session"
	"github.com/jhoicas/erp-offline/internal/bootstrap"
	"github.com/jhoicas/erp-offline/internal/domain/repository"
	"github.com/jhoicas/erp-offline/internal/infrastructure/companyapi"
	"github.com/jhoicas/erp-offline/internal/infrastructure/connectivity"
	httpRouter "github.com/jhoicas/erp-offline/internal/interfaces/http"
	"github.com/jhoicas/erp-offline/pkg/config"
	"github.com/jhoicas/erp-offline/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	engine, err := bootstrap.OpenEngine(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir base local")
	}
	defer engine.Close()
	log.Info().Int("schema_version", engine.Version()).Msg("base local abierta")

	// Directorio de empresas: remoto si COMPANY_API_URL está definido, si no local.
	monitor := connectivity.NewMonitor(log)
	var (
		api       repository.CompanyAPI
		directory repository.CompanyAPI
	)
	if cfg.CompanyAPI.Remote() {
		client := companyapi.NewClient(cfg.CompanyAPI.BaseURL, cfg.CompanyAPI.Timeout)
		api = client
		go monitor.Run(ctx, cfg.Session.ConnectivityPoll, client.Ping)
		log.Info().Str("url", cfg.CompanyAPI.BaseURL).Msg("directorio remoto")
	} else {
		local, err := bootstrap.NewDirectory(engine, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("directorio local")
		}
		created, err := local.EnsureDemo(ctx, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("empresa demo")
		}
		if created {
			log.Info().Msg("empresa demo registrada")
		}
		api = local
		if cfg.CompanyAPI.ServeDirectory {
			directory = local
		}
	}

	cache, err := bootstrap.OpenCache(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("caché local")
	}
	sess, err := session.New(cache, session.WithLead(cfg.Session.RefreshLead))
	if err != nil {
		log.Fatal().Err(err).Msg("sesión persistida")
	}

	companyCtx := company.NewContext(api, sess, cache, monitor, log,
		company.WithRefreshInterval(cfg.Session.RefreshInterval),
		company.WithLogoutTimeout(cfg.Session.LogoutTimeout),
	)
	if err := companyCtx.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("restaurar sesión de empresa")
	}
	defer companyCtx.Close()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Store:     engine,
		Registry:  engine.Registry(),
		Company:   companyCtx,
		Directory: directory,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
