package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dentatrack/console/api"
	"github.com/dentatrack/console/appointments"
	"github.com/dentatrack/console/auth"
	"github.com/dentatrack/console/clinics"
	"github.com/dentatrack/console/dashboard"
	"github.com/dentatrack/console/internal/config"
	"github.com/dentatrack/console/inventory"
	"github.com/dentatrack/console/invitations"
	"github.com/dentatrack/console/notify"
	"github.com/dentatrack/console/products"
	"github.com/dentatrack/console/server"
	"github.com/dentatrack/console/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("console stopped")
	}
	log.Info().Msg("console stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	config.LoadDotEnv()
	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := session.NewFileStore(c.GetDataFolder(), c.GetStoreSecret())
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}

	client := api.New(c.GetAPIBaseURL(), store, api.WithLogger(log.Logger))

	authManager, err := auth.NewManager(client, store, log.Logger)
	if err != nil {
		return fmt.Errorf("create auth manager: %w", err)
	}
	// Forced return-to-login when a refresh fails terminally.
	client.SetSessionExpiredHook(authManager.SessionExpired)

	clinicService := clinics.NewService(client)
	selector := clinics.NewSelector(ctx, clinicService, store, log.Logger)
	selector.Bind(authManager)

	// Push notifications follow the active clinic for the life of the process.
	startNotifications(ctx, c, authManager, selector)

	if err := authManager.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("session initialization failed")
	}

	facade, err := server.New(server.Deps{
		Auth:         authManager,
		Selector:     selector,
		Clinics:      clinicService,
		Products:     products.NewService(client),
		Appointments: appointments.NewService(client),
		Inventory:    inventory.NewService(client),
		Invitations:  invitations.NewService(client),
		Dashboard:    dashboard.NewService(client),
	}, log.Logger)
	if err != nil {
		return fmt.Errorf("create console server: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: mount(c.GetBasePath(), facade)}
	go listenAndServe(httpServer)
	waitForStopSignal()
	cancel()
	return shutdown(httpServer)
}

// startNotifications subscribes to the active clinic's topic once a clinic
// context exists, logging incoming alerts.
func startNotifications(ctx context.Context, c config.Config, authManager *auth.Manager, selector *clinics.Selector) {
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		var current string
		var cancelCurrent context.CancelFunc
		for {
			select {
			case <-ctx.Done():
				if cancelCurrent != nil {
					cancelCurrent()
				}
				return
			case <-ticker.C:
			}

			active := selector.Active()
			switch {
			case active == nil && cancelCurrent != nil:
				cancelCurrent()
				cancelCurrent = nil
				current = ""
			case active != nil && active.ID != current:
				if cancelCurrent != nil {
					cancelCurrent()
				}
				subCtx, cancel := context.WithCancel(ctx)
				cancelCurrent = cancel
				current = active.ID
				consumeNotifications(subCtx, c.GetWebSocketURL(), active.ID)
			}
		}
	}()
}

func consumeNotifications(ctx context.Context, wsURL, clinicID string) {
	sub := notify.NewSubscriber(wsURL, clinicID, log.Logger)
	messages := sub.Run(ctx)
	go func() {
		for msg := range messages {
			switch msg.Kind {
			case notify.KindLowStock:
				log.Warn().Str("product", msg.LowStock.ProductName).Int("quantity", msg.LowStock.Quantity).Msg("low stock alert")
			case notify.KindAppointmentReminder:
				log.Info().Str("patient", msg.Appointment.PatientName).Time("at", msg.Appointment.DateTime).Msg("appointment reminder")
			default:
				log.Debug().RawJSON("payload", msg.Raw).Msg("notification")
			}
		}
	}()
}

// mount serves the facade under basePath, matching the path the platform's
// reverse proxy forwards. An empty or root base path serves it directly.
func mount(basePath string, handler http.Handler) http.Handler {
	if basePath == "" || basePath == "/" {
		return handler
	}
	mux := http.NewServeMux()
	mux.Handle(basePath+"/", http.StripPrefix(basePath, handler))
	return mux
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("console listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
