package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/firestore"
	"github.com/bwmarrin/discordgo"
	"google.golang.org/api/iterator"

	"github.com/Snaptraks/FateBot/bot"
	"github.com/Snaptraks/FateBot/catalog"
	"github.com/Snaptraks/FateBot/config"
	"github.com/Snaptraks/FateBot/constants"
	"github.com/Snaptraks/FateBot/coordinator"
	"github.com/Snaptraks/FateBot/gateway"
	"github.com/Snaptraks/FateBot/health"
	"github.com/Snaptraks/FateBot/interfaces"
	"github.com/Snaptraks/FateBot/session"
	"github.com/Snaptraks/FateBot/sheets"
	"github.com/Snaptraks/FateBot/storage"
	"github.com/Snaptraks/FateBot/telemetry"
	"github.com/Snaptraks/FateBot/utils"
)

// Application wires the bot together: config, storage, the Discord
// session, the coordinator and the command handler.
type Application struct {
	config         *config.Config
	session        *discordgo.Session
	discordGateway *gateway.DiscordGateway
	storage        interfaces.EventRepository
	catalog        *catalog.Catalog
	coordinator    *coordinator.Coordinator
	commandHandler *bot.CommandHandler
	metrics        *telemetry.MetricsClient
	exporter       session.AttendanceExporter
}

func New() (*Application, error) {
	app := &Application{}

	if err := app.loadConfig(); err != nil {
		return nil, err
	}

	if err := app.initializeDependencies(); err != nil {
		return nil, err
	}

	if err := app.initializeDiscord(); err != nil {
		return nil, err
	}

	app.setupHandlers()

	return app, nil
}

func (app *Application) loadConfig() error {
	app.config = config.Load()
	if err := app.config.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func (app *Application) initializeDependencies() error {
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("failed to load event catalog: %w", err)
	}
	app.catalog = cat

	store, err := storage.New(app.config.Storage.Backend, app.config.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.storage = store

	// Firestore gets a named health check; the other backends have
	// nothing remote to probe.
	type clientProvider interface {
		GetClient() interface{}
	}
	if provider, ok := store.(clientProvider); ok {
		if client, ok := provider.GetClient().(*firestore.Client); ok && client != nil {
			health.RegisterChecker("firestore", func() error {
				_, err := client.Collections(context.Background()).Next()
				if err != nil && err != iterator.Done {
					return err
				}
				return nil
			})
			utils.Info("Firestore health checker registered")
		}
	}

	if app.config.Telemetry.Enabled {
		app.metrics = telemetry.NewMetricsClient(app.config.Telemetry.ProjectID)
	}

	if app.config.Sheets.SpreadsheetID != "" {
		exporter, err := sheets.NewClient(context.Background(), app.config.Sheets.SpreadsheetID)
		if err != nil {
			utils.Warn("Attendance export disabled: %v", err)
		} else {
			app.exporter = exporter
		}
	}

	return nil
}

func (app *Application) initializeDiscord() error {
	discordSession, err := discordgo.New("Bot " + app.config.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	discordSession.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent |
		discordgo.IntentsDirectMessages

	app.session = discordSession
	app.discordGateway = gateway.New(discordSession)
	return nil
}

func (app *Application) setupHandlers() {
	var metrics session.EventMetrics
	if app.metrics != nil {
		metrics = app.metrics
	}

	app.coordinator = coordinator.New(coordinator.Deps{
		Repo:     app.storage,
		Gateway:  app.discordGateway,
		Catalog:  app.catalog,
		Exporter: app.exporter,
		Metrics:  metrics,
	})
	health.SetActiveEventsFunc(func() int {
		return len(app.coordinator.ActiveEventIDs())
	})

	app.commandHandler = bot.NewCommandHandler(&bot.CommandDependencies{
		Coordinator:   app.coordinator,
		Catalog:       app.catalog,
		Gateway:       app.discordGateway,
		MetricsClient: app.metrics,
		Prefix:        app.config.Discord.CommandPrefix,
	})

	app.session.AddHandler(app.discordGateway.HandleReady)
	app.session.AddHandler(app.commandHandler.HandleMessage)
	app.session.AddHandler(app.commandHandler.HandleReactionAdd)
}

func (app *Application) Start() error {
	if err := app.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if err := app.discordGateway.WaitUntilReady(constants.GatewayReadyTimeout); err != nil {
		return err
	}

	// Recover persisted events before accepting new ones, so restarts
	// pick up live rosters where they left off.
	if err := app.coordinator.RecoverAll(); err != nil {
		utils.Error("Event recovery failed: %v", err)
	}

	utils.Info("FateBot ready, command prefix %q", app.config.Discord.CommandPrefix)
	return nil
}

func (app *Application) Run() error {
	if err := app.Start(); err != nil {
		return err
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	return app.Stop()
}

func (app *Application) Stop() error {
	utils.Info("Shutting down...")

	app.coordinator.Shutdown()

	if app.metrics != nil {
		app.metrics.Close()
	}
	if app.session != nil {
		app.session.Close()
	}
	if app.storage != nil {
		app.storage.Close()
	}

	utils.Info("Shutdown complete")
	return nil
}
