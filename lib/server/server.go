package server

import (
	"fmt"
	"os"

	"github.com/ether/etherdoc/lib"
	api2 "github.com/ether/etherdoc/lib/api"
	"github.com/ether/etherdoc/lib/db"
	"github.com/ether/etherdoc/lib/hooks"
	"github.com/ether/etherdoc/lib/session"
	settings2 "github.com/ether/etherdoc/lib/settings"
	"github.com/ether/etherdoc/lib/utils"
	"github.com/ether/etherdoc/lib/ws"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NewApp wires the editor services around dataStore and registers every
// route. The returned function stops the background services.
func NewApp(settings *settings2.Settings, dataStore db.DataStore, setupLogger *zap.SugaredLogger) (*lib.InitStore, func()) {
	validatorEvaluator := validator.New(validator.WithRequiredStructEnabled())
	retrievedHooks := hooks.NewHook()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             int(max(settings.Import.MaxFileSize, 4*1024*1024)) + 64*1024,
	})

	manager := session.NewManager(dataStore, retrievedHooks, settings, setupLogger)
	manager.SetImageMeasurer(session.NewImageMeasurer(nil))
	globalHub := ws.NewHub(setupLogger)
	broadcaster := ws.NewBroadcaster(globalHub, retrievedHooks, setupLogger)
	messageHandler := ws.NewMessageHandler(manager, globalHub, validatorEvaluator, setupLogger)
	go globalHub.Run()

	store := &lib.InitStore{
		C:                 app,
		RetrievedSettings: settings,
		Store:             dataStore,
		Manager:           manager,
		Hub:               globalHub,
		Handler:           messageHandler,
		Validator:         validatorEvaluator,
		Logger:            setupLogger,
		Hooks:             retrievedHooks,
	}
	api2.InitAPI(store)

	return store, func() {
		broadcaster.Close()
		globalHub.Stop()
		manager.Close()
	}
}

func InitServer(setupLogger *zap.SugaredLogger) {
	settings := settings2.InitSettings(setupLogger)
	logger := utils.SetupLoggerWithLevel(settings.LogLevel)

	logger.Info("Starting Etherdoc...")
	logger.Info("Report bugs at https://github.com/ether/etherdoc/issues")
	logger.Info("Your Etherdoc version is " + settings.GitVersion)

	dataStore, err := utils.GetDB(*settings, logger)
	if err != nil {
		logger.Fatal("Error connecting to database: " + err.Error())
		return
	}
	defer dataStore.Close()

	store, stop := NewApp(settings, dataStore, logger)
	defer stop()

	StartUpdateRoutine(logger, dataStore, settings.GitVersion)

	fiberString := fmt.Sprintf("%s:%s", settings.IP, settings.Port)
	logger.Info("Starting API on " + fiberString)
	err = store.C.Listen(fiberString)
	if err != nil {
		logger.Error("Error starting API: " + err.Error())
		os.Exit(1)
	}
}
