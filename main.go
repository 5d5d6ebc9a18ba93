package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/Armoredbrain/RoBoTo/bot"
	"github.com/Armoredbrain/RoBoTo/clients"
	"github.com/Armoredbrain/RoBoTo/config"
	"github.com/Armoredbrain/RoBoTo/flowstore"
	"github.com/Armoredbrain/RoBoTo/server"
	"github.com/Armoredbrain/RoBoTo/sessionstore"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	mapping, err := config.LoadMapping(cfg.MappingPath)
	if err != nil {
		log.Fatalf("Error loading flow mapping: %v", err)
	}

	sessions, err := sessionstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Error connecting to mongo: %v", err)
	}
	defer sessions.Close(ctx)

	nlu := clients.NewNLU(logger, cfg.NLUBaseURL, cfg.NLUToken)
	if err := nlu.Connect(ctx); err != nil {
		log.Fatalf("Error waiting for nlu: %v", err)
	}
	itsm := clients.NewITSM(logger, cfg.ITSMBaseURL)
	orchestrator := clients.NewOrchestrator(logger, cfg.OrchestratorURL)
	messenger := clients.NewMessenger(logger, cfg.MessengerURL)

	flows := flowstore.New(cfg.FlowsDir)
	gate := &bot.Gate{NLU: nlu, Flows: flows, Mapping: mapping}

	registry := bot.NewRegistry()
	bot.NewActions(logger, nlu, itsm, orchestrator, gate, flows).RegisterAll(registry)
	runner := bot.NewRunner(logger, registry, flows, sessions, messenger)

	g := gin.Default()
	server.New(logger, runner, flows, sessions).Routes(g)

	if err := g.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Error running server: %v", err)
	}
}
