package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"coact/pkg/capability"
	"coact/pkg/computer"
	"coact/pkg/convo"
	"coact/pkg/events"
	"coact/pkg/grounding"
	"coact/pkg/llm"
	"coact/pkg/logging"
	"coact/pkg/ocr"
	"coact/pkg/roles"
	"coact/pkg/session"
	"coact/pkg/settings"
)

func main() {
	var (
		message    = flag.String("m", "", "the user task to execute")
		configPath = flag.String("config", "coact_settings.json", "path to the settings file")
	)
	flag.Parse()

	if *message == "" {
		fmt.Fprintln(os.Stderr, "usage: coact -m \"<task>\"")
		os.Exit(2)
	}

	cfg, err := settings.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	outcome, err := run(cfg, *message, logger)
	if err != nil {
		logger.Fatal("session failed to start", zap.Error(err))
	}

	encoded, _ := json.MarshalIndent(outcome, "", "  ")
	fmt.Println(string(encoded))
	if outcome.Status != "completed" {
		os.Exit(1)
	}
}

func run(cfg *settings.Settings, task string, logger *zap.Logger) (session.Outcome, error) {
	bc := events.NewBroadcaster(logger)
	defer bc.Close()
	status := events.NewStatusBoard(bc)

	if cfg.ObserverAddr != "" {
		observer := events.NewObserverServer(bc, cfg.ObserverAddr, logger)
		observer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			observer.Shutdown(shutdownCtx)
		}()
		logger.Info("observer server listening", zap.String("addr", cfg.ObserverAddr))
	}

	surface := computer.NewLocal(logger)

	engine := ocr.NewTesseract()
	defer engine.Close()
	ocrProc := ocr.NewProcessor(engine, cfg.OCRTextThreshold, bc, logger)

	groundingModel := grounding.NewOllamaModel(cfg.LLMEndpoint, cfg.GroundingModel)
	grounder, err := grounding.NewAdapter(groundingModel, cfg.GroundingConfidenceThreshold, cfg.GroundingCacheSize, bc, status, logger)
	if err != nil {
		return session.Outcome{}, err
	}

	convoMgr := convo.NewManager(cfg.ContextBudget)

	programmerProxy := capability.NewProgrammerProxy(surface, cfg.ActionTimeout, bc, logger)
	guiProxy := capability.NewGUIOperatorProxy(surface, ocrProc, cfg.ActionTimeout, bc, logger)

	programmer := roles.NewProgrammer(
		programmerProxy,
		llm.NewOllamaDecider(cfg.LLMEndpoint, cfg.ProgrammerModel, logger),
		convoMgr, status, cfg.MaxSubtaskSteps, logger)
	guiOperator := roles.NewGUIOperator(
		guiProxy,
		llm.NewOllamaDecider(cfg.LLMEndpoint, cfg.GUIOperatorModel, logger),
		convoMgr, ocrProc, grounder, status, bc, cfg.MaxSubtaskSteps, logger)
	orchestrator := roles.NewOrchestrator(
		llm.NewOllamaDecider(cfg.LLMEndpoint, cfg.OrchestratorModel, logger),
		convoMgr, status, logger)

	var audit *session.Audit
	if cfg.AuditPath != "" {
		audit, err = session.OpenAudit(cfg.AuditPath, logger)
		if err != nil {
			logger.Warn("audit database unavailable", zap.Error(err))
			audit = nil
		} else {
			defer audit.Close()
		}
	}

	controller := session.NewController(surface, orchestrator,
		[]roles.Specialist{programmer, guiOperator},
		bc, status, audit, cfg.MaxIterations, logger)

	logger.Info("starting task", zap.String("task", task))
	return controller.Run(context.Background(), task), nil
}
