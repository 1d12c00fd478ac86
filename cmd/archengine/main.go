package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	applicationflow "github.com/archflow/archengine/internal/application/flow"
	"github.com/archflow/archengine/internal/config"
	"github.com/archflow/archengine/internal/infrastructure/audit"
	"github.com/archflow/archengine/internal/infrastructure/conversation"
	"github.com/archflow/archengine/internal/infrastructure/engine"
	"github.com/archflow/archengine/internal/infrastructure/events"
	"github.com/archflow/archengine/internal/infrastructure/interceptor"
	"github.com/archflow/archengine/internal/infrastructure/logging"
	"github.com/archflow/archengine/internal/infrastructure/state"
	"github.com/archflow/archengine/internal/infrastructure/tool"
	"github.com/archflow/archengine/internal/ports"
)

func main() {
	appLogger, err := logging.New(logging.Options{
		Level:     "info",
		Component: "cli",
		Layer:     "infrastructure",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application logger: %v\n", err)
		os.Exit(1)
	}

	correlationID := ports.GenerateCorrelationID()
	ctx := ports.WithCorrelationID(context.Background(), correlationID)

	agentCfg := config.Default()

	eventPublisher := events.NewStreamPublisher(256, appLogger.With("component", "event_publisher"))
	eventPublisher.Heartbeat(ctx, time.Duration(agentCfg.Monitoring.MetricsInterval)*time.Second)

	metricsCollector := engine.NewPrometheusCollector(prometheus.NewRegistry())
	tracer := engine.NewOtelTracer("archengine")

	toolRegistry := tool.NewRegistry()
	chain := interceptor.NewChain(
		interceptor.NewLoggingInterceptor(appLogger.With("component", "tool_chain")),
		interceptor.NewGuardrailInterceptor(),
		interceptor.NewBreakerInterceptor(nil),
		interceptor.NewCacheInterceptor(interceptor.NewMemoryCacheStore(), 60),
		interceptor.NewMetricsInterceptor(metricsCollector),
	)

	dispatcher := engine.NewToolDispatcher(toolRegistry, chain)
	deterministic := engine.NewDeterministicExecutor(dispatcher, appLogger.With("component", "deterministic_executor"))
	parallelExec := engine.NewParallelExecutor(deterministic, agentCfg.Resources.MaxThreads)
	guards := engine.NewGojqEvaluator()
	manager := engine.NewManager(deterministic, parallelExec, guards,
		engine.WithManagerPublisher(eventPublisher),
		engine.WithManagerLogger(appLogger.With("component", "execution_manager")),
		engine.WithManagerTracer(tracer),
	)

	auditSink := audit.New(os.Stdout)
	store := state.NewMemoryStore(auditSink)
	flowEngine := applicationflow.NewEngine(manager, store, eventPublisher, appLogger.With("component", "flow_engine"), agentCfg.MaxConcurrentFlows)
	conversationMgr := conversation.NewManager(eventPublisher)
	flowLoader := config.NewFlowLoader(appLogger.With("component", "flow_loader"))

	app := &AppContext{
		Logger:       appLogger,
		Events:       eventPublisher,
		ConfigLoader: flowLoader,
		Engine:       flowEngine,
		Conversation: conversationMgr,
	}

	rootCmd := newRootCmd(app)
	appLogger.Info(ctx, "starting archengine command", "pid", os.Getpid())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
