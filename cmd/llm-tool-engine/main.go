// Command llm-tool-engine is a thin interactive CLI wrapper around the
// engine package: enough to drive a session from a terminal, not a full
// chat-client product.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tuannvm/llm-tool-engine/internal/config"
	"github.com/tuannvm/llm-tool-engine/internal/engine"
	"github.com/tuannvm/llm-tool-engine/internal/logging"
	"github.com/tuannvm/llm-tool-engine/internal/metrics"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the MCP/LLM manifest")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := logging.New("llm-tool-engine", logging.ParseLevel(*logLevel))

	if err := config.EnsureManifestFile(*configPath); err != nil {
		logger.Fatal("failed to create starter manifest: %v", err)
	}
	cfg, err := config.LoadConfig(*configPath, logger)
	if err != nil {
		logger.Fatal("failed to load configuration: %v", err)
	}
	logger.SetMinLevel(config.ParseLoggingLevel(cfg.Monitoring.LoggingLevel))

	if cfg.Monitoring.Enabled {
		metrics.Register()
		go serveMetrics(cfg.Monitoring.MetricsPort, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize engine: %v", err)
	}
	defer eng.Close()

	logger.InfoKV("engine ready", "provider", cfg.LLM.Provider, "strategy", cfg.LLM.Strategy)
	runREPL(ctx, eng, logger)
}

func serveMetrics(port int, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.InfoKV("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.ErrorKV("metrics server stopped", "error", err)
	}
}

// runREPL reads lines from stdin until EOF, ctx cancellation, or the
// "/quit" command, treating a leading "/swap provider strategy" line as a
// hot-swap request instead of a query.
func runREPL(ctx context.Context, eng *engine.Engine, logger *logging.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("llm-tool-engine ready. Type a query, or /swap <provider> <strategy>, or /quit.")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		if strings.HasPrefix(line, "/swap ") {
			parts := strings.Fields(strings.TrimPrefix(line, "/swap "))
			if len(parts) != 2 {
				fmt.Println("usage: /swap <provider> <simple|react|tooluse>")
				continue
			}
			if err := eng.HotSwap(ctx, parts[0], engine.StrategyKind(parts[1])); err != nil {
				logger.ErrorKV("hot-swap failed", "error", err)
			}
			continue
		}

		answer, err := eng.ProcessQuery(ctx, line)
		if err != nil {
			logger.ErrorKV("query failed", "error", err)
			continue
		}
		fmt.Println(answer)
	}
}
