package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"altbot/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	defaults := app.DefaultBenchOptions()

	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	benchShadow := flag.Bool("bench-shadow", false, "run the shadow benchmark on the synthetic feed")
	live := flag.Bool("live", false, "stream ticks from feed.ws_url until interrupted")
	numTicks := flag.Int("num-ticks", defaults.NumTicks, "measured ticks for -bench-shadow")
	numSymbols := flag.Int("num-symbols", defaults.NumSymbols, "symbols for -bench-shadow")
	warmup := flag.Int("warmup", defaults.Warmup, "unmeasured ticks inserted before -bench-shadow")
	pprofAddr := flag.String("pprof", "", "serve pprof on this address (e.g. localhost:6060)")
	flag.Parse()

	if *benchShadow == *live {
		fmt.Fprintln(os.Stderr, "exactly one of -bench-shadow or -live is required")
		flag.Usage()
		os.Exit(2)
	}

	// 1. Pprof Server (for performance profiling)
	if *pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", *pprofAddr))
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *benchShadow {
		_, err = bootstrap.RunBenchShadow(ctx, app.BenchOptions{
			NumTicks:   *numTicks,
			NumSymbols: *numSymbols,
			Warmup:     *warmup,
		})
	} else {
		slog.InfoContext(ctx, "✨ Live mode operational. Press Ctrl+C to exit.")
		_, err = bootstrap.RunLive(ctx)
	}
	if err != nil {
		slog.Error("❌ Run failed", slog.Any("error", err))
		stop()
		_ = bootstrap.Close()
		os.Exit(1)
	}

	slog.Info("👋 Shutting down gracefully...")
}
