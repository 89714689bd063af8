// Command tsengine-api exposes an HTTP control surface over a running
// engine — /tick, /stop, /graph plus /metrics and /healthz.
//
// The demo graph is the same push-source-feeds-sum shape as tsengine-rt,
// but driven either by an internal auto-tick loop (-tick_interval > 0) or
// entirely through POST /tick from an external driver (-tick_interval 0).
//
// Usage:
//
//	go run ./cmd/tsengine-api -http_addr :8080 -nodes a,b,c -tick_interval 1s
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tsengine/internal/api"
	"tsengine/internal/engine"
	"tsengine/internal/graphutil"
	telemetry "tsengine/internal/telemetry/engine"
	"tsengine/pkg/clock"
	"tsengine/pkg/value"
)

func main() {
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address")
	nodeNames := flag.String("nodes", "a,b,c", "comma-separated input node names feeding the sum node")
	tickInterval := flag.Duration("tick_interval", 0, "if > 0, auto-tick the engine on this interval; otherwise tick only via POST /tick")
	metricsEnabled := flag.Bool("metrics", true, "enable Prometheus instrumentation")
	metricsAddr := flag.String("metrics_addr", "", "if non-empty, also expose Prometheus /metrics on a separate address, in addition to this server's own /metrics")
	flag.Parse()

	names := strings.Split(*nodeNames, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	g := engine.NewGraph(nil)
	sources := make(map[string]*engine.Node, len(names))
	for _, name := range names {
		n, err := graphutil.NewSourceNode(name)
		if err != nil {
			log.Fatalf("build source %s: %v", name, err)
		}
		sources[name] = n
		if err := g.AddNode(n); err != nil {
			log.Fatalf("add source %s: %v", name, err)
		}
	}
	sum, err := graphutil.NewSumNode("sum", names)
	if err != nil {
		log.Fatalf("build sum node: %v", err)
	}
	if err := g.AddNode(sum); err != nil {
		log.Fatalf("add sum node: %v", err)
	}
	for i, name := range names {
		if err := g.Connect(engine.Edge{From: sources[name], FromIndex: -1, To: sum, ToIndex: i}); err != nil {
			log.Fatalf("connect %s: %v", name, err)
		}
	}

	telemetry.Enable(*metricsEnabled)
	if *metricsAddr != "" {
		telemetry.StartMetricsEndpoint(*metricsAddr)
	}

	clk := clock.NewSimClock(value.EngineTime(0))
	eng := engine.NewEvaluationEngine(clk, g).WithObserver(telemetry.NewObserver())
	if err := eng.Start(); err != nil {
		log.Fatalf("start engine: %v", err)
	}

	stopAutoTick := make(chan struct{})
	if *tickInterval > 0 {
		go func() {
			ticker := time.NewTicker(*tickInterval)
			defer ticker.Stop()
			var t value.EngineTime
			for {
				select {
				case <-stopAutoTick:
					return
				case <-ticker.C:
					t++
					clk.SetEvaluationTime(t)
					if _, err := eng.Tick(); err != nil {
						log.Printf("auto-tick error: %v", err)
					}
				}
			}
		}()
	}

	apiServer := api.NewServer(eng)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "ok")
	})
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("tsengine-api listening on %s", *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not listen on %s: %v", *httpAddr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("shutting down")

	close(stopAutoTick)
	_ = eng.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	log.Println("server gracefully stopped")
}
