// Command tsengine-rt is a tiny HTTP harness to interactively exercise the
// reactive time-series engine in real time — mirroring tfd-proxy's role as
// a curl-able reference for wiring a teacher package into a real service,
// generalized from "S/V write lanes" to "named scalar input nodes feeding
// one sum node".
//
// Endpoints:
//
//	POST /set?node=NAME&value=V   push a new reading for an input node
//	GET  /get?node=NAME           read the node's (or "sum"'s) last value
//	GET  /metrics                 Prometheus exposition
//	GET  /healthz                 liveness probe
//
// Usage:
//
//	go run ./cmd/tsengine-rt -http :9090 -nodes a,b,c
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tsengine/internal/engine"
	"tsengine/internal/graphutil"
	telemetry "tsengine/internal/telemetry/engine"
	"tsengine/pkg/clock"
	"tsengine/pkg/value"
)

func main() {
	addr := flag.String("http", ":9090", "HTTP listen address")
	nodeNames := flag.String("nodes", "a,b,c", "comma-separated input node names feeding the sum node")
	metricsEnabled := flag.Bool("metrics", true, "enable Prometheus instrumentation")
	flag.Parse()

	names := strings.Split(*nodeNames, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	sources := make(map[string]*engine.Node, len(names))
	g := engine.NewGraph(nil)
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
	clk := clock.NewRealTimeClock(value.EngineTime(time.Now().UnixNano()))
	eng := engine.NewEvaluationEngine(clk, g).WithObserver(telemetry.NewObserver())
	if err := eng.Start(); err != nil {
		log.Fatalf("start engine: %v", err)
	}
	go func() {
		if err := eng.Run(); err != nil {
			log.Printf("engine run stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "time": time.Now().UTC()})
	})
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("node")
		n, ok := sources[name]
		if !ok {
			http.Error(w, fmt.Sprintf("unknown node %q", name), http.StatusBadRequest)
			return
		}
		raw := r.URL.Query().Get("value")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("bad value %q: %v", raw, err), http.StatusBadRequest)
			return
		}
		n.Scalars["value"] = v
		n.NotifyModified(0)
		clk.RequirePushScheduling()
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"accepted": true, "node": name, "value": v})
	})
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("node")
		target := sum
		if name != "" && name != "sum" {
			var ok bool
			target, ok = sources[name]
			if !ok {
				http.Error(w, fmt.Sprintf("unknown node %q", name), http.StatusBadRequest)
				return
			}
		}
		tv := target.Output().Value()
		if !tv.Valid() {
			_ = json.NewEncoder(w).Encode(map[string]any{"node": name, "value": nil})
			return
		}
		f, err := value.As[float64](tv.Scalar().View())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"node": name, "value": f})
	})

	httpServer := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		log.Printf("tsengine-rt listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("shutting down")
	_ = eng.Stop()
}
