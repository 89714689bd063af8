// graph-loadgen is a tiny, dependency-free HTTP load generator for driving
// a running tsengine-rt push source with synthetic readings. It reuses HTTP
// connections (keep-alive) and supports concurrency, the way http-loadgen
// drives the rate limiter's /check endpoint, generalized from "one key,
// one counter" to "one of several named source nodes, one float reading".
//
// Modes:
//   - single: push readings for a single node
//   - zipf:   approximate 80/20 skew (hot/cold) without PRNG: send the hot
//     node 4/5 of the time
//
// Usage examples:
//
//	graph-loadgen -base=http://127.0.0.1:9090 -mode=single -node=a -n=5000 -c=16
//	graph-loadgen -base=http://127.0.0.1:9090 -mode=zipf -hot_node=a -cold_nodes=b,c -n=8000 -c=16
//
// Notes:
//   - Uses POST /set?node=NAME&value=V. Values are random floats in [0, 100).
//   - Prints a one-line summary with duration and approximate throughput.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeZipf   modeType = "zipf"
)

func main() {
	var (
		base      = flag.String("base", "http://127.0.0.1:9090", "Base URL including scheme and host, e.g. http://127.0.0.1:9090")
		path      = flag.String("path", "/set", "Request path (e.g., /set)")
		modeS     = flag.String("mode", string(modeSingle), "Mode: single|zipf")
		node      = flag.String("node", "a", "Node name for single mode")
		hotNode   = flag.String("hot_node", "a", "Hot node name for zipf mode")
		coldNodes = flag.String("cold_nodes", "b,c", "Comma-separated cold node names to round-robin in zipf mode")
		n         = flag.Int("n", 5000, "Total requests to send")
		conc      = flag.Int("c", 8, "Number of concurrent workers")
		// Deterministic skew: hotEvery=5 means 4/5 go to the hot node, 1/5 to a cold node.
		hotEvery = flag.Int("hot_every", 5, "Zipf-like skew period (all but 1 of each period go to hot; minimum 2)")
		// Timeouts & transport tuning
		timeout    = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle   = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle    = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeZipf {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|zipf)\n", *modeS)
		os.Exit(2)
	}
	if *n <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	cold := strings.Split(*coldNodes, ",")
	for i := range cold {
		cold[i] = strings.TrimSpace(cold[i])
	}
	if m == modeZipf {
		if len(cold) == 0 || cold[0] == "" {
			fmt.Fprintln(os.Stderr, "-cold_nodes must be non-empty in zipf mode")
			os.Exit(2)
		}
		if *hotEvery < 2 { // at least 1 hot : 1 cold
			*hotEvery = 2
		}
	}

	baseURL := strings.TrimRight(*base, "/")
	p := *path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	fullPath := baseURL + p

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var done int64

	worker := func(id, count int) {
		defer atomic.AddInt64(&done, int64(count))
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var target string
			if m == modeSingle {
				target = *node
			} else if ((i + id) % *hotEvery) != 0 {
				target = *hotNode
			} else {
				target = cold[(i+id)%len(cold)]
			}
			v := strconv.FormatFloat(rng.Float64()*100, 'f', -1, 64)
			u := fullPath + "?" + url.Values{"node": {target}, "value": {v}}.Encode()
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
			resp, err := client.Do(req)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			} else {
				time.Sleep(200 * time.Microsecond)
			}
		}
	}

	per := *n / *conc
	rem := *n - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, cnt int) {
			defer wg.Done()
			worker(id, cnt)
		}(w, count)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*n) / elapsed.Seconds()
	fmt.Printf("GraphLoadGen: mode=%s n=%d c=%d go=%d Duration=%s Throughput=%.0f req/s\n",
		m, *n, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops)
}
