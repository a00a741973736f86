package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/elbywan/balises-sub000/pkg/instrument"
	"github.com/elbywan/balises-sub000/pkg/keyed"
	"github.com/elbywan/balises-sub000/pkg/metrics"
	"github.com/elbywan/balises-sub000/pkg/reactive"
)

type serveConfig struct {
	Addr     string
	Interval time.Duration
	Items    int
	Seed     int64
}

// sample is one point of the live stream pushed over the websocket.
type sample struct {
	Timestamp string               `json:"timestamp"`
	Engine    reactive.EngineStats `json:"engine"`
	Reconcile keyed.Stats          `json:"reconcile"`
	Items     int                  `json:"items"`
}

func serveCmd() *cobra.Command {
	cfg := serveConfig{
		Addr:     ":8080",
		Interval: time.Second,
		Items:    200,
		Seed:     1,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a synthetic workload and expose metrics plus a live sample stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Items <= 0 {
				return errors.New("--items must be > 0")
			}
			if cfg.Interval <= 0 {
				return errors.New("--interval must be > 0")
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	cmd.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "workload and stream period")
	cmd.Flags().IntVar(&cfg.Items, "items", cfg.Items, "synthetic list length")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for the workload")

	return cmd
}

func runServe(cfg serveConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewEngineCollector()); err != nil {
		return fmt.Errorf("register engine collector: %w", err)
	}
	metrics.Reconciler(metrics.WithRegistry(reg))

	w := newWorkload(cfg)
	defer w.close()
	go w.run(ctx)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/stats", func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		if err := writeHTTPJSON(rw, w.sample()); err != nil {
			log.Printf("stats write: %v", err)
		}
	})
	r.Get("/ws", w.streamHandler(cfg.Interval))

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// workload drives a keyed list with periodic permutations so the metrics
// endpoints have something to report.
type workload struct {
	cfg   serveConfig
	rng   *rand.Rand
	inst  *instrument.Instrumenter
	scope *reactive.Scope

	source *reactive.Cell[[]int]
	list   *keyed.List[int, string]
	items  []int
}

func newWorkload(cfg serveConfig) *workload {
	w := &workload{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		inst:  instrument.New(),
		scope: reactive.NewScope(nil),
	}

	w.items = make([]int, cfg.Items)
	for i := range w.items {
		w.items[i] = i
	}

	reactive.WithScope(w.scope, func() {
		w.source = reactive.NewCell(append([]int(nil), w.items...))
		w.list = keyed.Each(
			keyed.FromCell(w.source),
			func(item, index int) any { return item },
			func(item int) string { return fmt.Sprintf("row-%d", item) },
		)
	})

	return w
}

func (w *workload) run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.step(ctx)
		}
	}
}

func (w *workload) step(ctx context.Context) {
	next := permute("shuffle", w.items, w.rng)

	start := time.Now()
	st := w.inst.Reconcile(ctx, "workload", func() keyed.Stats {
		w.source.Set(next)
		return w.list.LastStats()
	})
	metrics.RecordReconcile(st, time.Since(start))

	w.items = next
}

func (w *workload) sample() sample {
	return sample{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Engine:    reactive.Stats(),
		Reconcile: w.list.LastStats(),
		Items:     w.list.Len(),
	}
}

func (w *workload) streamHandler(interval time.Duration) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return func(rw http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(rw, req, nil)
		if err != nil {
			log.Printf("websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Drain client frames so close handshakes are noticed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-req.Context().Done():
				return
			case <-ticker.C:
				if err := conn.WriteJSON(w.sample()); err != nil {
					return
				}
			}
		}
	}
}

func (w *workload) close() {
	w.list.Dispose()
	w.scope.Dispose()
}
