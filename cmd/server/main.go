package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v2"

	_ "net/http/pprof"

	"github.com/cockroachdb/pebble"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hoppss/path-planner/pkg/datastructure"
	"github.com/hoppss/path-planner/pkg/executive"
	"github.com/hoppss/path-planner/pkg/kv"
	"github.com/hoppss/path-planner/pkg/server/rest"
	"github.com/hoppss/path-planner/pkg/server/rest/service"
)

var (
	listenAddr = flag.String("listenaddr", ":5000", "server listen address")
	configFile = flag.String("config", "", "vehicle configuration yaml")
	mapFile    = flag.String("f", "", "map file (.map grid world or .pbf openstreetmap extract)")
	refLat     = flag.Float64("lat", 0, "map reference latitude")
	refLon     = flag.Float64("lon", 0, "map reference longitude")
)

func defaultVehicleConfig() executive.VehicleConfig {
	return executive.VehicleConfig{
		MaxSpeed:              2.5,
		TurningRadius:         8,
		CoverageMaxSpeed:      2.5,
		CoverageTurningRadius: 16,
		TimeHorizon:           30,
		TimeMinimum:           5,
	}
}

func loadVehicleConfig(path string) executive.VehicleConfig {
	cfg := defaultVehicleConfig()
	if path == "" {
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("reading config %q failed, using defaults: %v", path, err)
		return cfg
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		log.Printf("parsing config %q failed, using defaults: %v", path, err)
		return defaultVehicleConfig()
	}
	return cfg
}

// logPublisher is the standalone-server trajectory consumer: plans go to the
// log and the estimator defers to the executive's own extrapolation.
type logPublisher struct{}

func (logPublisher) PublishTrajectory(plan *datastructure.Plan) {
	log.Printf("trajectory published: %d segments ending at t=%.2f", len(plan.Segments), plan.EndTime())
}

func (logPublisher) DisplayTrajectory(plan *datastructure.Plan, final bool) {}

func (logPublisher) DisplayRibbons(dump string) {}

func (logPublisher) AllDone() {
	log.Println("coverage objective achieved")
}

func (logPublisher) GetTime() float64 {
	return float64(time.Now().UnixNano()) * 1e-9
}

func (logPublisher) GetEstimatedState(t float64) datastructure.State {
	return datastructure.State{Time: -1}
}

func main() {
	flag.Parse()

	db, err := pebble.Open("pathplannerDB", &pebble.Options{})
	if err != nil {
		log.Fatal(err)
	}
	cache := kv.NewMapCache(db)
	defer cache.Close()

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	exec := executive.New(logPublisher{}, m, cache)
	exec.SetVehicleConfiguration(loadVehicleConfig(*configFile))
	exec.StartPlanner(*mapFile, *refLat, *refLon)
	defer exec.Close()

	r := chi.NewRouter()

	r.Use(middleware.Logger)

	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Mount("/debug", middleware.Profiler())

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	planningSvc := service.NewPlanningService(exec)
	rest.PlannerRouter(r, planningSvc, m)

	srv := &http.Server{Addr: *listenAddr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		fmt.Printf("server started at %s\n", *listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
