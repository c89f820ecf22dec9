// Command roverd runs the rover remote-control backend: a background
// sense/think/act control loop against the rover endpoint and an HTTP
// server exposing the latest state snapshot for the dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nova-explorer/roverd/internal/api"
	"github.com/nova-explorer/roverd/internal/config"
	"github.com/nova-explorer/roverd/internal/control"
	"github.com/nova-explorer/roverd/internal/detect"
	"github.com/nova-explorer/roverd/internal/endpoint"
	"github.com/nova-explorer/roverd/internal/nav"
	"github.com/nova-explorer/roverd/internal/state"
	"github.com/nova-explorer/roverd/internal/timeutil"
	"github.com/nova-explorer/roverd/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "HTTP listen address")
	transport  = flag.String("transport", "rest", "endpoint transport: rest, socket, serial, or sim")
	endpointAt = flag.String("endpoint", "", "endpoint address: base URL (rest), host:port (socket), or device path (serial)")
	baud       = flag.Int("baud", 115200, "baud rate for the serial transport")
	strategyF  = flag.String("strategy", "avoid", "navigation strategy: avoid or wall")
	configPath = flag.String("config", "", "optional JSON tuning file")
	devMode    = flag.Bool("dev", false, "run against the built-in simulated rover")
	seed       = flag.Int64("seed", 0, "simulation seed in dev mode (0 seeds from the clock)")
)

func main() {
	flag.Parse()
	log.Printf("roverd %s", version.String())

	if *listen == "" {
		log.Fatal("listen address is required")
	}

	settings := config.Defaults()
	if *configPath != "" {
		tuning, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		settings, err = tuning.Resolve()
		if err != nil {
			log.Fatalf("failed to resolve config: %v", err)
		}
	}

	client, simulated, err := buildClient(settings)
	if err != nil {
		log.Fatalf("failed to build endpoint client: %v", err)
	}

	strategy, err := buildStrategy(settings)
	if err != nil {
		log.Fatalf("failed to build strategy: %v", err)
	}

	store := state.NewStore()
	detector := &detect.Logger{Cooldown: settings.LogCooldown, Cap: settings.DetectionCap}

	loopCfg := control.Config{
		Period:           settings.LoopPeriod,
		CommsLostBackoff: settings.CommsLostBackoff,
		RecoverySleep:    settings.RecoverySleep,
		PathHistoryCap:   settings.PathHistoryCap,
	}
	if simulated && *configPath == "" {
		// The local simulation answers fast enough for a tighter cadence.
		loopCfg.Period = control.DefaultSimPeriod
	}
	loop := control.New(client, store, strategy, detector, timeutil.RealClock{}, loopCfg)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// control loop goroutine; a failed session establishment is fatal for
	// the loop but the HTTP surface stays up to report it
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("control loop terminated: %v", err)
		}
		log.Print("control loop stopped")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := api.NewServer(store, timeutil.RealClock{})

		mux := http.NewServeMux()
		server.AttachDebugRoutes(mux, client)
		mux.Handle("/api/", http.StripPrefix("/api", api.LoggingMiddleware(server.ServeMux())))

		httpServer := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			log.Printf("serving state API on %s", *listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}

// buildClient picks the endpoint transport. The second result reports
// whether the built-in simulation is in play.
func buildClient(settings config.Settings) (endpoint.Client, bool, error) {
	if *devMode || *transport == "sim" {
		s := *seed
		if s == 0 {
			s = time.Now().UnixNano()
		}
		return endpoint.NewSim(s), true, nil
	}

	switch *transport {
	case "rest":
		if *endpointAt == "" {
			return nil, false, errors.New("rest transport requires -endpoint base URL")
		}
		c := endpoint.NewRESTClient(*endpointAt, nil)
		c.SetTimeouts(settings.ReadTimeout, settings.CommandTimeout)
		return c, false, nil
	case "socket":
		if *endpointAt == "" {
			return nil, false, errors.New("socket transport requires -endpoint host:port")
		}
		return endpoint.NewStreamClient(endpoint.TCPDialer(*endpointAt), settings.StreamTimeout), false, nil
	case "serial":
		if *endpointAt == "" {
			return nil, false, errors.New("serial transport requires -endpoint device path")
		}
		return endpoint.NewStreamClient(endpoint.SerialDialer(*endpointAt, *baud), settings.StreamTimeout), false, nil
	default:
		return nil, false, errors.New("unknown transport " + *transport)
	}
}

func buildStrategy(settings config.Settings) (nav.Strategy, error) {
	switch *strategyF {
	case "avoid":
		return nav.NewAvoider(settings.ObstacleThreshold, nil), nil
	case "wall":
		return nav.NewWallFollower(settings.StopThreshold, nil), nil
	default:
		return nil, errors.New("unknown strategy " + *strategyF)
	}
}
