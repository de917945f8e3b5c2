package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tableside/internal/api"
	"tableside/internal/config"
	"tableside/internal/device"
	"tableside/internal/logger"
	"tableside/internal/push"
	"tableside/internal/station/admin"
	"tableside/internal/station/customer"
	"tableside/internal/station/kitchen"
	"tableside/internal/station/manager"
	"tableside/internal/station/waiter"
)

func main() {
	// Parse command line flags
	var (
		mode            = flag.String("mode", "", "Station mode (customer-station, waiter-station, kitchen-station, manager-station, admin-station)")
		configPath      = flag.String("config", "config.yaml", "Path to config file")
		table           = flag.Int("table", 0, "Table number (required for customer-station on first run)")
		apiURL          = flag.String("api-url", "", "Override REST API base URL")
		pushTransport   = flag.String("push", "", "Override push transport (amqp, websocket)")
		refreshInterval = flag.Int("refresh-interval", 0, "Order refresh interval in seconds")
	)
	flag.Parse()

	// Validate required mode flag
	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	// Load environment overrides before the config file is read
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.Server.BaseURL = *apiURL
	}
	if *pushTransport != "" {
		cfg.Push.Transport = *pushTransport
	}
	if *refreshInterval > 0 {
		cfg.Device.RefreshIntervalSeconds = *refreshInterval
	}

	// Create logger
	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("station_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":    *mode,
		"api_url": cfg.Server.BaseURL,
		"push":    cfg.Push.Transport,
	})

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	client := api.New(cfg.Server.BaseURL, time.Duration(cfg.Server.TimeoutSeconds)*time.Second, log)

	// Route to the requested station
	switch *mode {
	case "customer-station":
		err = runCustomerStation(ctx, cfg, log, client, *table)
	case "waiter-station":
		err = runStation(ctx, cfg, log, waiter.New(client, log, os.Stdout, os.Stdin), "waiter")
	case "kitchen-station":
		err = runStation(ctx, cfg, log, kitchen.New(client, log, os.Stdout, os.Stdin), "kitchen")
	case "manager-station":
		err = runStation(ctx, cfg, log, manager.New(client, log, os.Stdout, os.Stdin), "manager")
	case "admin-station":
		err = runStation(ctx, cfg, log, admin.New(client, log, os.Stdout, os.Stdin), "admin")
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	if err != nil && ctx.Err() == nil {
		log.Error("station_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("station_stopped", "Station stopped gracefully", requestID, nil)
}

// runner is implemented by every station.
type runner interface {
	Run(ctx context.Context, sub push.Subscriber) error
}

// newSubscriber builds the configured push transport.
func newSubscriber(cfg *config.Config, log *logger.Logger, mode string) (push.Subscriber, error) {
	switch cfg.Push.Transport {
	case "websocket":
		return push.NewWSSubscriber(cfg.WebSocketURL(), log)
	default:
		queueName := fmt.Sprintf("%s-%s", mode, logger.GenerateRequestID()[:8])
		return push.NewAMQPSubscriber(cfg.AMQPURL(), queueName, log)
	}
}

func runStation(ctx context.Context, cfg *config.Config, log *logger.Logger, st runner, mode string) error {
	sub, err := newSubscriber(cfg, log, mode)
	if err != nil {
		return fmt.Errorf("failed to connect push channel: %w", err)
	}
	defer sub.Close()

	return st.Run(ctx, sub)
}

func runCustomerStation(ctx context.Context, cfg *config.Config, log *logger.Logger, client *api.Client, table int) error {
	devices := device.NewStore(cfg.Device.StatePath)
	state, err := devices.Load()
	if err != nil {
		return fmt.Errorf("failed to load device state: %w", err)
	}

	// The table assignment survives restarts; a flag sets or changes it.
	if table > 0 && table != state.TableNumber {
		state.TableNumber = table
		if err := devices.Save(state); err != nil {
			return fmt.Errorf("failed to persist table number: %w", err)
		}
	}
	if state.TableNumber == 0 {
		return fmt.Errorf("no table assigned: run once with --table <n>")
	}

	sub, err := newSubscriber(cfg, log, "customer")
	if err != nil {
		return fmt.Errorf("failed to connect push channel: %w", err)
	}
	defer sub.Close()

	interval := time.Duration(cfg.Device.RefreshIntervalSeconds) * time.Second
	st := customer.New(client, log, devices, state, interval, os.Stdout, os.Stdin)
	return st.Run(ctx, sub)
}
