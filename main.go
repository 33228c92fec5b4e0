package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shop-service/handlers"
	"shop-service/internal/auth"
	"shop-service/internal/cart"
	"shop-service/internal/consul"
	"shop-service/internal/items"
	"shop-service/internal/orders"
	"shop-service/internal/stores/kafka"
	"shop-service/internal/stores/postgres"
	"shop-service/internal/users"
	"shop-service/pkg/logkey"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service startup failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Auth keys
	privatePEM, err := os.ReadFile(getenv("AUTH_PRIVATE_KEY_FILE", "config/private.pem"))
	if err != nil {
		return err
	}
	publicPEM, err := os.ReadFile(getenv("AUTH_PUBLIC_KEY_FILE", "config/public.pem"))
	if err != nil {
		return err
	}
	keys, err := auth.LoadKeys(privatePEM, publicPEM)
	if err != nil {
		return err
	}

	// Database
	db, err := postgres.OpenDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	uConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	iConf, err := items.NewConf(db)
	if err != nil {
		return err
	}
	cConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	oConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}
	engine, err := orders.NewEngine(iConf, cConf, oConf)
	if err != nil {
		return err
	}

	// Kafka producer
	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaConf, err := kafka.NewConf(brokers)
	if err != nil {
		return err
	}
	defer kafkaConf.Close()

	// Consul registration is best effort; the service still works without
	// a registry in local setups.
	serviceAddr := getenv("SERVICE_ADDRESS", "localhost")
	servicePort, err := strconv.Atoi(getenv("SERVICE_PORT", "8080"))
	if err != nil {
		return err
	}
	consulClient, err := consul.NewClient()
	if err != nil {
		return err
	}
	if err := consul.RegisterService(consulClient, "shop", serviceAddr, servicePort); err != nil {
		slog.Warn("consul registration failed", slog.String(logkey.ERROR, err.Error()))
	}

	r := handlers.API(keys, consulClient, uConf, iConf, cConf, oConf, engine, kafkaConf)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(servicePort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.String("Addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-shutdown:
		slog.Info("shutdown started", slog.String("Signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return err
		}
	}

	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
