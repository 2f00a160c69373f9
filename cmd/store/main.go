package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dlc_store/internal/app"
	"dlc_store/internal/config"
	"dlc_store/internal/pkg/logger"
	"dlc_store/internal/service"
	"dlc_store/internal/storage"
)

func main() {
	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(config.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	storage, err := storage.NewPostgreSQL(config.DatabaseURI, l)
	if err != nil {
		log.Fatal(err)
	}
	defer storage.Close()

	app := app.NewApp(storage, l, config.OrderSettleDelay)

	const prepareTimeout = 30 * time.Second
	prepareCtx, cancelPrepare := context.WithTimeout(context.Background(), prepareTimeout)
	err = app.Prepare(prepareCtx)
	cancelPrepare()
	if err != nil {
		log.Fatal("Failed to prepare database:", err)
	}

	service := service.NewService(app, config.ServerRunAddress, l)

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: config.ServerRunAddress, Handler: service.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		app.Shutdown()
		serverStopCtx()
	}()

	l.Sugar().Infof("Store API listening on %s", config.ServerRunAddress)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		storage.Close()
		log.Fatal(err)
	}

	<-serverCtx.Done()
}
