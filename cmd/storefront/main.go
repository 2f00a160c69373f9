package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dlc_store/internal/cart"
	"dlc_store/internal/config"
	"dlc_store/internal/gateway"
	"dlc_store/internal/pkg/logger"
	"dlc_store/internal/session"
	"dlc_store/internal/storefront"
	"dlc_store/internal/tokenstore"
)

func main() {
	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(config.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newTokenStore(ctx)
	if err != nil {
		log.Fatal("Failed to open token store:", err)
	}
	defer closeStore()

	cred := gateway.NewCredential(store, l.Named("credential"))
	if err := cred.Load(ctx); err != nil {
		l.Sugar().Warnf("Starting anonymous: %s", err)
	}

	gw, closeGateway := newGateway(cred, l.Named("gateway"))
	defer closeGateway()

	sess := session.NewManager(gw, l.Named("session"))
	sess.Init(ctx)

	sf := storefront.New(gw, sess, cart.New(), l.Named("storefront"))
	if err := sf.Refresh(ctx); err != nil {
		l.Sugar().Errorf("Failed to load catalog: %s", err)
	}

	newShell(sf, os.Stdout).run(ctx, os.Stdin)
}

func newTokenStore(ctx context.Context) (tokenstore.Store, func(), error) {
	switch config.TokenStore {
	case config.TokenStoreMemory:
		return tokenstore.NewMemory(), func() {}, nil
	case config.TokenStoreRedis:
		store := tokenstore.NewRedis(config.RedisAddress, config.RedisPassword, "dlc_store:")
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return tokenstore.NewFile(config.TokenStorePath), func() {}, nil
	}
}

func newGateway(cred *gateway.Credential, l *logger.Logger) (gateway.Gateway, func()) {
	if config.GatewayMode == config.GatewayModeHTTP {
		return gateway.NewClient(config.APIBaseURL, cred, l), func() {}
	}

	var opts []gateway.MockOption
	if !config.MockLatency {
		opts = append(opts, gateway.WithLatency(gateway.Latency{}))
	}
	mock := gateway.NewMock(cred, l, opts...)
	return mock, mock.Close
}
