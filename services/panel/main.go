package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/HORNET-Storage/hornet-panel-wallet/lib/config"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/logging"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/stores/statistics"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/proxy"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/wallet/session"
	"github.com/HORNET-Storage/hornet-panel-wallet/lib/web"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	if err := logging.InitLogger(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.GetLogger().Close()

	cfg, err := config.GetConfig()
	if err != nil {
		logging.Fatalf("Failed to load config: %v", err)
	}

	store := &statistics.Store{}
	if err := store.InitStore(viper.GetString("relay_stats_db")); err != nil {
		logging.Fatalf("Failed to initialize statistics store: %v", err)
	}

	walletClient := proxy.FromConfig()
	if walletClient.BaseURL() == "" {
		logging.Warn("Wallet service URL not configured, proxy routes will be unavailable")
	}

	tokenStore, err := session.OpenTokenStore(config.GetPath(cfg.Wallet.TokenStore))
	if err != nil {
		logging.Fatalf("Failed to open wallet token store: %v", err)
	}
	defer tokenStore.Close()

	auth := session.NewChallengeAuthenticator(walletClient, cfg.Wallet.Nsec)
	sess := session.NewManager(walletClient, auth, tokenStore)

	go func() {
		if err := web.StartServer(store, sess, walletClient); err != nil {
			logging.Fatalf("Web server failed: %v", err)
		}
	}()

	logging.Info("Panel wallet service started", map[string]interface{}{
		"port":    config.GetPort(),
		"network": config.GetNetwork(),
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.Info("Shutting down")
}
