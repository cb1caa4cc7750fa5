package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johnyfernandes/shlf-sync/api/v1"
	"github.com/johnyfernandes/shlf-sync/config"
	"github.com/johnyfernandes/shlf-sync/gamification"
	"github.com/johnyfernandes/shlf-sync/goal"
	"github.com/johnyfernandes/shlf-sync/log"
	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/server"
	"github.com/johnyfernandes/shlf-sync/session"
	"github.com/johnyfernandes/shlf-sync/store"
	"github.com/johnyfernandes/shlf-sync/store/db"
	"github.com/johnyfernandes/shlf-sync/sync"
	"github.com/johnyfernandes/shlf-sync/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	greetingBanner = `
███████ ██   ██ ██      ███████       ███████ ██    ██ ███    ██  ██████
██      ██   ██ ██      ██            ██       ██  ██  ████   ██ ██
███████ ███████ ██      █████   █████ ███████   ████   ██ ██  ██ ██
     ██ ██   ██ ██      ██                 ██    ██    ██  ██ ██ ██
███████ ██   ██ ███████ ██            ███████    ██    ██   ████  ██████
`
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "shlf-sync",
		Short: "shlf-sync keeps a reading tracker's two devices in step",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			database, err := db.NewDB(config.Opts.DSN)
			if err != nil {
				log.Error("Error connecting to database", zap.Error(err))
				return
			}
			defer database.Close()
			if err := database.Migrate(ctx); err != nil {
				log.Error("Error migrating database", zap.Error(err))
				return
			}

			s := store.NewStore(database.DB)
			if err := s.Ping(); err != nil {
				log.Error("Error pinging database", zap.Error(err))
				return
			}
			// The daemon is the only writer, so the singleton profile can be
			// created unconditionally at startup.
			if _, err := s.EnsureProfile(); err != nil {
				log.Error("Error ensuring profile", zap.Error(err))
				return
			}

			device := model.DeviceTag(config.Opts.DeviceName)
			if !device.Valid() {
				log.Error("Unknown device name", zap.String("device_name", config.Opts.DeviceName))
				return
			}

			// An empty peer URL leaves the daemon unpaired: everything works
			// locally and outbound sync is a no-op.
			var syncer *sync.Service
			if config.Opts.PeerURL != "" {
				peer := sync.NewHTTPPeer(config.Opts.PeerURL, device)
				pool := worker.NewSendPool(peer, config.Opts.SyncWorkerCount)
				syncer = sync.NewService(s, pool, peer, device)
			} else {
				log.Info("No peer configured, running unpaired")
				syncer = sync.NewService(s, nil, nil, device)
			}

			tracker := goal.NewTracker(s)
			engine := gamification.NewEngine(s)
			manager := session.NewManager(s, tracker, engine, syncer, device)
			defer manager.Close()

			if config.Opts.StreakCheckInterval > 0 {
				engine.StartReconciler(ctx, time.Duration(config.Opts.StreakCheckInterval)*time.Minute)
			}

			applier := sync.NewApplier(s, manager)
			apiHandler := v1.NewHandler(s, manager, tracker, engine, syncer)
			syncHandler := sync.NewHandler(s, applier, device)

			httpServer, err := server.StartServer(ctx, apiHandler, syncHandler, s)
			if err != nil {
				log.Error("Error starting server", zap.Error(err))
				return
			}

			fmt.Print(greetingBanner)
			log.Info("Daemon started",
				zap.String("device", string(device)),
				zap.String("addr", httpServer.Addr))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info("Shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down server", zap.Error(err))
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the config file")

	cobra.OnInitialize(func() {
		if _, err := config.GetConfig(); err != nil {
			log.Fallback("Error", fmt.Sprintf("Error loading config: %s", err))
			os.Exit(1)
		}
		if configFile != "" {
			if _, err := config.ParseFile(configFile); err != nil {
				log.Fallback("Error", fmt.Sprintf("Error parsing config file: %s", err))
				os.Exit(1)
			}
		}
		log.Logger = log.NewLogger()
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fallback("Error", fmt.Sprintf("Error executing command: %s", err))
		os.Exit(1)
	}
	defer log.Logger.Sync()
}
