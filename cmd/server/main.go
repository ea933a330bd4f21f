package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/quarterhill/stratus/internal/api"
	"github.com/quarterhill/stratus/internal/config"
	"github.com/quarterhill/stratus/internal/db"
	"github.com/quarterhill/stratus/internal/inventory"
	"github.com/quarterhill/stratus/internal/logging"
	"github.com/quarterhill/stratus/internal/version"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)

	gdb, err := db.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", "error", err, "path", cfg.DBPath)
	}
	defer db.Close(gdb)

	if _, err := api.EnsureAPIToken(gdb, logger); err != nil {
		logger.Fatal("failed to provision api token", "error", err)
	}

	store := inventory.New(gdb, logger)
	r := api.Router(cfg, logger, store, gdb)

	srv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	logger.Info("server starting", "addr", srv.Addr, "version", version.Version, "db", cfg.DBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}
