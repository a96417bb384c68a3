package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"

	"moodchat/internal/attach"
	"moodchat/internal/blob"
	"moodchat/internal/config"
	"moodchat/internal/server"
	"moodchat/internal/store"
)

func main() {
	cfg, err := config.LoadServer(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	storage, err := blob.OpenDiskStorage(cfg.BlobsDB, cfg.BlobsDir, cfg.PublicBaseURL+"/attachments")
	if err != nil {
		log.Fatalf("open blob storage: %v", err)
	}
	defer storage.Close()

	uploader := attach.NewUploader(storage, attach.DefaultTimeout)
	srv := server.New(st, storage, uploader, server.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		WriteRPS:       cfg.WriteRPS,
		WriteBurst:     cfg.WriteBurst,
	})
	defer srv.Close()

	logger := httplog.NewLogger("moodchat", httplog.Options{JSON: true})
	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httplog.RequestLogger(logger)(srv.Router()),
	}

	go func() {
		log.Printf("moodchat server listening on %s (driver:%s)", cfg.Addr, cfg.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openStore(cfg *config.ServerConfig) (store.Store, error) {
	if cfg.Driver == "postgres" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.OpenPostgresStore(ctx, cfg.DatabaseURL)
	}
	return store.OpenBoltStore(cfg.MessagesDB)
}
