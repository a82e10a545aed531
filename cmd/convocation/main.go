package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/convocation/internal/backup"
	"github.com/dukerupert/convocation/internal/config"
	"github.com/dukerupert/convocation/internal/database"
	"github.com/dukerupert/convocation/internal/logging"
	"github.com/dukerupert/convocation/internal/push"
	"github.com/dukerupert/convocation/internal/server"
	"github.com/dukerupert/convocation/internal/storage"
)

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "vapid":
			err = printVAPIDKeys()
		case "decrypt-backup":
			err = decryptBackup(os.Args[2:])
		default:
			err = fmt.Errorf("unknown command %q (want vapid or decrypt-backup)", os.Args[1])
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("convocation exited", "error", err)
		os.Exit(1)
	}
}

// printVAPIDKeys generates a key pair for CONVOCATION_VAPID_* settings.
func printVAPIDKeys() error {
	pub, priv, err := push.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("generate vapid keys: %w", err)
	}
	fmt.Printf("CONVOCATION_VAPID_PUBLIC_KEY=%s\nCONVOCATION_VAPID_PRIVATE_KEY=%s\n", pub, priv)
	return nil
}

// decryptBackup restores a downloaded snapshot to a plain SQLite file using
// the configured backup passphrase.
func decryptBackup(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: convocation decrypt-backup <backup.db.enc> <output.db>")
	}
	cfg, err := config.Load(os.Getenv("CONVOCATION_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Backup.Enabled() {
		return errors.New("CONVOCATION_BACKUP_PASSPHRASE is not set")
	}
	if err := backup.DecryptFile(args[0], args[1], cfg.Backup.Passphrase); err != nil {
		return err
	}
	fmt.Printf("restored %s to %s\n", args[0], args[1])
	return nil
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONVOCATION_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	objects := storage.NewService(storage.Config{
		Endpoint:      cfg.Storage.Endpoint,
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	}, logger)
	if !objects.Enabled() {
		logger.Warn("object storage not configured, image uploads disabled")
	}

	pushSvc := push.NewService(push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subscriber:      cfg.Push.Subscriber,
	})
	if !pushSvc.Enabled() {
		logger.Info("VAPID keys not set, web push disabled")
	}

	if cfg.Email.PostmarkToken == "" || cfg.Email.From == "" {
		logger.Info("postmark not configured, feedback replies will not be emailed")
	}

	srv, err := server.New(db, cfg, objects, pushSvc, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.RateLimiter().RunCleanup(ctx, time.Minute)

	if sched := srv.Scheduler(); sched != nil {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	if mgr := srv.Backups(); mgr != nil {
		if !objects.Enabled() {
			logger.Warn("backups configured but object storage is not, scheduled backups will fail")
		}
		if err := mgr.Start(ctx); err != nil {
			return err
		}
		defer mgr.Stop()
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("convocation running", "addr", "http://localhost:"+cfg.Port, "timezone", cfg.Location().String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	srv.Notifier().Wait()
	return nil
}
