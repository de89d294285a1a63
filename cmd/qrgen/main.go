// Command qrgen registers a new QR code and writes its PNG next to the
// configured database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"qrverify/internal/config"
	"qrverify/internal/repository"
	"qrverify/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("qrgen", flag.ContinueOnError)
	fs.SetOutput(stdout)
	description := fs.String("description", "", "what the printed code certifies (required)")
	outDir := fs.String("out", "qr_codes", "directory for the generated PNG")
	baseURL := fs.String("base-url", "", "public base URL of the verification service (defaults to BASE_URL)")
	size := fs.Int("size", services.DefaultQRSize, "image width in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *description == "" {
		fs.Usage()
		return services.ErrEmptyDescription
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *baseURL == "" {
		*baseURL = cfg.BaseURL
	}

	db, err := repository.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	if err := repository.Migrate(db, cfg.DatabaseURL, ""); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	registry := repository.NewRegistryStore(db, nil, 0)
	code, err := services.NewProvisioningService(registry).CreateQRCode(ctx, *description)
	if err != nil {
		return err
	}

	qr := services.NewQRService(*baseURL)
	link := qr.VerificationURL(code.QRID)
	_, png, err := qr.GenerateQRCode(services.QROptions{Content: link, Size: *size})
	if err != nil {
		return fmt.Errorf("failed to render qr code: %w", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", *outDir, err)
	}
	path := filepath.Join(*outDir, code.QRID+".png")
	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(stdout, "QR code generated\n")
	fmt.Fprintf(stdout, "  ID:          %s\n", code.QRID)
	fmt.Fprintf(stdout, "  Description: %s\n", code.Description)
	fmt.Fprintf(stdout, "  URL:         %s\n", link)
	fmt.Fprintf(stdout, "  File:        %s\n", path)
	return nil
}
