package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/seowriter/zalo-bridge/internal"
	"github.com/seowriter/zalo-bridge/internal/config"
	"github.com/seowriter/zalo-bridge/internal/log"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"addr":         ":8080",
		"baseURL":      "https://app.yourcompany.com",
		"proxyBaseURL": "https://relay.yourcompany.com",
		"role":         "origin",
		"zalo": map[string]any{
			"appId":     "your-zalo-app-id",
			"appSecret": map[string]string{"$env": "ZALO_APP_SECRET"},
		},
		"relaySecret": map[string]string{"$env": "ZALO_RELAY_SECRET"},
		"allowedOrigins": []string{
			"https://app.yourcompany.com",
		},
		"storage": map[string]any{
			"kind": "memory",
		},
		"rateLimit": map[string]any{
			"requestsPerSecond": 5,
			"burst":             10,
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(path string) error {
	fmt.Printf("Validating: %s\n", path)

	if _, err := config.Load(path); err != nil {
		fmt.Println("Result: FAIL")
		return err
	}

	fmt.Println("Result: PASS")
	return nil
}

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	if *validate {
		if *conf == "" {
			fmt.Fprintf(os.Stderr, "Error: -config flag is required for validation\n")
			os.Exit(1)
		}
		if err := validateConfig(*conf); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *conf == "" {
		fmt.Fprintf(os.Stderr, "Error: -config flag is required\n")
		fmt.Fprintf(os.Stderr, "Run with -help for usage information\n")
		os.Exit(1)
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting zalo-bridge", map[string]any{
		"version": BuildVersion,
		"config":  *conf,
		"role":    string(cfg.Role),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridge, err := internal.NewBridge(ctx, cfg)
	if err != nil {
		log.LogError("Failed to create bridge: %v", err)
		os.Exit(1)
	}

	if err := bridge.Run(ctx); err != nil {
		log.LogError("Bridge exited with error: %v", err)
		os.Exit(1)
	}
}
