// ABOUTME: Entry point for the hireloop-gateway orchestration server.
// ABOUTME: Subcommands: serve, bootstrap, health.

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/hireloop/hireloop-gateway/internal/auth"
	"github.com/hireloop/hireloop-gateway/internal/config"
	"github.com/hireloop/hireloop-gateway/internal/gateway"
	"github.com/hireloop/hireloop-gateway/internal/store"
)

// tokenBootstrapTTL is the lifetime of the token minted during bootstrap.
// Long-lived on purpose: the first tenant usually belongs to the operator.
const tokenBootstrapTTL = 365 * 24 * time.Hour

// version is set at build time via -ldflags.
var version = "dev"

const banner = `
 _     _          _
| |__ (_)_ __ ___| | ___   ___  _ __
| '_ \| | '__/ _ \ |/ _ \ / _ \| '_ \
| | | | | | |  __/ | (_) | (_) | |_) |
|_| |_|_|_|  \___|_|\___/ \___/| .__/
                               |_|
`

// getConfigPath returns the path to the gateway config file.
// Priority: HIRELOOP_CONFIG env var > XDG_CONFIG_HOME/hireloop/gateway.yaml > ~/.config/hireloop/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HIRELOOP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "hireloop", "gateway.yaml")
}

// getDataPath returns the path to the hireloop data directory.
// Priority: XDG_DATA_HOME/hireloop > ~/.local/share/hireloop
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "hireloop")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: hireloop-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                  Start the gateway server")
		fmt.Println("  bootstrap --name NAME  Create config, database and the first tenant")
		fmt.Println("  health                 Check gateway health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "bootstrap":
		err = runBootstrap(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Model:    %s\n", cfg.Model.Name)
	fmt.Println()

	logger.Info("starting hireloop-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// runBootstrap performs first-time setup:
// 1. Creates a config file with a random JWT secret (if not exists)
// 2. Creates the database and the first tenant
// 3. Mints a bearer token for that tenant
func runBootstrap(ctx context.Context) error {
	name, err := parseNameFlag(os.Args[2:])
	if err != nil {
		return err
	}

	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "gateway.db")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		jwtSecret, err := randomSecret()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.MkdirAll(dataPath, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		configYAML := fmt.Sprintf(`server:
  http_addr: "127.0.0.1:8420"

database:
  path: %q

auth:
  jwt_secret: %q

model:
  base_url: "${OPENAI_URL}"
  api_key: "${OPENAI_API_KEY}"
  name: "gpt-4o"

logging:
  level: info
  format: text
`, dbPath, jwtSecret)
		if err := os.WriteFile(configPath, []byte(configYAML), 0600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		green.Print("  ✓ ")
		fmt.Printf("Config created: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	secret, err := randomSecret()
	if err != nil {
		return err
	}
	hash, err := auth.HashSecret(secret)
	if err != nil {
		return err
	}

	tenant := &store.Tenant{Name: name, SecretHash: hash}
	if err := st.CreateTenant(ctx, tenant); err != nil {
		return fmt.Errorf("creating tenant: %w", err)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	token, err := verifier.Generate(tenant.ID, tokenBootstrapTTL)
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}

	green.Print("  ✓ ")
	fmt.Printf("Tenant created: %s\n", name)
	fmt.Println()
	fmt.Print("  Tenant ID:  ")
	cyan.Println(tenant.ID)
	fmt.Print("  Secret:     ")
	cyan.Println(secret)
	fmt.Print("  Token:      ")
	cyan.Println(token)
	fmt.Println()
	yellow.Println("  Store the secret now; it is not recoverable later.")
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func parseNameFlag(args []string) (string, error) {
	for i := 0; i < len(args); i++ {
		if args[i] == "--name" && i+1 < len(args) {
			return args[i+1], nil
		}
	}
	return "", fmt.Errorf("usage: hireloop-gateway bootstrap --name NAME")
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
