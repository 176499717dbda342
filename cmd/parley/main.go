// Command parley runs the conversation state manager: an interactive
// console over the bounded conversation store, a periodic cleanup
// scheduler, and an optional Prometheus metrics endpoint.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"parley/pkg/compression"
	"parley/pkg/config"
	"parley/pkg/convo"
	"parley/pkg/item"
	"parley/pkg/logx"
	"parley/pkg/metrics"
)

// Version information - set by goreleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML configuration file")
		secretsPath = flag.String("secrets", "", "Path to encrypted secrets file")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("parley %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}
	if *debug {
		logx.SetDebug(true)
	}

	os.Exit(run(*configPath, *secretsPath))
}

// run contains the main application logic and returns an exit code, so
// defers execute before the process exits.
func run(configPath, secretsPath string) int {
	logger := logx.NewLogger("parley")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	secrets := config.NewSecrets()
	if secretsPath != "" {
		unlocked, err := unlockSecrets(secretsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to unlock secrets: %v\n", err)
			return 1
		}
		secrets = unlocked
	}

	service, err := compression.NewServiceFromConfig(&cfg, secrets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build compression service: %v\n", err)
		return 1
	}
	var gateway *compression.Gateway
	if service != nil {
		gateway = compression.NewGateway(service, cfg.MaxTokens)
	} else {
		logger.Warn("no compression provider configured, running degraded")
	}

	recorder := metrics.NewRecorder()
	store := convo.NewStore(cfg, gateway, recorder)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}
	go runCleanupScheduler(ctx, store, cfg.HealthCheckInterval.Std(), logger)

	logger.Info("parley %s ready (budget %d tokens, capacity %d conversations)",
		version, cfg.MaxTokens, convo.MaxConversations)
	console(ctx, store)
	return 0
}

func unlockSecrets(path string) (*config.Secrets, error) {
	fmt.Print("Secrets password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return config.LoadEncrypted(path, string(password))
}

func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening on %s", addr)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed: %v", err)
	}
}

// runCleanupScheduler drives the store's periodic reaping; the store
// itself never owns a timer.
func runCleanupScheduler(ctx context.Context, store *convo.Store, interval time.Duration, logger *logx.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.PerformPeriodicCleanup(); n > 0 {
				logger.Info("cleanup removed %d conversations", n)
			}
		}
	}
}

const consoleHelp = `Commands:
  create [id]                 create a conversation
  say <id> <text>             append a user message
  tool <id> <call-id> <name>  append a function call and its output
  get <id>                    show a conversation
  list                        list conversations, most recent first
  compress <id> [strategy]    force compression
  curate <id>                 drop invalid items
  health <id>                 audit for orphaned tool calls
  delete <id>                 remove a conversation
  clear                       remove all conversations
  cleanup                     reap abandoned empty conversations
  stats                       store summary
  quit`

// console is a minimal line-oriented shell over the store.
func console(ctx context.Context, store *convo.Store) {
	fmt.Println(consoleHelp)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}
		dispatch(ctx, store, fields)
	}
}

func dispatch(ctx context.Context, store *convo.Store, fields []string) {
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "create":
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		st := store.Create(id)
		fmt.Printf("created %s\n", st.ID)
	case "say":
		if len(args) < 2 {
			fmt.Println("usage: say <id> <text>")
			return
		}
		msg := item.NewMessage("user", strings.Join(args[1:], " "))
		report(store.Update(ctx, args[0], []item.Item{msg}, ""))
	case "tool":
		if len(args) < 3 {
			fmt.Println("usage: tool <id> <call-id> <name>")
			return
		}
		items := []item.Item{
			item.NewFunctionCall(args[1], args[2], "{}"),
			item.NewFunctionCallOutput(args[1], "ok"),
		}
		report(store.Update(ctx, args[0], items, ""))
	case "get":
		if len(args) < 1 {
			fmt.Println("usage: get <id>")
			return
		}
		st, ok := store.Get(args[0])
		if !ok {
			fmt.Println("not found")
			return
		}
		printJSON(st)
	case "list":
		for _, st := range store.List() {
			fmt.Printf("%s  %3d items  updated %s\n",
				st.ID, len(st.Messages), st.UpdatedAt.Format(time.RFC3339))
		}
	case "compress":
		if len(args) < 1 {
			fmt.Println("usage: compress <id> [strategy]")
			return
		}
		strategy := ""
		if len(args) > 1 {
			strategy = args[1]
		}
		report(store.CompressConversation(ctx, args[0], strategy))
	case "curate":
		if len(args) < 1 {
			fmt.Println("usage: curate <id>")
			return
		}
		report(store.CurateConversation(ctx, args[0]))
	case "health":
		if len(args) < 1 {
			fmt.Println("usage: health <id>")
			return
		}
		health, err := store.ValidateConversationHealth(ctx, args[0])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		printJSON(health)
	case "delete":
		if len(args) < 1 {
			fmt.Println("usage: delete <id>")
			return
		}
		store.Delete(args[0])
		fmt.Println("ok")
	case "clear":
		store.Clear()
		fmt.Println("ok")
	case "cleanup":
		fmt.Printf("reaped %d\n", store.PerformPeriodicCleanup())
	case "stats":
		printJSON(store.Stats())
	case "help":
		fmt.Println(consoleHelp)
	default:
		fmt.Printf("unknown command %q (try help)\n", cmd)
	}
}

func report(err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
