package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/affiliatesdk/internal/config"
	"example.com/affiliatesdk/internal/engine"
	"example.com/affiliatesdk/internal/logging"
	"example.com/affiliatesdk/internal/storage"
	"example.com/affiliatesdk/internal/storage/leveldb"
	spg "example.com/affiliatesdk/internal/storage/postgres"
	"example.com/affiliatesdk/internal/storage/sqlite"
	"example.com/affiliatesdk/internal/tasks"
)

const usage = `usage: affiliate-cli [flags] <command> [arg]

commands:
  referral <link>     resolve a referring link or short code and store it
  short-code <code>   confirm a short code with the backend and store it
  link <url>          handle an Insert Links URL
  current             print the current affiliate identifier
  track <event>       track an event against the current identifier
  token [override]    resolve the account token and record an expected transaction
  details             print stored offer code and affiliate details
`

func main() {
	os.Exit(realMain())
}

// realMain returns the process exit code so deferred cleanup runs on every path.
func realMain() int {
	ignoreWindow := flag.Bool("ignore-window", false, "current: ignore the attribution window")
	timeout := flag.Duration("wait", 30*time.Second, "maximum time to wait for background requests")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		return 2
	}

	cfg, err := config.Parse()
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	logger, level := logging.Setup(logging.Options{
		Service: "affiliate-cli",
		Env:     cfg.Env,
		Level:   logging.ParseLevel(cfg.LogLevel),
		File:    cfg.LogFile,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kv, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("open store failed", "driver", cfg.StoreDriver, "error", err)
		return 1
	}
	defer kv.Close()
	logger.Debug("store opened", "driver", cfg.StoreDriver)

	runner := tasks.NewRunner(32, 4, logger)
	runner.Start(ctx)

	e := engine.New(kv, engine.WithLogger(logger), engine.WithLevel(level), engine.WithRunner(runner))
	if err := e.Init(ctx, settings(cfg)); err != nil {
		logger.Error("init failed", "error", err)
		return 1
	}

	code := 0
	e.Subscribe(func(id string) { fmt.Printf("identifier changed: %s\n", id) })
	if err := run(ctx, e, flag.Args(), *ignoreWindow); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code = 1
	}

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), *timeout)
	defer cancel2()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Warn("background requests still running", "error", err)
	}
	return code
}

func settings(cfg config.Config) engine.Settings {
	return engine.Settings{
		CompanyCode:          cfg.CompanyCode,
		Verbose:              cfg.Verbose,
		InsertLinksEnabled:   cfg.InsertLinksEnabled,
		AttributionWindow:    cfg.AttributionWindow(),
		BaseURL:              cfg.APIBaseURL,
		HTTPTimeout:          cfg.HTTPTimeout(),
		AccountTokenOverride: cfg.AccountTokenOverride,
	}
}

func run(ctx context.Context, e *engine.Engine, args []string, ignoreWindow bool) error {
	cmd, arg := args[0], ""
	if len(args) > 1 {
		arg = args[1]
	}
	switch cmd {
	case "referral":
		return e.SetFromReferral(ctx, arg, func(link string, ok bool) {
			if ok {
				fmt.Printf("resolved short link: %s\n", link)
			} else {
				fmt.Println("conversion failed, stored original link")
			}
		})
	case "short-code":
		return e.SetFromShortCode(ctx, arg)
	case "link":
		if !e.HandleDeepLinkURL(ctx, arg) {
			return fmt.Errorf("not an insert links url: %s", arg)
		}
		return nil
	case "current":
		id, ok := e.CurrentIdentifier(ctx, ignoreWindow)
		if !ok {
			return errors.New("no valid affiliate identifier")
		}
		fmt.Println(id)
		if at, ok := e.StoredDate(ctx); ok {
			fmt.Printf("stored at: %s\n", at.Format(time.RFC3339))
		}
		return nil
	case "track":
		return e.TrackEvent(ctx, arg)
	case "token":
		return e.AccountTokenAndRecordExpectedTransaction(ctx, arg, func(token string) {
			fmt.Printf("account token: %s\n", token)
		})
	case "details":
		fmt.Printf("offer code: %s\n", e.OfferCode(ctx))
		d := e.AffiliateDetails(ctx)
		fmt.Printf("affiliate: %s (%s)\n", d.AffiliateName, d.AffiliateShortCode)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.KV, error) {
	switch cfg.StoreDriver {
	case "memory":
		return storage.NewMemKV(), nil
	case "sqlite":
		return sqlite.Open(cfg.StorePath)
	case "postgres":
		db, err := spg.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := db.Ready(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres not ready: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return spg.NewKV(db, cfg.CompanyCode), nil
	default:
		return leveldb.Open(cfg.StorePath)
	}
}
