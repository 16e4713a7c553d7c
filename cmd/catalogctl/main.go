// Command catalogctl runs catalog imports and lookups directly against the
// store, without the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/JonMunkholm/compatdb/internal/config"
	"github.com/JonMunkholm/compatdb/internal/core"
	"github.com/JonMunkholm/compatdb/internal/logging"
	"github.com/JonMunkholm/compatdb/internal/storage/backend"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// cliCaller identifies mutations made from the command line in logs.
var cliCaller = core.Caller{ID: "catalogctl"}

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "catalogctl",
		Usage: "Manage the device compatibility catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file; its database and search settings replace --dialect and --db",
				EnvVars: []string{config.FileEnv},
			},
			&cli.StringFlag{
				Name:    "dialect",
				Usage:   "Database dialect (postgres, sqlite)",
				EnvVars: []string{"DB_DIALECT"},
				Value:   "postgres",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Database URL, or file path for sqlite",
				EnvVars: []string{"DATABASE_URL", "DB_URL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "preview",
				Usage:     "Parse an import file and show what would be stored",
				ArgsUsage: "FILE",
				Action:    previewCommand,
			},
			{
				Name:      "commit",
				Aliases:   []string{"import"},
				Usage:     "Replace the catalog with the contents of an import file",
				ArgsUsage: "FILE",
				Action:    importCommand,
			},
			{
				Name:      "search",
				Usage:     "Fuzzy search records by model name",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of hits (0 uses the configured default)",
					},
					&cli.BoolFlag{
						Name:  "vip",
						Usage: "Only VIP records",
					},
					&cli.BoolFlag{
						Name:  "free",
						Usage: "Only records not flagged VIP",
					},
				},
			},
			{
				Name:   "sample",
				Usage:  "Show a random sample of records",
				Action: sampleCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "size",
						Usage: "Number of records",
					},
				},
			},
			{
				Name:      "set-content",
				Usage:     "Replace a record's presentation content with the contents of FILE",
				ArgsUsage: "ID FILE",
				Action:    setContentCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	logging.Setup(c.String("log-level"), "text")
	return nil
}

// settings resolves the store and service settings from --config or the
// database flags.
func settings(c *cli.Context) (config.DatabaseConfig, core.ServiceConfig, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return config.DatabaseConfig{}, core.ServiceConfig{}, err
		}
		return cfg.Database, core.ServiceConfigFrom(cfg), nil
	}

	db := config.DatabaseConfig{
		Dialect:  c.String("dialect"),
		URL:      c.String("db"),
		MaxConns: 4,
	}
	if db.URL == "" {
		return db, core.ServiceConfig{}, fmt.Errorf("database URL is required (--db, DATABASE_URL or --config)")
	}
	return db, core.ServiceConfig{}, nil
}

// withService opens the configured store, runs fn and closes the store.
func withService(c *cli.Context, fn func(ctx context.Context, svc *core.Service) error) error {
	db, svcCfg, err := settings(c)
	if err != nil {
		return err
	}

	ctx := core.WithCaller(c.Context, cliCaller)

	store, err := backend.Open(ctx, db)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, core.NewService(store, svcCfg))
}

func previewCommand(c *cli.Context) error {
	path, err := requireArg(c, 0, "FILE")
	if err != nil {
		return err
	}
	return withService(c, func(ctx context.Context, svc *core.Service) error {
		preview, err := svc.PreviewImport(ctx, path)
		if err != nil {
			return err
		}
		return printJSON(c, preview)
	})
}

func importCommand(c *cli.Context) error {
	path, err := requireArg(c, 0, "FILE")
	if err != nil {
		return err
	}
	return withService(c, func(ctx context.Context, svc *core.Service) error {
		result, err := svc.CommitImport(ctx, path)
		if err != nil {
			return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
		}
		return printJSON(c, result)
	})
}

func searchCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *core.Service) error {
		hits, err := svc.Search(ctx, core.SearchRequest{
			Query:    c.Args().First(),
			Limit:    c.Int("limit"),
			VIPOnly:  c.Bool("vip"),
			FreeOnly: c.Bool("free"),
		})
		if err != nil {
			return err
		}
		return printJSON(c, hits)
	})
}

func sampleCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *core.Service) error {
		res, err := svc.Sample(ctx, c.Int("size"))
		if err != nil {
			return err
		}
		return printJSON(c, res)
	})
}

func setContentCommand(c *cli.Context) error {
	rawID, err := requireArg(c, 0, "ID")
	if err != nil {
		return err
	}
	path, err := requireArg(c, 1, "FILE")
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid record id %q", rawID)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	return withService(c, func(ctx context.Context, svc *core.Service) error {
		rec, err := svc.UpdatePresentationContent(ctx, id, string(content))
		if err != nil {
			return err
		}
		return printJSON(c, rec)
	})
}

func requireArg(c *cli.Context, i int, name string) (string, error) {
	v := c.Args().Get(i)
	if v == "" {
		return "", fmt.Errorf("missing %s argument", name)
	}
	return v, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
