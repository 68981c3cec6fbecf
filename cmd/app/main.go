package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	blobfs "github.com/atvirokodosprendimai/culturalatlas/internal/adapters/blob/fs"
	blobs3 "github.com/atvirokodosprendimai/culturalatlas/internal/adapters/blob/s3"
	"github.com/atvirokodosprendimai/culturalatlas/internal/adapters/db/gormdb"
	httpadapter "github.com/atvirokodosprendimai/culturalatlas/internal/adapters/http"
	rpcadapter "github.com/atvirokodosprendimai/culturalatlas/internal/adapters/rpcjson"
	"github.com/atvirokodosprendimai/culturalatlas/internal/application"
	"github.com/atvirokodosprendimai/culturalatlas/internal/config"
	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/observability"
	"github.com/atvirokodosprendimai/culturalatlas/internal/platform/logger"
	"github.com/atvirokodosprendimai/culturalatlas/internal/presentation"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "atlas",
		Usage: "Cultural heritage graph server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			clientCommand(),
			entityCommand(),
			linksCommand(),
			typesCommand(),
			searchCommand(),
			traverseCommand(),
			logsCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP and JSON-RPC servers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "atlas.yaml", Usage: "YAML config file, optional"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-driver", Usage: "sqlite or postgres"},
			&cli.StringFlag{Name: "db-dsn", Usage: "database path or DSN"},
			&cli.StringFlag{Name: "log-mode", Usage: "dev or prod"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			override := func(flag string, dst *string) {
				if v := c.String(flag); v != "" {
					*dst = v
				}
			}
			override("addr", &cfg.HTTP.Addr)
			override("rpc-socket", &cfg.RPC.Socket)
			override("db-driver", &cfg.Database.Driver)
			override("db-dsn", &cfg.Database.DSN)
			override("log-mode", &cfg.Log.Mode)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(ctx, cfg)
		},
	}
}

func openFileStore(ctx context.Context, cfg config.FilesConfig) (domain.FileStore, error) {
	switch cfg.Driver {
	case "s3":
		return blobs3.New(ctx, blobs3.Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		return blobfs.New(cfg.Root)
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer lg.Sync()

	lg.Info("opening database", "driver", cfg.Database.Driver, "dsn", cfg.Database.DSN)
	db, err := gormdb.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	if err := gormdb.RunMigrations(ctx, db); err != nil {
		return err
	}
	files, err := openFileStore(ctx, cfg.Files)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	service := application.NewGraphService(
		gormdb.NewGraphRepository(db),
		application.WithFileStore(files),
		application.WithLogger(lg),
		application.WithMetrics(metrics),
		application.WithLimits(cfg.API.DefaultLimit, cfg.API.MaxLimit),
	)

	router := httpadapter.NewRouter(service, lg.With("component", "http"), metrics)
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPC.Socket, service, lg.With("component", "rpc"))
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()
	lg.Info("json-rpc listening", "socket", cfg.RPC.Socket)

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server listening", "addr", srv.Addr, "files", cfg.Files.Driver)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func clientCommand() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "Configure how CLI commands reach the server",
		Commands: []*cli.Command{
			{
				Name:  "use",
				Usage: "Store transport settings in ~/.atlas/config.json",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "socket", Value: defaultSocket},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					if cfg.Transport != "uds" && cfg.Transport != "http" {
						return fmt.Errorf("transport must be uds or http")
					}
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("using %s\n", cfg.Transport)
					return nil
				},
			},
		},
	}
}

func entityCommand() *cli.Command {
	return &cli.Command{
		Name:  "entity",
		Usage: "Read and write entities",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show one entity",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					id, err := argID(c)
					if err != nil {
						return err
					}
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out presentation.EntityJSON
					if err := doEntityGet(ctx, cfg, id, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEntity(out)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List entities of system classes or a view",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "class", Usage: "comma separated system classes"},
					&cli.StringFlag{Name: "view", Usage: "actor, event, place, ..."},
					&cli.IntFlag{Name: "limit"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []presentation.EntityJSON
					if err := doEntityQuery(ctx, cfg, entityQuery{Classes: splitCSV(c.String("class")), View: c.String("view"), Limit: int(c.Int("limit"))}, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEntities(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create an entity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "class", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "aliases", Usage: "comma separated"},
					&cli.StringFlag{Name: "begin"},
					&cli.StringFlag{Name: "end"},
					&cli.UintFlag{Name: "parent", Usage: "super type id, types only"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					in := application.SaveInput{
						Class:       domain.SystemClass(c.String("class")),
						Name:        c.String("name"),
						Description: c.String("description"),
						Aliases:     splitCSV(c.String("aliases")),
						BeginFrom:   c.String("begin"),
						EndFrom:     c.String("end"),
						ParentID:    uint(c.Uint("parent")),
					}
					var out presentation.EntityJSON
					if err := doEntitySave(ctx, cfg, in, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printEntity(out)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an entity with its aliases and location",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, c *cli.Command) error {
					id, err := argID(c)
					if err != nil {
						return err
					}
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doEntityDelete(ctx, cfg, id); err != nil {
						return err
					}
					fmt.Printf("deleted %d\n", id)
					return nil
				},
			},
		},
	}
}

func linksCommand() *cli.Command {
	return &cli.Command{
		Name:  "links",
		Usage: "Inspect links",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List links of an entity",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "codes", Usage: "P7,P11"},
					&cli.BoolFlag{Name: "inverse"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					id, err := argID(c)
					if err != nil {
						return err
					}
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []presentation.LinkJSON
					if err := doLinksList(ctx, cfg, id, c.String("codes"), c.Bool("inverse"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printLinks(out)
					return nil
				},
			},
		},
	}
}

func typesCommand() *cli.Command {
	idAction := func(method string) cli.ActionFunc {
		return func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out []uint
			if err := doTypeIDs(ctx, cfg, method, id, &out); err != nil {
				return err
			}
			printIDs(out)
			return nil
		}
	}
	return &cli.Command{
		Name:  "types",
		Usage: "Browse and edit the type hierarchy",
		Commands: []*cli.Command{
			{
				Name:  "tree",
				Usage: "Print the type forest",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out map[string]presentation.TypeNodeJSON
					if err := doTypeTree(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printTypeTree(out)
					return nil
				},
			},
			{Name: "subs", Usage: "List all sub type ids", ArgsUsage: "<id>", Action: idAction("subs")},
			{Name: "root", Usage: "List ancestor ids, nearest first", ArgsUsage: "<id>", Action: idAction("root")},
			{
				Name:      "reparent",
				Usage:     "Move a type below another",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{&cli.UintFlag{Name: "parent", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					id, err := argID(c)
					if err != nil {
						return err
					}
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doTypeReparent(ctx, cfg, id, uint(c.Uint("parent"))); err != nil {
						return err
					}
					fmt.Printf("type %d moved below %d\n", id, c.Uint("parent"))
					return nil
				},
			},
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: `Filter entities, e.g. --query '{"entityName":[{"operator":"equal","values":["Thebes"]}]}'`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "class", Usage: "comma separated system classes"},
			&cli.StringFlag{Name: "view"},
			&cli.StringFlag{Name: "ids", Usage: "comma separated entity ids"},
			&cli.StringFlag{Name: "query", Required: true, Usage: "search document"},
			&cli.IntFlag{Name: "limit"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ids, err := parseUintList(c.String("ids"))
			if err != nil {
				return err
			}
			q := entityQuery{
				IDs:     ids,
				Classes: splitCSV(c.String("class")),
				View:    c.String("view"),
				Search:  c.String("query"),
				Limit:   int(c.Int("limit")),
			}
			var out []presentation.EntityJSON
			if err := doEntityQuery(ctx, cfg, q, &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printEntities(out)
			return nil
		},
	}
}

func traverseCommand() *cli.Command {
	return &cli.Command{
		Name:      "traverse",
		Usage:     "Walk links from an entity in both directions",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "depth", Value: 3},
			&cli.StringFlag{Name: "codes", Usage: "P11,P14"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out []presentation.HopJSON
			if err := doTraverse(ctx, cfg, id, int(c.Int("depth")), c.String("codes"), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printHops(out)
			return nil
		},
	}
}

func logsCommand() *cli.Command {
	return &cli.Command{
		Name:      "logs",
		Usage:     "Show the change log of an entity",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 50},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := argID(c)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var out []presentation.LogJSON
			if err := doLogs(ctx, cfg, id, int(c.Int("limit")), &out); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(out)
			}
			printLogs(out)
			return nil
		},
	}
}

func argID(c *cli.Command) (uint, error) {
	raw := c.Args().First()
	if raw == "" {
		return 0, fmt.Errorf("entity id argument is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
