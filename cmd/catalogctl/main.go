// Command catalogctl manages a product catalog, either straight from its JSON
// file or through a running catalog service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ProductCatalog/internal/auth"
	"ProductCatalog/internal/catalog"
	"ProductCatalog/pkg/kit"
)

const usage = `usage: catalogctl [--file PATH | --server URL [--token TOKEN]] <command> [args]

commands:
  seed --fixture FILE     add every product of a YAML fixture, skipping taken codes
  list                    print all products
  get ID                  print one product
  add JSON                add a product, e.g. '{"code":"P001","stock":50}'
  update ID JSON          merge JSON into a product
  delete ID               remove a product
  hash-password PASSWORD  print a bcrypt hash for CATALOG_AUTH_ADMIN_PASSWORD_HASH
`

var errUsage = errors.New("bad usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err != errUsage {
			fmt.Fprintln(os.Stderr, "catalogctl:", err)
		}
		os.Exit(1)
	}
}

type globals struct {
	file     string
	server   string
	token    string
	logLevel string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var g globals
	fs := pflag.NewFlagSet("catalogctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&g.file, "file", "products.json", "catalog file used when --server is not set")
	fs.StringVar(&g.server, "server", "", "base URL of a running catalog service")
	fs.StringVar(&g.token, "token", os.Getenv("CATALOG_TOKEN"), "admin bearer token for --server")
	fs.StringVar(&g.logLevel, "log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}
	cmd, cmdArgs := rest[0], rest[1:]

	if cmd == "hash-password" {
		return hashPassword(cmdArgs, stdout)
	}

	log, err := kit.NewLogger("catalogctl", g.logLevel, true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store := openStore(ctx, g, log)

	switch cmd {
	case "seed":
		return seed(ctx, store, cmdArgs, stdout, stderr)
	case "list":
		products, err := store.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, products)
	case "get":
		id, err := needID(cmdArgs, 1)
		if err != nil {
			return err
		}
		p, ok, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("product %d not found", id)
		}
		return printJSON(stdout, p)
	case "add":
		if len(cmdArgs) != 1 {
			return fmt.Errorf("%w: add takes one JSON argument", errUsage)
		}
		f, err := parseFields(cmdArgs[0])
		if err != nil {
			return err
		}
		p, err := store.Add(ctx, f)
		if err != nil {
			return err
		}
		return printJSON(stdout, p)
	case "update":
		id, err := needID(cmdArgs, 2)
		if err != nil {
			return err
		}
		patch, err := parseFields(cmdArgs[1])
		if err != nil {
			return err
		}
		p, ok, err := store.Update(ctx, id, patch)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("product %d not found", id)
		}
		return printJSON(stdout, p)
	case "delete":
		id, err := needID(cmdArgs, 1)
		if err != nil {
			return err
		}
		ok, err := store.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("product %d not found", id)
		}
		fmt.Fprintf(stdout, "deleted %d\n", id)
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func openStore(ctx context.Context, g globals, log *zap.Logger) catalog.Store {
	if g.server != "" {
		return catalog.NewClient(g.server, g.token)
	}
	return catalog.OpenFileStore(ctx, g.file, catalog.FileStoreOptions{Log: log})
}

type fixture struct {
	Products []map[string]any `yaml:"products"`
}

func seed(ctx context.Context, store catalog.Store, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("fixture", "", "YAML fixture with a products list")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *path == "" {
		return fmt.Errorf("%w: seed needs --fixture", errUsage)
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		return err
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse fixture %s: %w", *path, err)
	}

	var added, skipped int
	for i, m := range fx.Products {
		f, err := catalog.NewFields(m)
		if err != nil {
			return fmt.Errorf("fixture product %d: %w", i, err)
		}
		_, err = store.Add(ctx, f)
		switch {
		case err == nil:
			added++
		case errors.Is(err, catalog.ErrDuplicateCode):
			skipped++
		default:
			return fmt.Errorf("fixture product %d: %w", i, err)
		}
	}

	fmt.Fprintf(stdout, "seeded %d products, skipped %d existing codes\n", added, skipped)
	return nil
}

func hashPassword(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: hash-password takes one argument", errUsage)
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hash)
	return nil
}

func needID(args []string, n int) (int64, error) {
	if len(args) != n {
		return 0, fmt.Errorf("%w: expected %d argument(s)", errUsage, n)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad id %q", args[0])
	}
	return id, nil
}

func parseFields(s string) (catalog.Fields, error) {
	var f catalog.Fields
	if err := json.Unmarshal([]byte(s), &f); err != nil || f == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return f, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
