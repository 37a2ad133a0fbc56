package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"throughline/internal/config"
	"throughline/internal/engine"
	"throughline/internal/logging"
	"throughline/internal/observability"
	"throughline/internal/record"
	"throughline/internal/relation"
	"throughline/internal/schema"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := run(); err != nil {
		slog.Error("throughline error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	pflag.Bool("version", false, "Print version and exit")
	pflag.Bool("dry-run", false, "Print generated SQL without executing it")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if showVersion, _ := pflag.CommandLine.GetBool("version"); showVersion {
		fmt.Printf("throughline %s (%s)\n", Version, Commit)
		return nil
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	metrics, err := observability.InitMetrics(logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	eng, err := engine.New(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer eng.Close()

	entities := schema.NewRegistry()
	if err := registerDemoEntities(entities); err != nil {
		return err
	}
	rel, err := eng.Relations().Define(relation.Definition{
		Name:    "posts",
		Local:   schema.MustNewEntity("Country", "", []schema.Field{{Name: "id", PrimaryKey: true}, {Name: "name"}}),
		Related: entities.Lazy("Post"),
		Through: entities.Lazy("User"),
	})
	if err != nil {
		return err
	}
	if err := rel.Boot(); err != nil {
		return err
	}

	if dryRun, _ := pflag.CommandLine.GetBool("dry-run"); dryRun {
		return printPlans(eng, rel)
	}

	ctx := logging.WithLogger(context.Background(), logger)
	if err := eng.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return demoEagerLoad(ctx, eng, rel, logger)
}

func registerDemoEntities(entities *schema.Registry) error {
	if err := entities.Register("User", func() *schema.Entity {
		return schema.MustNewEntity("User", "", []schema.Field{
			{Name: "id", PrimaryKey: true},
			{Name: "countryId"},
			{Name: "name"},
		})
	}); err != nil {
		return err
	}
	return entities.Register("Post", func() *schema.Entity {
		return schema.MustNewEntity("Post", "", []schema.Field{
			{Name: "id", PrimaryKey: true},
			{Name: "userId"},
			{Name: "title"},
		})
	})
}

// printPlans compiles the queries a Country.posts relation produces and prints
// them without touching the database.
func printPlans(eng *engine.Engine, rel *relation.HasManyThrough) error {
	client, err := eng.Client("")
	if err != nil {
		return err
	}

	country := record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(1)})
	neighbors := []*record.Record{
		country,
		record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(2)}),
	}

	single, err := rel.Query(country, client)
	if err != nil {
		return err
	}
	query, args, err := single.ToSQL()
	if err != nil {
		return err
	}
	fmt.Printf("fetch:  %s %v\n", query, args)

	eager, err := rel.EagerQuery(neighbors, client)
	if err != nil {
		return err
	}
	query, args, err = eager.ToSQL()
	if err != nil {
		return err
	}
	fmt.Printf("eager:  %s %v\n", query, args)

	update, err := rel.Query(country, client)
	if err != nil {
		return err
	}
	query, args, err = update.ToUpdateSQL(map[string]any{"title": "archived"})
	if err != nil {
		return err
	}
	fmt.Printf("update: %s %v\n", query, args)

	del, err := rel.Query(country, client)
	if err != nil {
		return err
	}
	query, args, err = del.ToDeleteSQL()
	if err != nil {
		return err
	}
	fmt.Printf("delete: %s %v\n", query, args)
	return nil
}

// demoEagerLoad fetches two countries' posts in one batched query and logs the
// grouped counts.
func demoEagerLoad(ctx context.Context, eng *engine.Engine, rel *relation.HasManyThrough, logger *logging.Logger) error {
	preloader, err := eng.Preloader("")
	if err != nil {
		return err
	}

	owners := []*record.Record{
		record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(1)}),
		record.NewWithAttrs(rel.Local(), map[string]any{"id": int64(2)}),
	}
	if err := preloader.Preload(ctx, rel, owners); err != nil {
		return err
	}

	for _, owner := range owners {
		id, _ := owner.Get("id")
		posts, _ := owner.Related("posts")
		logger.Info("eager load result", "country_id", id, "posts", len(posts))
	}
	return nil
}
