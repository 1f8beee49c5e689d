package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/shopsearch/internal/config"
	shopsearch "github.com/kailas-cloud/shopsearch/pkg/sdk"
)

func searchAction(ctx context.Context, cmd *cli.Command) error {
	text := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("search: query argument is required")
	}

	q, err := queryFromFlags(text, cmd)
	if err != nil {
		return err
	}

	client, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Search(ctx, q)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return writeJSON(os.Stdout, res)
	}
	return writeTable(os.Stdout, res)
}

func healthAction(ctx context.Context, cmd *cli.Command) error {
	client, err := openClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	hs := client.Health(ctx)
	names := make([]string, 0, len(hs.Checks))
	for k := range hs.Checks {
		names = append(names, k)
	}
	sort.Strings(names)

	fmt.Fprintf(os.Stdout, "status: %s\n", hs.Status)
	for _, n := range names {
		fmt.Fprintf(os.Stdout, "  %-18s %s\n", n, hs.Checks[n])
	}
	if hs.Status != "ok" {
		return fmt.Errorf("health: status %s", hs.Status)
	}
	return nil
}

func queryFromFlags(text string, cmd *cli.Command) (shopsearch.Query, error) {
	q := shopsearch.Query{
		Text:   text,
		Color:  cmd.String("color"),
		Gender: cmd.String("gender"),
		Limit:  cmd.Int("limit"),
	}
	minSet, maxSet := cmd.IsSet("min-price"), cmd.IsSet("max-price")
	if minSet != maxSet {
		return shopsearch.Query{}, errors.New("search: --min-price and --max-price must be set together")
	}
	if minSet {
		q.Price = &shopsearch.PriceRange{Min: cmd.Float("min-price"), Max: cmd.Float("max-price")}
	}
	return q, nil
}

func openClient(ctx context.Context, cmd *cli.Command) (*shopsearch.Client, error) {
	if f := cmd.String("env-file"); f != "" {
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	env := cmd.String("config-env")
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	opts := optionsFromConfig(cfg)
	if cmd.Bool("verbose") {
		opts = append(opts, shopsearch.WithLogger(
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		))
	}

	client, err := shopsearch.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return client, nil
}

// optionsFromConfig maps the server config onto SDK options so the CLI
// queries exactly what the API would.
func optionsFromConfig(cfg config.Config) []shopsearch.Option {
	opts := []shopsearch.Option{
		shopsearch.WithCollection(cfg.Backend.Collection),
		shopsearch.WithReadinessTimeout(time.Duration(cfg.Backend.ReadinessTimeout) * time.Second),
		shopsearch.WithEmbeddingTimeout(time.Duration(cfg.Embedding.TimeoutMs) * time.Millisecond),
		shopsearch.WithFusion(cfg.Search.Fusion),
		shopsearch.WithRRFK(cfg.Search.RRFK),
		shopsearch.WithPrefetchLimit(cfg.Search.PrefetchLimit),
		shopsearch.WithLimits(cfg.Search.ResultLimit, cfg.Search.MaxLimit),
		shopsearch.WithOpenAIDense(
			cfg.Embedding.Dense.BaseURL, cfg.Embedding.Dense.APIKey,
			cfg.Embedding.Dense.Model, cfg.Embedding.Dense.Dimensions,
		),
	}

	switch cfg.Backend.Driver {
	case "pgvector":
		opts = append(opts, shopsearch.WithPostgres(cfg.Backend.Postgres.DSN))
	default:
		q := cfg.Backend.Qdrant
		opts = append(opts, shopsearch.WithQdrant(q.Host, q.Port, q.APIKey))
		if q.UseTLS {
			opts = append(opts, shopsearch.WithQdrantTLS())
		}
	}

	if cfg.Embedding.Sparse.Provider == "lexical" {
		opts = append(opts, shopsearch.WithLexicalSparse(cfg.Embedding.Sparse.VocabSize))
	} else {
		opts = append(opts, shopsearch.WithTEISparse(cfg.Embedding.Sparse.BaseURL, cfg.Embedding.Sparse.Model))
	}

	if cfg.Embedding.Dense.QueryInstruction != "" {
		opts = append(opts, shopsearch.WithQueryInstruction(cfg.Embedding.Dense.QueryInstruction))
	}
	return opts
}

type jsonHit struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Colors      string  `json:"colors"`
	Gender      string  `json:"gender"`
	Pattern     string  `json:"pattern,omitempty"`
	Description string  `json:"description,omitempty"`
}

func writeJSON(w io.Writer, res shopsearch.Result) error {
	hits := make([]jsonHit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = jsonHit{
			ID:          h.ID,
			Score:       h.Score,
			Name:        h.Product.Name,
			Price:       h.Product.Price,
			Colors:      h.Product.Colors,
			Gender:      h.Product.Gender,
			Pattern:     h.Product.Pattern,
			Description: h.Product.Description,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{ //nolint:wrapcheck // terminal output
		"count":      len(hits),
		"durationMs": res.Timings.Total.Milliseconds(),
		"results":    hits,
	})
}

func writeTable(w io.Writer, res shopsearch.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "ID", "Score", "Name", "Price", "Colors", "Gender")
	for i, h := range res.Hits {
		if err := table.Append(
			fmt.Sprintf("%d", i+1),
			h.ID,
			fmt.Sprintf("%.4f", h.Score),
			h.Product.Name,
			fmt.Sprintf("%.2f", h.Product.Price),
			h.Product.Colors,
			h.Product.Gender,
		); err != nil {
			return fmt.Errorf("render row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, err := fmt.Fprintf(w, "%d results in %s\n", len(res.Hits), res.Timings.Total.Round(time.Millisecond))
	return err //nolint:wrapcheck // terminal output
}
