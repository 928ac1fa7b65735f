package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"amendtrail/internal/client"
	"amendtrail/internal/retry"
	"amendtrail/internal/types"
	"amendtrail/internal/version"

	"go.uber.org/zap"
)

const usage = `Usage: amendctl [flags] <command> [args]

Commands:
  history <entity-id>   Show the rendered change history for an entity
  log <entity-id>       Show the raw amendment log for an entity
  get <amendment-id>    Show one amendment record
  search <query>        Search amendments
  version               Show version information

Flags:
`

func main() {
	server := flag.String("server", "http://localhost:8080", "Server address")
	token := flag.String("token", "", "Bearer token")
	locale := flag.String("locale", "", "Display locale, e.g. en-IN")
	limit := flag.Int("limit", 0, "Maximum records to fetch")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if flag.Arg(0) == "version" {
		fmt.Println(version.GetInfo().String())
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	c, err := client.New(client.Config{
		BaseURL: *server,
		Token:   *token,
		Timeout: *timeout,
		Retry: &retry.Config{
			Enabled:  true,
			Attempts: 3,
			Interval: time.Second,
		},
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch cmd := flag.Arg(0); cmd {
	case "history":
		err = runHistory(ctx, c, flag.Arg(1), *locale)
	case "log":
		err = runLog(ctx, c, flag.Arg(1), *limit)
	case "get":
		err = runGet(ctx, c, flag.Arg(1))
	case "search":
		err = runSearch(ctx, c, flag.Arg(1), *limit)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runHistory(ctx context.Context, c *client.Client, entityID, locale string) error {
	if entityID == "" {
		return fmt.Errorf("entity-id is required")
	}

	entries, err := c.GetEntityDisplayList(ctx, entityID, locale)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No amendments.")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%s  %s (by %s)\n",
			entry.Record.AmendedAt.Format(time.RFC3339),
			entry.Record.EntityLabel,
			entry.Record.AmendedBy)
		for _, change := range entry.Changes {
			fmt.Printf("    %s: %s → %s\n",
				change.FieldName, change.DisplayFrom, change.DisplayTo)
		}
	}
	return nil
}

func runLog(ctx context.Context, c *client.Client, entityID string, limit int) error {
	if entityID == "" {
		return fmt.Errorf("entity-id is required")
	}

	records, err := c.GetEntityAmendments(ctx, entityID, limit)
	if err != nil {
		return err
	}
	printRecords(records)
	return nil
}

func runGet(ctx context.Context, c *client.Client, id string) error {
	if id == "" {
		return fmt.Errorf("amendment-id is required")
	}

	record, err := c.GetAmendment(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", record.ID)
	fmt.Printf("Entity:   %s (%s, %s)\n", record.EntityLabel, record.EntityID, record.EntityType)
	fmt.Printf("By:       %s\n", record.AmendedBy)
	fmt.Printf("At:       %s\n", record.AmendedAt.Format(time.RFC3339))
	fmt.Println("Changes:")
	for _, pair := range record.Changes {
		fmt.Printf("    %s: %s\n", pair.Field, pair.Descriptor)
	}
	return nil
}

func runSearch(ctx context.Context, c *client.Client, query string, limit int) error {
	if query == "" {
		return fmt.Errorf("query is required")
	}

	records, err := c.SearchAmendments(ctx, query, limit)
	if err != nil {
		return err
	}
	printRecords(records)
	return nil
}

func printRecords(records []*types.AmendmentRecord) {
	if len(records) == 0 {
		fmt.Println("No amendments.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENTITY\tTYPE\tBY\tAT\tCHANGES")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.EntityID, r.EntityType, r.AmendedBy,
			r.AmendedAt.Format(time.RFC3339), len(r.Changes))
	}
	_ = w.Flush()
}
