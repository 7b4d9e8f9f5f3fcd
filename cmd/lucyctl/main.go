// Command lucyctl is Lucy's maintenance CLI: subcommands for
// resetting/resyncing channel data and garbage-collecting low-value
// Paperless tags, operating directly against the database and vector
// store rather than through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pickeld/lucy/internal/config"
	"github.com/pickeld/lucy/internal/host"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/plugins"
	"github.com/pickeld/lucy/internal/plugins/paperless"
	"github.com/pickeld/lucy/internal/vectorstore"

	_ "github.com/pickeld/lucy/internal/plugins/call_recording"
	_ "github.com/pickeld/lucy/internal/plugins/gmail"
	_ "github.com/pickeld/lucy/internal/plugins/whatsapp"
)

// Exit codes per the CLI contract every lucyctl subcommand honors.
const (
	exitSuccess              = 0
	exitUnrecoverable        = 1
	exitUsage                = 2
	exitDependencyUnreachable = 3
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}

	switch os.Args[1] {
	case "resync":
		os.Exit(runResync(os.Args[2:]))
	case "gc-tags":
		os.Exit(runGCTags(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "lucyctl: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(exitUsage)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  lucyctl resync --source <whatsapp|paperless|all> [--sync] [--config path]
  lucyctl gc-tags [--max-docs N] [--batch-size N] [--dry-run] [--config path]`)
}

func runResync(args []string) int {
	fs := flag.NewFlagSet("resync", flag.ContinueOnError)
	source := fs.String("source", "", "whatsapp|paperless|all")
	sync := fs.Bool("sync", false, "trigger the source plugin's sync after deleting its vectors (paperless only)")
	configPath := fs.String("config", "", "path to config file (yaml)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *source == "" {
		fmt.Fprintln(os.Stderr, "resync: --source is required")
		return exitUsage
	}

	ctx := context.Background()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		return exitUnrecoverable
	}
	logger.SetLevel(cfg.Log.Level)

	h, err := host.NewHost(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to backing stores: %v\n", err)
		return exitDependencyUnreachable
	}
	defer h.Close()

	switch *source {
	case "whatsapp", "paperless", "call_recording", "gmail":
		filter := vectorstore.Filter{}.Equals("source", *source)
		if err := h.Vectors.DeleteByFilter(ctx, filter); err != nil {
			fmt.Fprintf(os.Stderr, "deleting %s vectors: %v\n", *source, err)
			return exitDependencyUnreachable
		}
		fmt.Printf("deleted all %s vectors\n", *source)
	case "all":
		if err := h.Vectors.DeleteByFilter(ctx, vectorstore.Filter{}); err != nil {
			fmt.Fprintf(os.Stderr, "resetting vector store: %v\n", err)
			return exitDependencyUnreachable
		}
		fmt.Println("deleted all vectors")
	default:
		fmt.Fprintf(os.Stderr, "resync: unknown source %q\n", *source)
		return exitUsage
	}

	if *sync {
		if *source != "paperless" && *source != "all" {
			fmt.Fprintln(os.Stderr, "resync: --sync is only supported for the paperless source")
			return exitUsage
		}
		registry := plugins.NewRegistry(h)
		if err := registry.LoadEnabled(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "loading plugins: %v\n", err)
			return exitUnrecoverable
		}
		defer registry.Shutdown(ctx)
		if err := registry.RunScheduledSync(ctx, "paperless"); err != nil {
			fmt.Fprintf(os.Stderr, "triggering paperless sync: %v\n", err)
			return exitDependencyUnreachable
		}
		fmt.Println("paperless sync complete")
	}

	return exitSuccess
}

func runGCTags(args []string) int {
	fs := flag.NewFlagSet("gc-tags", flag.ContinueOnError)
	maxDocs := fs.Int("max-docs", 0, "delete tags whose document_count is <= this value")
	batchSize := fs.Int("batch-size", 25, "tags per bulk_edit_objects call")
	dryRun := fs.Bool("dry-run", false, "only list tags that would be deleted")
	configPath := fs.String("config", "", "path to config file (yaml)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	ctx := context.Background()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		return exitUnrecoverable
	}
	logger.SetLevel(cfg.Log.Level)

	h, err := host.NewHost(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connecting to backing stores: %v\n", err)
		return exitDependencyUnreachable
	}
	defer h.Close()

	baseURL, _ := h.Settings.Get(ctx, "paperless.base_url")
	token, _ := h.Settings.Get(ctx, "paperless.api_token")
	if baseURL == "" || token == "" {
		fmt.Fprintln(os.Stderr, "gc-tags: paperless.base_url / paperless.api_token are not configured")
		return exitUsage
	}

	client := paperless.NewAdminClient(baseURL, token)
	tags, err := client.ListTags(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing paperless tags: %v\n", err)
		return exitDependencyUnreachable
	}

	var candidates []paperless.Tag
	for _, t := range tags {
		if t.DocumentCount <= *maxDocs {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		fmt.Printf("no tags found with document_count <= %d\n", *maxDocs)
		return exitSuccess
	}

	fmt.Printf("tags with <= %d document(s): %d tags\n", *maxDocs, len(candidates))
	for _, t := range candidates {
		fmt.Printf("  id=%-5d docs=%-3d name=%s\n", t.ID, t.DocumentCount, t.Name)
	}

	if *dryRun {
		fmt.Println("dry run: no tags were deleted")
		return exitSuccess
	}

	ids := make([]int, len(candidates))
	for i, t := range candidates {
		ids[i] = t.ID
	}
	ok, failed := client.DeleteTags(ctx, ids, *batchSize)
	fmt.Printf("deleted %d tags, %d failed\n", ok, failed)
	if failed > 0 {
		return exitUnrecoverable
	}
	return exitSuccess
}
