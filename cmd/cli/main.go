package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spendsheet/internal/expense"
	"spendsheet/internal/llm"
	"spendsheet/internal/logger"
	"spendsheet/internal/sheetstore"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(log)
	case "scan":
		runScan(log)
	case "list":
		runList(log)
	case "ask":
		runAsk(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Spendsheet CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  init    Create and format the Transactions and Chat History sheets")
	fmt.Println("  scan    Extract items from a receipt image or description and append them")
	fmt.Println("  list    Print stored transactions grouped by merchant and date")
	fmt.Println("  ask     Ask a question about your spending")
	fmt.Println("  help    Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// newContext builds the per-invocation context with a conservative
// timeout: image payloads plus model latency can run long.
func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

func resolveSheet(log zerolog.Logger, url string) string {
	if url == "" {
		url = os.Getenv("SPENDSHEET_URL")
	}
	id, ok := sheetstore.ResolveSpreadsheetID(url)
	if !ok {
		log.Fatal().Str("url", url).Msg("Not a valid Google Sheets URL (pass -sheet or set SPENDSHEET_URL)")
	}
	return id
}

func newService(ctx context.Context, log zerolog.Logger) (*expense.Service, *sheetstore.Client) {
	store, err := sheetstore.New(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}
	completer, err := llm.New(ctx, os.Getenv("GEMINI_MODEL"), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}
	return expense.NewService(store, completer, nil, log), store
}

func runInit(log zerolog.Logger) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	sheet := fs.String("sheet", "", "Google Sheets URL")
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext()
	defer cancel()

	id := resolveSheet(log, *sheet)
	_, store := newService(ctx, log)

	if err := store.Initialize(ctx, id); err != nil {
		log.Fatal().Err(err).Msg("Initialization failed")
	}
	fmt.Println("Spreadsheet initialized.")
}

func runScan(log zerolog.Logger) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	sheet := fs.String("sheet", "", "Google Sheets URL")
	image := fs.String("image", "", "Path to a receipt image (jpg, png, webp)")
	text := fs.String("text", "", "Free-text purchase description")
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext()
	defer cancel()

	id := resolveSheet(log, *sheet)
	svc, _ := newService(ctx, log)

	var images []llm.Image
	if *image != "" {
		data, err := os.ReadFile(*image)
		if err != nil {
			log.Fatal().Err(err).Str("path", *image).Msg("Cannot read image")
		}
		images = append(images, llm.Image{MIMEType: mimeForPath(*image), Data: data})
	}

	items, err := svc.Extract(ctx, *text, images)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	for _, it := range items {
		fmt.Printf("  %-20s %-12s %-14s %-30s %8.2f\n", it.Merchant, it.Date, it.Category, it.Item, it.Cost)
	}

	result, err := svc.Append(ctx, id, items)
	if err != nil {
		log.Fatal().Err(err).Msg("Append failed")
	}
	fmt.Printf("Appended %d rows in %d transactions.\n", result.RowsAdded, result.TransactionsAdded)
}

func runList(log zerolog.Logger) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	sheet := fs.String("sheet", "", "Google Sheets URL")
	fs.Parse(os.Args[2:])

	ctx, cancel := newContext()
	defer cancel()

	id := resolveSheet(log, *sheet)
	svc, _ := newService(ctx, log)

	txs, err := svc.ReadTransactions(ctx, id)
	if err != nil {
		log.Fatal().Err(err).Msg("Read failed")
	}

	for _, tx := range txs {
		fmt.Printf("%s (%s): %.2f\n", tx.Merchant, tx.Date, tx.Total())
		for _, it := range tx.Items {
			fmt.Printf("    %-14s %-30s %8.2f\n", it.Category, it.Item, it.Cost)
		}
	}
	fmt.Printf("%d transactions.\n", len(txs))
}

func runAsk(log zerolog.Logger) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	sheet := fs.String("sheet", "", "Google Sheets URL")
	fs.Parse(os.Args[2:])

	question := strings.Join(fs.Args(), " ")
	if question == "" {
		log.Fatal().Msg("Usage: cli ask [-sheet URL] <question>")
	}

	ctx, cancel := newContext()
	defer cancel()

	id := resolveSheet(log, *sheet)
	svc, _ := newService(ctx, log)

	insight, err := svc.Ask(ctx, id, question, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Ask failed")
	}

	fmt.Println(insight.Content)
	if insight.Chart != nil {
		fmt.Printf("\n[%s chart]\n", insight.Chart.Type)
		for _, p := range insight.Chart.Data {
			fmt.Printf("  %-24s %10.2f\n", p.Name, p.Value)
		}
	}
	if len(insight.SuggestedPrompts) > 0 {
		fmt.Println("\nYou could also ask:")
		for _, p := range insight.SuggestedPrompts {
			fmt.Println("  -", p)
		}
	}
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
