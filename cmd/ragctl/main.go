package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	rag_http "rag-assistant/internal/adapter/rag_http"
	"rag-assistant/internal/infra/config"
	"rag-assistant/internal/ingest"
)

var (
	version = "dev"

	// Global flags
	verbose   bool
	serverURL string
	timeout   time.Duration

	// ingest flags
	cursorFile string
	batchSize  int
	dryRun     bool

	// ask flags
	askProvider string
	askModel    string
	askAPIKey   string
	askJSON     bool

	// search flags
	searchLimit int

	// settings set flags
	setEmbeddingModel string
	setMetric         string
	setProvider       string
	setModel          string
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "ragctl",
	Short:        "Command line client for the rag-assistant server",
	Version:      version,
	SilenceUsage: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.jsonl>",
	Short: "Bulk load documents from a JSONL file",
	Long: `Bulk load documents into the knowledge base.

Each line is either a JSON object with "content" and optional "title" and
"sourceLocation" fields, or plain text used as the document content.
Progress is tracked in a cursor file so an interrupted load resumes.

Examples:
  ragctl ingest docs.jsonl
  ragctl ingest docs.jsonl --batch-size 64
  ragctl ingest docs.jsonl --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var ingestStatusCmd = &cobra.Command{
	Use:   "ingest-status",
	Short: "Show current cursor status",
	RunE:  showIngestStatus,
}

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor",
	Short: "Reset the cursor to start from the beginning",
	RunE:  resetCursor,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a similarity search without answer synthesis",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change retrieval settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the settings snapshot in effect",
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update retrieval settings",
	Long: `Update retrieval settings. Only the flags given are changed.

Examples:
  ragctl settings set --metric l2
  ragctl settings set --provider openai --model gpt-4o-mini`,
	RunE: runSettingsSet,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default $RAG_SERVER_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "per-request timeout")

	ingestCmd.Flags().StringVar(&cursorFile, "cursor-file", "ragctl-cursor.json", "cursor file path")
	ingestCmd.Flags().IntVar(&batchSize, "batch-size", ingest.DefaultBatchSize, "documents per request")
	ingestCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the file without sending anything")
	ingestStatusCmd.Flags().StringVar(&cursorFile, "cursor-file", "ragctl-cursor.json", "cursor file path")
	resetCursorCmd.Flags().StringVar(&cursorFile, "cursor-file", "ragctl-cursor.json", "cursor file path")

	askCmd.Flags().StringVar(&askProvider, "provider", "", "LLM provider override (ollama, openai, gemini, streaming)")
	askCmd.Flags().StringVar(&askModel, "model", "", "model override")
	askCmd.Flags().StringVar(&askAPIKey, "api-key", "", "API key for hosted providers")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 5, "number of results")

	settingsSetCmd.Flags().StringVar(&setEmbeddingModel, "embedding-model", "", "embedding model")
	settingsSetCmd.Flags().StringVar(&setMetric, "metric", "", "similarity metric (cosine, l2, inner_product)")
	settingsSetCmd.Flags().StringVar(&setProvider, "provider", "", "default LLM provider")
	settingsSetCmd.Flags().StringVar(&setModel, "model", "", "default LLM model")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(ingestCmd, ingestStatusCmd, resetCursorCmd, askCmd, searchCmd, settingsCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newClient() *ingest.APIClient {
	url := serverURL
	if url == "" {
		url = config.Load().ServerURL
	}
	return ingest.NewAPIClient(url, timeout)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	loader := ingest.NewLoader(newClient(), ingest.NewCursorManager(cursorFile), ingest.Config{
		BatchSize: batchSize,
		DryRun:    dryRun,
	}, newLogger())

	res, err := loader.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	fmt.Printf("Ingest complete. Lines: %d, Inserted: %d, Skipped: %d, Invalid: %d\n",
		res.Lines, res.Inserted, res.Skipped, res.InvalidLines)
	return nil
}

func showIngestStatus(cmd *cobra.Command, args []string) error {
	cursor, err := ingest.NewCursorManager(cursorFile).Load()
	if err != nil {
		return err
	}
	if cursor.IsEmpty() {
		fmt.Println("No ingest in progress")
		return nil
	}
	fmt.Printf("Source:   %s\n", cursor.Source)
	fmt.Printf("Line:     %d\n", cursor.Line)
	fmt.Printf("Inserted: %d\n", cursor.InsertedCount)
	fmt.Printf("Skipped:  %d\n", cursor.SkippedCount)
	fmt.Printf("Updated:  %s\n", cursor.UpdatedAt.Format(time.RFC3339))
	return nil
}

func resetCursor(cmd *cobra.Command, args []string) error {
	manager := ingest.NewCursorManager(cursorFile)
	if err := manager.Lock(); err != nil {
		return err
	}
	defer func() { _ = manager.Unlock() }()

	if err := manager.Reset(); err != nil {
		return err
	}
	fmt.Printf("Cursor reset: %s\n", manager.FilePath())
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	resp, err := newClient().Answer(ctx, rag_http.AnswerRequest{
		Query:    strings.Join(args, " "),
		Provider: askProvider,
		Model:    askModel,
		APIKey:   askAPIKey,
	})
	if err != nil {
		return err
	}
	if askJSON {
		return printJSON(resp)
	}

	fmt.Println(resp.Answer)
	if len(resp.Documents) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, doc := range resp.Documents {
			fmt.Printf("  [%d] %s (similarity %.2f, rerank %.2f)\n", i+1, doc.Title, doc.Similarity, doc.RerankScore)
		}
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	resp, err := newClient().Search(ctx, rag_http.SearchRequest{
		Query: strings.Join(args, " "),
		Limit: searchLimit,
	})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	settings, err := newClient().GetSettings(ctx)
	if err != nil {
		return err
	}
	return printJSON(settings)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	var patch rag_http.SettingsPatch
	if cmd.Flags().Changed("embedding-model") {
		patch.EmbeddingModel = &setEmbeddingModel
	}
	if cmd.Flags().Changed("metric") {
		patch.Metric = &setMetric
	}
	if cmd.Flags().Changed("provider") {
		patch.Provider = &setProvider
	}
	if cmd.Flags().Changed("model") {
		patch.Model = &setModel
	}
	if patch == (rag_http.SettingsPatch{}) {
		return fmt.Errorf("no settings given")
	}

	ctx, stop := signalContext()
	defer stop()

	settings, err := newClient().UpdateSettings(ctx, patch)
	if err != nil {
		return err
	}
	return printJSON(settings)
}
