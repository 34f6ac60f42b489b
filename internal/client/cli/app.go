// Package cli implements the companion client's command-line interface.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/notecompanion/pipeline/internal/client/api"
	"github.com/notecompanion/pipeline/internal/client/config"
	"github.com/notecompanion/pipeline/internal/client/localdb"
	"github.com/notecompanion/pipeline/internal/client/models"
	"github.com/notecompanion/pipeline/internal/client/services"
	"github.com/notecompanion/pipeline/internal/client/store"
	"github.com/notecompanion/pipeline/internal/filex"
	"github.com/notecompanion/pipeline/internal/logging"
)

// App wires the client services behind one-shot commands.
type App struct {
	config *config.Config
	repos  *localdb.Repositories
	db     *sql.DB
	client api.Client
	queue  *services.QueueService
	poller *services.Poller
	out    io.Writer
}

// NewApp opens the local database and builds the service graph.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	itemsDir, err := filex.EnsureSubDir(cfg.DataDir, "items")
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	repos, db, err := localdb.InitDatabase(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("local database: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	apiClient := api.NewHTTPClient(cfg.ServerURL, cfg.AuthToken)
	contentStore := store.NewContentStore(itemsDir)
	queue := services.NewQueueService(repos.LocalFiles, repos.SyncQueue, contentStore, apiClient, logger)
	queue.DrainInterval = cfg.DrainInterval.Duration
	poller := services.NewPoller(apiClient, logger)
	if cfg.PollInterval.Duration > 0 {
		poller.Interval = cfg.PollInterval.Duration
	}

	return &App{
		config: cfg,
		repos:  repos,
		db:     db,
		client: apiClient,
		queue:  queue,
		poller: poller,
		out:    os.Stdout,
	}, nil
}

// Close releases the local database.
func (a *App) Close() error {
	return a.db.Close()
}

// Run dispatches one command and returns its error.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return nil
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "share":
		return a.share(ctx, rest)
	case "status":
		return a.status(ctx, rest)
	case "watch":
		return a.watch(ctx, rest)
	case "drain":
		return a.drain(ctx)
	case "list":
		return a.list(ctx)
	case "help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: companion <command> [args]")
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  share <path> [processType]  capture a file and upload it")
	fmt.Fprintln(a.out, "  status <fileId>             show a record's server-side state")
	fmt.Fprintln(a.out, "  watch <fileId>              poll a record until it finishes")
	fmt.Fprintln(a.out, "  drain                       upload everything in the local queue")
	fmt.Fprintln(a.out, "  list                        list locally captured items")
}

// share saves the file locally first, then runs the upload-and-wait flow.
// Text content finishes synchronously on the server; everything else is
// polled until terminal.
func (a *App) share(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: share <path> [processType]")
	}
	path := args[0]
	processType := ""
	if len(args) > 1 {
		processType = args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	shared := models.SharedFile{
		Name:        filepath.Base(path),
		FileType:    detectMIME(path),
		ProcessType: processType,
		Data:        data,
	}

	file, err := a.queue.SaveLocally(ctx, shared)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "saved locally as %s\n", file.LocalID)

	status, err := services.Submit(ctx, a.queue, a.poller, a.client, file.LocalID, shared.IsText())
	if err != nil {
		return err
	}
	a.printStatus(status)
	return nil
}

func (a *App) status(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: status <fileId>")
	}
	status, err := a.client.GetFileStatus(ctx, args[0])
	if err != nil {
		return err
	}
	a.printStatus(status)
	return nil
}

func (a *App) watch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <fileId>")
	}
	status, err := a.poller.PollUntilTerminal(ctx, args[0])
	if err != nil {
		return err
	}
	a.printStatus(status)
	return nil
}

func (a *App) drain(ctx context.Context) error {
	for {
		more, err := a.queue.DrainOne(ctx)
		if err != nil {
			return err
		}
		if !more {
			fmt.Fprintln(a.out, "queue empty")
			return nil
		}
	}
}

func (a *App) list(ctx context.Context) error {
	files, err := a.repos.LocalFiles.List(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "no items")
		return nil
	}
	for _, f := range files {
		line := fmt.Sprintf("%s  %-10s  %s", f.LocalID, f.Status, f.Name)
		if f.Error != "" {
			line += "  (" + f.Error + ")"
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func (a *App) printStatus(status *api.FileStatus) {
	fmt.Fprintf(a.out, "status: %s\n", status.Status)
	if status.TextContent != "" {
		fmt.Fprintf(a.out, "text:\n%s\n", status.TextContent)
	}
	if status.GeneratedImageURL != "" {
		fmt.Fprintf(a.out, "image: %s\n", status.GeneratedImageURL)
	}
	if status.TokensUsed > 0 {
		fmt.Fprintf(a.out, "tokens: %d\n", status.TokensUsed)
	}
	if status.Error != "" {
		fmt.Fprintf(a.out, "error: %s\n", status.Error)
	}
}

// knownTypes covers the extensions the pipeline cares about; the system
// mime table is only a fallback and may append charset parameters.
var knownTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// configFlags are consumed by config.LoadConfig and must not reach the
// command dispatcher.
var configFlags = map[string]struct{}{
	"-a": {}, "-t": {}, "-d": {}, "-c": {}, "-config": {},
}

// CommandArgs strips config flags (and their values) from args, leaving
// only the subcommand and its positional arguments.
func CommandArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := configFlags[name]; ok {
				continue
			}
		}
		if _, ok := configFlags[arg]; ok {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}

func detectMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if media, _, err := mime.ParseMediaType(t); err == nil {
			return media
		}
	}
	return "application/octet-stream"
}
