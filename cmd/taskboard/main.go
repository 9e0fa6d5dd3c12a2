package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/breakdown"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/storage"
)

var (
	app = kingpin.New("taskboard", "Kanban task board")

	dataDir = app.Flag("data-dir", "Local storage directory (overrides TASKBOARD_STORAGE_BASE_DIR)").String()
	noColor = app.Flag("no-color", "Disable colored output").Envar("NO_COLOR").Bool()
	verbose = app.Flag("verbose", "Log debug output to stderr").Short('v').Bool()

	addCmd         = app.Command("add", "Add a task")
	addTitle       = addCmd.Arg("title", "Task title").Required().String()
	addDescription = addCmd.Flag("description", "Task description").Short('d').String()
	addStatus      = addCmd.Flag("status", "Initial status").Default(string(board.StatusTodo)).Enum(statusNames()...)
	addPriority    = addCmd.Flag("priority", "Priority").Short('p').Enum("low", "medium", "high")
	addTags        = addCmd.Flag("tag", "Tag (repeatable)").Short('t').Strings()

	listCmd    = app.Command("list", "List tasks").Alias("ls")
	listStatus = listCmd.Flag("status", "Only tasks with this status").Enum(statusNames()...)

	boardCmd = app.Command("board", "Show the board by column")

	showCmd = app.Command("show", "Show task details")
	showID  = showCmd.Arg("id", "Task ID").Required().String()

	moveCmd    = app.Command("move", "Move a task to another column")
	moveID     = moveCmd.Arg("id", "Task ID").Required().String()
	moveStatus = moveCmd.Arg("status", "Target status").Required().Enum(statusNames()...)

	updateCmd         = app.Command("update", "Update task fields")
	updateID          = updateCmd.Arg("id", "Task ID").Required().String()
	updateTitle       = updateCmd.Flag("title", "New title").String()
	updateDescription = updateCmd.Flag("description", "New description").Short('d').String()
	updatePriority    = updateCmd.Flag("priority", "New priority").Short('p').Enum("low", "medium", "high")
	updateTags        = updateCmd.Flag("tag", "Replace tags (repeatable)").Short('t').Strings()

	deleteCmd = app.Command("delete", "Delete a task").Alias("rm")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()

	searchCmd   = app.Command("search", "Search title, description and tags")
	searchQuery = searchCmd.Arg("query", "Search text").Required().String()

	statsCmd = app.Command("stats", "Show board statistics")

	clearCmd = app.Command("clear", "Remove completed tasks")
	clearAll = clearCmd.Flag("all", "Remove every task").Bool()

	exportCmd    = app.Command("export", "Export the board")
	exportFormat = exportCmd.Flag("format", "Output format").Short('f').Default("json").Enum("json", "yaml")
	exportOutput = exportCmd.Flag("output", "Write to file instead of stdout").Short('o').String()

	importCmd    = app.Command("import", "Replace all tasks with an export file")
	importFile   = importCmd.Arg("file", "Export file (- for stdin)").Required().String()
	importDryRun = importCmd.Flag("dry-run", "Show the changes without applying them").Bool()

	resetCmd = app.Command("reset", "Empty the board")

	breakdownCmd    = app.Command("breakdown", "Generate tasks from a description with Claude")
	breakdownText   = breakdownCmd.Arg("text", "What needs doing").Required().Strings()
	breakdownDryRun = breakdownCmd.Flag("dry-run", "Print generated tasks without adding them").Bool()

	snapshotCmd        = app.Command("snapshot", "Manage stored exports")
	snapshotCreateCmd  = snapshotCmd.Command("create", "Store an export of the board")
	snapshotListCmd    = snapshotCmd.Command("list", "List stored exports")
	snapshotRestoreCmd = snapshotCmd.Command("restore", "Restore a stored export")
	snapshotRestoreID  = snapshotRestoreCmd.Arg("id", "Export ID").Required().String()
	snapshotClearCmd   = snapshotCmd.Command("clear", "Delete every stored export")
)

func statusNames() []string {
	names := make([]string, len(board.Statuses))
	for i, s := range board.Statuses {
		names[i] = string(s)
	}
	return names
}

var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
)

func fail(format string, args ...any) {
	failure.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *noColor {
		color.NoColor = true
		os.Setenv("NO_COLOR", "1")
	}
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(
		clog.NewTextHandler(os.Stderr, clog.WithLevel(level), clog.WithColor(!color.NoColor)),
	)))

	env, err := config.LoadEnv()
	if err != nil {
		fail("%v", err)
	}
	if *dataDir != "" {
		env.StorageEnv.Type = config.StorageTypeLocal
		env.StorageEnv.BaseDir = *dataDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStorage, err := env.StorageEnv.OpenStorage(ctx)
	if err != nil {
		fail("%v", err)
	}
	defer closeStorage()

	store := board.NewStore(st)
	store.LoadFromStorage(ctx)

	c := &cli{ctx: ctx, store: store, storage: st, env: env, out: os.Stdout}
	if err := c.run(command); err != nil {
		closeStorage()
		fail("%v", err)
	}
	if msg := store.Error(); msg != "" {
		closeStorage()
		fail("%s", msg)
	}
}

type cli struct {
	ctx     context.Context
	store   *board.Store
	storage storage.Storage
	env     *config.Env
	out     io.Writer
}

func (c *cli) run(command string) error {
	switch command {
	case addCmd.FullCommand():
		t := c.store.AddTask(c.ctx, board.TaskInput{
			Title:       *addTitle,
			Description: *addDescription,
			Status:      board.Status(*addStatus),
			Priority:    board.Priority(*addPriority),
			Tags:        *addTags,
		})
		success.Fprintf(c.out, "added %s\n", t.ID)
	case listCmd.FullCommand():
		if *listStatus != "" {
			renderTasks(c.out, c.store.TasksByStatus(board.Status(*listStatus)))
		} else {
			renderTasks(c.out, c.store.Tasks())
		}
	case boardCmd.FullCommand():
		renderBoard(c.out, c.store.Board())
	case showCmd.FullCommand():
		t, ok := c.store.Task(*showID)
		if !ok {
			return fmt.Errorf("task %s not found", *showID)
		}
		renderTaskDetail(c.out, t)
	case moveCmd.FullCommand():
		if !c.store.MoveTask(c.ctx, *moveID, board.Status(*moveStatus)) {
			return fmt.Errorf("task %s not found", *moveID)
		}
		success.Fprintf(c.out, "moved %s to %s\n", *moveID, *moveStatus)
	case updateCmd.FullCommand():
		return c.update()
	case deleteCmd.FullCommand():
		if !c.store.DeleteTask(c.ctx, *deleteID) {
			return fmt.Errorf("task %s not found", *deleteID)
		}
		success.Fprintf(c.out, "deleted %s\n", *deleteID)
	case searchCmd.FullCommand():
		renderTasks(c.out, c.store.SearchTasks(*searchQuery))
	case statsCmd.FullCommand():
		renderStats(c.out, c.store.Statistics())
	case clearCmd.FullCommand():
		var n int
		if *clearAll {
			n = c.store.ClearAllTasks(c.ctx)
		} else {
			n = c.store.ClearCompletedTasks(c.ctx)
		}
		success.Fprintf(c.out, "removed %d tasks\n", n)
	case exportCmd.FullCommand():
		return c.export()
	case importCmd.FullCommand():
		return c.importFile()
	case resetCmd.FullCommand():
		c.store.Reset(c.ctx)
		success.Fprintln(c.out, "board reset")
	case breakdownCmd.FullCommand():
		return c.breakdown()
	case snapshotCreateCmd.FullCommand(), snapshotListCmd.FullCommand(),
		snapshotRestoreCmd.FullCommand(), snapshotClearCmd.FullCommand():
		return c.snapshot(command)
	}
	return nil
}

func (c *cli) update() error {
	var patch board.TaskPatch
	if *updateTitle != "" {
		patch.Title = updateTitle
	}
	if *updateDescription != "" {
		patch.Description = updateDescription
	}
	if *updatePriority != "" {
		p := board.Priority(*updatePriority)
		patch.Priority = &p
	}
	if len(*updateTags) > 0 {
		patch.Tags = updateTags
	}
	if !c.store.UpdateTask(c.ctx, *updateID, patch) {
		return fmt.Errorf("task %s not found", *updateID)
	}
	success.Fprintf(c.out, "updated %s\n", *updateID)
	return nil
}

func encodeExport(w io.Writer, payload board.ExportPayload, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(payload)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func (c *cli) export() error {
	w := c.out
	if *exportOutput != "" {
		f, err := os.Create(*exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *exportOutput, err)
		}
		defer f.Close()
		w = f
	}
	return encodeExport(w, c.store.ExportData(), *exportFormat)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func (c *cli) importFile() error {
	data, err := readInput(*importFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", *importFile, err)
	}
	if *importDryRun {
		incoming, err := board.ParseImport(data)
		if err != nil {
			return fmt.Errorf("%s: %w", board.ErrMsgInvalidImport, err)
		}
		tasks := make([]board.Task, len(incoming))
		for i, t := range incoming {
			tasks[i] = *t
		}
		diff, err := importDiff(c.store.Tasks(), tasks, *importFile)
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Fprintln(c.out, "no changes")
			return nil
		}
		fmt.Fprint(c.out, diff)
		return nil
	}
	res := c.store.ImportData(c.ctx, data)
	if !res.OK {
		c.store.ClearError()
		return fmt.Errorf("%s: %s", board.ErrMsgInvalidImport, res.Reason)
	}
	success.Fprintf(c.out, "imported %d tasks\n", res.Imported)
	return nil
}

func (c *cli) breakdown() error {
	claude := breakdown.NewClaude(c.env.AIEnv.WorkDir, breakdown.WithTimeout(c.env.AIEnv.Timeout))
	text := strings.Join(*breakdownText, " ")
	if *breakdownDryRun {
		inputs, err := claude.Breakdown(c.ctx, text)
		if err != nil {
			return err
		}
		for _, in := range inputs {
			fmt.Fprintln(c.out, formatTask(board.Task{Title: in.Title, Status: in.Status, Priority: in.Priority, Tags: in.Tags, AIGenerated: true}))
		}
		return nil
	}
	tasks, err := breakdown.NewService(c.store, claude).Generate(c.ctx, text)
	if err != nil {
		return err
	}
	renderTasks(c.out, tasks)
	success.Fprintf(c.out, "added %d tasks\n", len(tasks))
	return nil
}

func (c *cli) snapshot(command string) error {
	svc := board.NewSnapshotService(c.store, c.storage)
	switch command {
	case snapshotCreateCmd.FullCommand():
		snap, err := svc.Create(c.ctx)
		if err != nil {
			return err
		}
		success.Fprintf(c.out, "stored %s (%d tasks)\n", snap.ID, snap.TaskCount)
	case snapshotListCmd.FullCommand():
		snaps, err := svc.List(c.ctx)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Fprintf(c.out, "%s  %s  %d tasks\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), s.TaskCount)
		}
	case snapshotRestoreCmd.FullCommand():
		res, err := svc.Restore(c.ctx, *snapshotRestoreID)
		if err != nil {
			return err
		}
		if !res.OK {
			c.store.ClearError()
			return fmt.Errorf("%s: %s", board.ErrMsgInvalidImport, res.Reason)
		}
		success.Fprintf(c.out, "restored %d tasks\n", res.Imported)
	case snapshotClearCmd.FullCommand():
		n, err := svc.Clear(c.ctx)
		if err != nil {
			return err
		}
		success.Fprintf(c.out, "deleted %d exports\n", n)
	}
	return nil
}
