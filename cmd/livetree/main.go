package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"

	"github.com/jask/livetree/internal/config"
	"github.com/jask/livetree/internal/ctxlog"
	"github.com/jask/livetree/internal/dom"
	"github.com/jask/livetree/internal/snapshot"
	"github.com/jask/livetree/internal/tui"
	"github.com/jask/livetree/internal/viewmodel"
)

const version = "0.1.0"

const usage = `Live todo list rendered by a reactive view.

Usage:
    livetree snapshots
    livetree drop <name>
    livetree [<data>] [--snapshot=<name>] [--render=<format>] [--width=<cols>]
    livetree -h | --help
    livetree --version

Options:
    -h --help            Show this screen.
    --version            Show version.
    --snapshot=<name>    Snapshot to restore and save to [default: default].
    --render=<format>    Print once instead of running interactively: text or html.
    --width=<cols>       Clip text output to this many columns.

When <data> is given it seeds the list unless the snapshot already exists.
Output that is not a terminal is printed once as text.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		log.Fatalf("args: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if w, ok := opts["--width"].(string); ok {
		n, err := strconv.Atoi(w)
		if err != nil {
			log.Fatalf("--width: %v", err)
		}
		cfg.UI.Width = n
	}

	format, _ := opts["--render"].(string)
	interactive := format == "" && isatty.IsTerminal(os.Stdout.Fd())

	logger, closeLog, err := newLogger(cfg, interactive)
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	defer closeLog()
	ctx := ctxlog.WithLogger(context.Background(), logger)

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("snapshot: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	if list, _ := opts.Bool("snapshots"); list {
		if err := listSnapshots(ctx, store); err != nil {
			log.Fatalf("snapshots: %v", err)
		}
		return
	}
	if drop, _ := opts.Bool("drop"); drop {
		name, _ := opts.String("<name>")
		if store == nil {
			log.Fatal("snapshots are disabled")
		}
		if err := store.Delete(ctx, name); err != nil {
			log.Fatalf("drop %q: %v", name, err)
		}
		return
	}

	name, _ := opts.String("--snapshot")
	dataPath, _ := opts["<data>"].(string)
	data, err := loadData(ctx, store, name, dataPath)
	if err != nil {
		log.Fatalf("data: %v", err)
	}

	inst, frames, err := tui.NewInstance(cfg, data, logger)
	if err != nil {
		log.Fatalf("view: %v", err)
	}
	defer inst.Teardown()

	if !interactive {
		switch format {
		case "html":
			fmt.Println(inst.HTML())
		default:
			fmt.Println(dom.RenderText(inst.Target(), cfg.UI.Width, dom.Theme{Bullet: "- "}))
		}
		return
	}

	app, err := tui.New(ctx, cfg, inst, frames, store, name, logger)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// newLogger keeps the terminal clean while the UI owns it; debug runs log
// to a file instead.
func newLogger(cfg config.Config, interactive bool) (*slog.Logger, func(), error) {
	if !interactive {
		return ctxlog.New(cfg.Log.Level, cfg.Log.Format, os.Stderr), func() {}, nil
	}
	if !cfg.Engine.Debug {
		return ctxlog.Discard(), func() {}, nil
	}
	f, err := tea.LogToFile("livetree-debug.log", "")
	if err != nil {
		return nil, nil, err
	}
	return ctxlog.New("debug", cfg.Log.Format, f), func() { _ = f.Close() }, nil
}

func openStore(cfg config.Config) (snapshot.Store, error) {
	if cfg.Snapshot.Driver == "none" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Snapshot.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir snapshot dir: %w", err)
	}
	return snapshot.Open(cfg.Snapshot.Driver, cfg.Snapshot.Path)
}

// loadData prefers the saved snapshot, then the data file, then the
// built-in list.
func loadData(ctx context.Context, store snapshot.Store, name, path string) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx)
	if store != nil {
		data, err := store.Load(ctx, name)
		switch {
		case err == nil:
			logger.Info("restored snapshot", "name", name)
			return data, nil
		case !errors.Is(err, snapshot.ErrNotFound):
			return nil, err
		}
	}
	if path == "" {
		return tui.DefaultTodo(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return viewmodel.LoadYAML(f)
}

func listSnapshots(ctx context.Context, store snapshot.Store) error {
	if store == nil {
		return errors.New("snapshots are disabled")
	}
	infos, err := store.List(ctx)
	if err != nil {
		return err
	}
	return writeInfos(os.Stdout, infos)
}

func writeInfos(w io.Writer, infos []snapshot.Info) error {
	for _, info := range infos {
		if _, err := fmt.Fprintf(w, "%-20s %s %6d bytes\n", info.Name, info.SavedAt.Local().Format("2006-01-02 15:04:05"), info.Size); err != nil {
			return err
		}
	}
	return nil
}
