package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeanpaul/loci/internal/associate"
	"github.com/jeanpaul/loci/internal/config"
	"github.com/jeanpaul/loci/internal/logging"
	"github.com/jeanpaul/loci/internal/provider"
	"github.com/jeanpaul/loci/internal/session"
	"github.com/jeanpaul/loci/internal/storage/sqlite"
	"github.com/jeanpaul/loci/internal/tui"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

type globalFlags struct {
	config   string
	db       string
	session  string
	provider string
	model    string
}

// env is what every command that touches the database needs.
type env struct {
	cfg   *config.Config
	log   *logging.Logger
	store *sqlite.Store
	sid   session.ID
	flags globalFlags

	closeOnce sync.Once
}

var (
	osExit = os.Exit
	exit   = osExit

	exitMu    sync.Mutex
	exitHooks []func()
)

// onExit registers fn to run when fatal ends the process.
func onExit(fn func()) {
	exitMu.Lock()
	defer exitMu.Unlock()
	exitHooks = append(exitHooks, fn)
}

// runExitHooks runs the registered hooks, newest first, and forgets them.
func runExitHooks() {
	exitMu.Lock()
	hooks := exitHooks
	exitHooks = nil
	exitMu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

func main() {
	var gf globalFlags
	flag.StringVar(&gf.config, "config", "", "Config file (default "+config.Path()+")")
	flag.StringVar(&gf.db, "db", "", "Database file (overrides database.path)")
	flag.StringVar(&gf.session, "session", "", "Resume a session by its identifier")
	flag.StringVar(&gf.provider, "provider", "", "Provider name (ollama, vllm, openai, anthropic, google)")
	flag.StringVar(&gf.model, "model", "", "Model name")
	versionFlag := flag.Bool("version", false, "Print version")
	helpFlag := flag.Bool("help", false, "Show help")
	flag.BoolVar(helpFlag, "h", false, "Show help")

	flag.Usage = showHelp
	flag.Parse()

	if *helpFlag {
		showHelp()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("loci %s\n", version)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	args := flag.Args()
	if len(args) == 0 {
		launchTUI(ctx, gf)
		return
	}

	// Commands that need no database.
	switch args[0] {
	case "help":
		showHelp()
		return
	case "version":
		fmt.Printf("loci %s\n", version)
		return
	case "session":
		fmt.Println(session.New())
		return
	case "config":
		cmdConfig(gf, args[1:])
		return
	}

	e := setup(gf)
	defer e.close()

	switch args[0] {
	case "palaces":
		cmdPalaces(ctx, e)
	case "add-palace":
		if len(args) < 3 {
			fatal("usage: loci add-palace <name> <item>...")
		}
		cmdAddPalace(ctx, e, args[1], args[2:])
	case "categories":
		cmdCategories(ctx, e)
	case "add-category":
		if len(args) != 2 {
			fatal("usage: loci add-category <name>")
		}
		cmdAddCategory(ctx, e, args[1])
	case "generate":
		cmdGenerate(ctx, e, args[1:])
	case "view":
		if len(args) < 2 || len(args) > 3 {
			fatal("usage: loci view <category> [topic]")
		}
		topic := ""
		if len(args) == 3 {
			topic = args[2]
		}
		cmdView(ctx, e, args[1], topic)
	case "export":
		path := tui.DefaultExportFile
		if len(args) > 1 {
			path = args[1]
		}
		cmdExport(ctx, e, path)
	case "import":
		if len(args) != 2 {
			fatal("usage: loci import <file-or-glob>")
		}
		cmdImport(ctx, e, args[1])
	case "verify":
		if len(args) != 2 {
			fatal("usage: loci verify <file>")
		}
		cmdVerify(ctx, e, args[1])
	case "doctor":
		cmdDoctor(ctx, e)
	default:
		fatal("unknown command %q (see loci help)", args[0])
	}
}

// setup loads config, opens the log and the database, and settles the
// session. A fresh session identifier is printed to stderr so it can be
// passed back with --session.
func setup(gf globalFlags) *env {
	cfg, err := config.LoadFile(gf.config)
	if err != nil {
		fatal("%s", err)
	}
	if gf.db != "" {
		cfg.Database.Path = gf.db
	}

	log, err := logging.New(logging.Options{Mode: cfg.Log.Mode, Level: cfg.Log.Level, Path: logPath(cfg)})
	if err != nil {
		fatal("logging: %s", err)
	}

	e := &env{cfg: cfg, log: log, flags: gf}
	onExit(e.close)

	sessions := session.NewProvider()
	if gf.session != "" {
		id, err := session.Parse(gf.session)
		if err != nil {
			fatal("%s", err)
		}
		sessions = session.Resume(id)
	}
	e.sid = sessions.Current()
	if gf.session == "" {
		fmt.Fprintf(os.Stderr, "session %s\n", e.sid)
	}

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		fatal("open database %s: %s", cfg.Database.Path, err)
	}
	e.store = store
	log.Debug("database opened", "path", cfg.Database.Path, "session_id", e.sid.String())
	return e
}

// close releases the database and flushes the log. Safe to call more than once.
func (e *env) close() {
	e.closeOnce.Do(func() {
		if e.store != nil {
			_ = e.store.Close()
		}
		e.log.Sync()
	})
}

// logPath keeps log lines out of the TUI and the headless stdout.
func logPath(cfg *config.Config) string {
	if cfg.Log.File != "" {
		return cfg.Log.File
	}
	return "stderr"
}

// workflow builds the association workflow. Without a provider it can still
// create palaces.
func (e *env) workflow(withProvider bool) *associate.Workflow {
	var gen *associate.Generator
	if withProvider {
		p, err := provider.FromConfig(e.cfg, e.flags.provider, e.flags.model)
		if err != nil {
			fatal("%s", err)
		}
		opts := provider.ChatOptions{Temperature: e.cfg.Generation.Temperature}
		gen = associate.NewGenerator(provider.NewCompleter(p, associate.SystemPrompt, opts), e.cfg.Generation.Concurrency)
	}
	return associate.NewWorkflow(e.store, gen, e.cfg.Palace, e.log)
}

func launchTUI(ctx context.Context, gf globalFlags) {
	e := setup(gf)
	defer e.close()

	if e.cfg.Log.File == "" {
		// The alternate screen would be garbled by log lines on stderr.
		e.log = logging.NewNop()
	}
	wf := e.workflow(true)
	provName := gf.provider
	if provName == "" {
		provName = e.cfg.DefaultProvider
	}
	m := tui.NewModel(tui.Options{
		Workflow:     wf,
		Session:      e.sid,
		ProviderName: provName,
		ModelName:    modelName(e.cfg, provName, gf.model),
	})

	var opts []tea.ProgramOption
	if isTerminal() {
		opts = append(opts, tea.WithAltScreen())
	}
	opts = append(opts, tea.WithContext(ctx))

	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		fatal("TUI error: %s", err)
	}
	fmt.Fprintf(os.Stderr, "resume with: loci --session %s\n", e.sid)
}

func modelName(cfg *config.Config, provName, flagModel string) string {
	if flagModel != "" {
		return flagModel
	}
	if p, ok := cfg.ProviderFor(provName); ok && p.Model != "" {
		return p.Model
	}
	return cfg.DefaultModel
}

// isTerminal checks if stdin is a terminal
func isTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, tui.ErrorStyle.Render("error: "+msg))
	runExitHooks()
	exit(1)
}

func showHelp() {
	help := `
` + tui.BannerStyle.Render("loci") + ` - build memory palaces and keep them in SQLite

` + tui.PalaceNameStyle.Render("USAGE:") + `
  loci [flags]                       Start the interactive app
  loci [flags] <command> [args]      Run a command

` + tui.PalaceNameStyle.Render("COMMANDS:") + `
  palaces                            List palaces and their items
  add-palace <name> <item>...        Create a palace
  categories                         List categories
  add-category <name>                Create a category
  generate --palace P --category C --topic T [--items a,b,c] [--points "x;y"]
                                     Generate and save one association
  view <category> [topic]            Show associations
  export [file]                      Export to .json, .yaml or .xlsx
  import <file-or-glob>              Import .json or .yaml documents
  verify <file>                      Check that a document survives a round trip
  doctor                             Check providers and the database
  config init [--force]              Write the default config file
  session                            Print a new session identifier
  version                            Print version
  help                               Show this help

` + tui.PalaceNameStyle.Render("FLAGS:") + `
  --config <path>                    Config file
  --db <path>                        Database file
  --session <id>                     Resume a session (otherwise a new one starts)
  --provider <name>                  Provider (ollama, vllm, openai, anthropic, google)
  --model <name>                     Model
  --version                          Show version
  --help, -h                         Show this help

` + tui.PalaceNameStyle.Render("EXAMPLES:") + `
  loci add-palace Kitchen Stove Sink Fridge Table Oven
  loci --session 3f1c... generate --palace Kitchen --category Science --topic Thermodynamics
  loci --session 3f1c... export backup.xlsx
  loci import 'backups/**/*.json'
`
	fmt.Println(help)
}
