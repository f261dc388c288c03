// ABOUTME: Admin CLI for the Glingo content store
// ABOUTME: Schema init, storage info, cascade export/import/delete and lesson preview

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/yuin/goldmark"

	"github.com/g333vn/Glingo-sub002/internal/auth"
	"github.com/g333vn/Glingo-sub002/internal/cache"
	"github.com/g333vn/Glingo-sub002/internal/config"
	"github.com/g333vn/Glingo-sub002/internal/remote"
	"github.com/g333vn/Glingo-sub002/internal/store"
	"github.com/g333vn/Glingo-sub002/internal/transfer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "init":
		err = cmdInit()
	case "info":
		err = cmdInfo()
	case "export":
		err = cmdExport(args)
	case "import":
		err = cmdImport(args)
	case "delete":
		err = cmdDelete(args)
	case "preview":
		err = cmdPreview(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Println("glingo-admin — content store administration")
	fmt.Println()
	fmt.Println("Usage: glingo-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  init                                    Create/upgrade the database schema")
	fmt.Println("  info                                    Show per-store counts and sizes")
	fmt.Println("  export full [--users] [--credentials]   Export the whole catalog")
	fmt.Println("  export level <level>                    Export one level")
	fmt.Println("  export series <level> <id>              Export a series and its books")
	fmt.Println("  export book <id>                        Export a book subtree")
	fmt.Println("  export chapter <book> <chapter>         Export one chapter")
	fmt.Println("  export lesson <book> <chapter> <id>     Export one lesson")
	fmt.Println("  export quiz <book> <chapter> <lesson>   Export one quiz")
	fmt.Println("  export exam <level> <id>                Export one exam")
	fmt.Println("  export exam-year <level> <year>         Export a year's exams")
	fmt.Println("  export exam-section <level> <id> <name> Export one exam section")
	fmt.Println("  export date-range <start> <end> [--subtrees] [--users]")
	fmt.Println("                                          Export entities created in range")
	fmt.Println("  import <file>                           Import a transfer document")
	fmt.Println("  delete book <level> <id>                Cascade-delete a book")
	fmt.Println("  delete series <level> <id>              Cascade-delete a series")
	fmt.Println("  delete chapter <book> <chapter>         Cascade-delete a chapter")
	fmt.Println("  delete lesson <book> <chapter> <id>     Cascade-delete a lesson")
	fmt.Println("  delete level <level>                    Cascade-delete a level")
	fmt.Println("  delete exam <level> <id>                Delete an exam")
	fmt.Println("  preview <book> <chapter> <lesson>       Render a lesson's markdown")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  GLINGO_CONFIG   Config file path (optional)")
	fmt.Println("  GLINGO_DB       Database path (default: glingo.db)")
	fmt.Println("  GLINGO_TOKEN    Identity token; enables remote mirroring of writes")
	fmt.Println()
}

// loadConfig resolves configuration from GLINGO_CONFIG or environment
// fallbacks.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("GLINGO_CONFIG"); path != "" {
		return config.Load(path)
	}
	dbPath := os.Getenv("GLINGO_DB")
	if dbPath == "" {
		dbPath = "glingo.db"
	}
	cfg := &config.Config{Database: config.DatabaseConfig{Path: dbPath}}
	cfg.Cache.TTL = 5 * time.Minute
	cfg.Cache.MaxEntries = 1024
	cfg.Cache.SweepInterval = time.Minute
	return cfg, nil
}

// openStore opens the content store with warnings printed to the terminal.
func openStore(cfg *config.Config) (*store.DB, error) {
	opts := []store.Option{
		store.WithWarningFunc(func(w store.Warning) {
			color.Yellow("warning (%s): %v\n", w.Kind, w.Err)
		}),
	}
	if !cfg.Database.AutoResetEnabled() {
		opts = append(opts, store.WithoutAutoReset())
	}
	if cfg.Remote.Enabled && cfg.Remote.BaseURL != "" {
		opts = append(opts, store.WithMirror(remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)))
	}
	return store.Open(cfg.Database.Path, opts...)
}

// cmdContext attaches the identity token, if present, so writes mirror.
// With mirroring configured the token is verified against the remote
// secret first; a rejected token keeps writes local rather than pushing
// unattributable records.
func cmdContext(cfg *config.Config) context.Context {
	ctx := context.Background()
	token := os.Getenv("GLINGO_TOKEN")
	if token == "" {
		return ctx
	}
	if cfg.Remote.Enabled {
		userID, err := auth.NewJWTVerifier([]byte(cfg.Remote.JWTSecret)).Verify(token)
		if err != nil {
			color.Yellow("warning: identity token rejected, writes stay local: %v\n", err)
			return ctx
		}
		ctx = auth.WithUserID(ctx, userID)
	}
	return auth.WithToken(ctx, token)
}

func newEngine(st store.Store, cfg *config.Config) (*transfer.Engine, *cache.Cache) {
	c := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries, cfg.Cache.SweepInterval)
	return transfer.New(st, c), c
}

func cmdInit() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	color.Green("Database ready at %s (schema version %d)\n", cfg.Database.Path, store.SchemaVersion)
	return nil
}

func cmdInfo() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	info := st.Info(cmdContext(cfg))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STORE\tCOUNT\tSIZE")
	for _, s := range info.PerStore {
		fmt.Fprintf(w, "%s\t%d\t%d\n", s.Store, s.Count, s.Size)
	}
	fmt.Fprintf(w, "total\t%d\t%d\n", info.ItemCount, info.TotalSize)
	w.Flush()
	fmt.Printf("\nstorage: %s\n", info.StorageKind)
	return nil
}

// splitFlags separates --flags from positional args.
func splitFlags(args []string) (positional []string, flags map[string]bool) {
	flags = make(map[string]bool)
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			flags[strings.TrimPrefix(a, "--")] = true
		} else {
			positional = append(positional, a)
		}
	}
	return positional, flags
}

func cmdExport(args []string) error {
	pos, flags := splitFlags(args)
	if len(pos) < 1 {
		return fmt.Errorf("export requires a type (see help)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	eng, qc := newEngine(st, cfg)
	defer qc.Close()

	ctx := cmdContext(cfg)
	var doc *transfer.Document

	switch pos[0] {
	case "full":
		doc, err = eng.ExportFull(ctx, transfer.ExportOptions{
			IncludeUsers:       flags["users"],
			IncludeCredentials: flags["credentials"],
		})
	case "level":
		if len(pos) != 2 {
			return fmt.Errorf("export level requires <level>")
		}
		doc, err = eng.ExportLevel(ctx, pos[1])
	case "series":
		if len(pos) != 3 {
			return fmt.Errorf("export series requires <level> <id>")
		}
		doc, err = eng.ExportSeries(ctx, pos[1], pos[2])
	case "book":
		if len(pos) != 2 {
			return fmt.Errorf("export book requires <id>")
		}
		doc, err = eng.ExportBook(ctx, pos[1])
	case "chapter":
		if len(pos) != 3 {
			return fmt.Errorf("export chapter requires <book> <chapter>")
		}
		doc, err = eng.ExportChapter(ctx, pos[1], pos[2])
	case "lesson":
		if len(pos) != 4 {
			return fmt.Errorf("export lesson requires <book> <chapter> <lesson>")
		}
		doc, err = eng.ExportLesson(ctx, pos[1], pos[2], pos[3])
	case "quiz":
		if len(pos) != 4 {
			return fmt.Errorf("export quiz requires <book> <chapter> <lesson>")
		}
		doc, err = eng.ExportQuiz(ctx, pos[1], pos[2], pos[3])
	case "exam":
		if len(pos) != 3 {
			return fmt.Errorf("export exam requires <level> <id>")
		}
		doc, err = eng.ExportExam(ctx, pos[1], pos[2])
	case "exam-year":
		if len(pos) != 3 {
			return fmt.Errorf("export exam-year requires <level> <year>")
		}
		year, convErr := strconv.Atoi(pos[2])
		if convErr != nil {
			return fmt.Errorf("parsing year %q: %w", pos[2], convErr)
		}
		doc, err = eng.ExportExamYear(ctx, pos[1], year)
	case "exam-section":
		if len(pos) != 4 {
			return fmt.Errorf("export exam-section requires <level> <id> <section>")
		}
		doc, err = eng.ExportExamSection(ctx, pos[1], pos[2], pos[3])
	case "date-range":
		if len(pos) != 3 {
			return fmt.Errorf("export date-range requires <start> <end> (YYYY-MM-DD)")
		}
		r, rangeErr := parseDateRange(pos[1], pos[2])
		if rangeErr != nil {
			return rangeErr
		}
		doc, err = eng.ExportDateRange(ctx, r, transfer.DateRangeOptions{
			IncludeSubtrees:    flags["subtrees"],
			IncludeUsers:       flags["users"],
			IncludeCredentials: flags["credentials"],
		})
	default:
		return fmt.Errorf("unknown export type %q", pos[0])
	}
	if err != nil {
		return err
	}

	if doc.Warning != "" {
		color.Yellow("warning: %s\n", doc.Warning)
	}
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// parseDateRange builds an inclusive range: the end day extends to its
// final nanosecond.
func parseDateRange(start, end string) (store.DateRange, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return store.DateRange{}, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return store.DateRange{}, fmt.Errorf("parsing end date %q: %w", end, err)
	}
	return store.DateRange{Start: s, End: e.AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil
}

func cmdImport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import requires <file>")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	eng, qc := newEngine(st, cfg)
	defer qc.Close()

	rep, err := eng.Import(cmdContext(cfg), raw)
	if err != nil {
		return err
	}

	color.Green("Imported %d record(s), skipped %d existing ancestor(s)\n", rep.Imported, rep.Skipped)
	for _, ie := range rep.Errors {
		color.Red("  failed %s/%s: %s\n", ie.Store, ie.Key, ie.Err)
	}
	if !rep.Success() {
		return fmt.Errorf("%d item(s) failed to import", len(rep.Errors))
	}
	return nil
}

func cmdDelete(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("delete requires a target (see help)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	eng, qc := newEngine(st, cfg)
	defer qc.Close()

	ctx := cmdContext(cfg)
	var res *transfer.DeleteResult

	target, rest := args[0], args[1:]
	switch target {
	case "book":
		if len(rest) != 2 {
			return fmt.Errorf("delete book requires <level> <id>")
		}
		res = eng.DeleteBook(ctx, rest[0], rest[1])
	case "series":
		if len(rest) != 2 {
			return fmt.Errorf("delete series requires <level> <id>")
		}
		res = eng.DeleteSeries(ctx, rest[0], rest[1])
	case "chapter":
		if len(rest) != 2 {
			return fmt.Errorf("delete chapter requires <book> <chapter>")
		}
		res = eng.DeleteChapter(ctx, rest[0], rest[1])
	case "lesson":
		if len(rest) != 3 {
			return fmt.Errorf("delete lesson requires <book> <chapter> <lesson>")
		}
		res = eng.DeleteLesson(ctx, rest[0], rest[1], rest[2])
	case "level":
		if len(rest) != 1 {
			return fmt.Errorf("delete level requires <level>")
		}
		res = eng.DeleteLevel(ctx, rest[0])
	case "exam":
		if len(rest) != 2 {
			return fmt.Errorf("delete exam requires <level> <id>")
		}
		res = eng.DeleteExam(ctx, rest[0], rest[1])
	default:
		return fmt.Errorf("unknown delete target %q", target)
	}

	for _, ie := range res.Errors {
		color.Red("  failed %s/%s: %s\n", ie.Store, ie.Key, ie.Err)
	}
	if !res.Success {
		return fmt.Errorf("%d item(s) failed to delete", len(res.Errors))
	}
	color.Green("Deleted.\n")
	return nil
}

func cmdPreview(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("preview requires <book> <chapter> <lesson>")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	lessons, err := st.GetLessons(cmdContext(cfg), args[0], args[1])
	if err != nil {
		return err
	}
	for _, l := range lessons {
		if l.ID != args[2] {
			continue
		}
		color.Cyan("%s\n\n", l.Title)
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(l.Content), &buf); err != nil {
			return fmt.Errorf("rendering lesson markdown: %w", err)
		}
		fmt.Println(buf.String())
		return nil
	}
	return fmt.Errorf("lesson %s not found in %s/%s", args[2], args[0], args[1])
}
