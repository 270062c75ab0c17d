package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeanpaul/loci/internal/associate"
	"github.com/jeanpaul/loci/internal/config"
	"github.com/jeanpaul/loci/internal/content"
	"github.com/jeanpaul/loci/internal/exchange"
	"github.com/jeanpaul/loci/internal/headless"
	"github.com/jeanpaul/loci/internal/health"
	"github.com/jeanpaul/loci/internal/storage"
	"github.com/jeanpaul/loci/internal/storage/sqlite"
	"github.com/jeanpaul/loci/internal/tui"
)

func cmdPalaces(ctx context.Context, e *env) {
	palaces, err := e.store.ListPalaces(ctx, e.sid)
	if err != nil {
		fatal("%s", err)
	}
	if len(palaces) == 0 {
		fmt.Println(tui.HelpStyle.Render("  No palaces in this session"))
		return
	}
	for _, p := range palaces {
		items, err := e.store.GetItems(ctx, e.sid, p.ID)
		if err != nil {
			fatal("%s", err)
		}
		fmt.Printf("  %s  %s\n", tui.PalaceNameStyle.Render(p.DisplayName), strings.Join(items, ", "))
	}
}

func cmdAddPalace(ctx context.Context, e *env, name string, items []string) {
	if _, err := e.workflow(false).CreatePalace(ctx, e.sid, name, items); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			fatal("palace %q already exists", name)
		}
		fatal("%s", err)
	}
	fmt.Println(tui.SuccessStyle.Render(fmt.Sprintf("  ✓ Added palace %s (%d items)", name, len(items))))
}

func cmdCategories(ctx context.Context, e *env) {
	cats, err := e.store.ListCategories(ctx, e.sid)
	if err != nil {
		fatal("%s", err)
	}
	for _, c := range cats {
		fmt.Println("  " + c.DisplayName)
	}
}

func cmdAddCategory(ctx context.Context, e *env, name string) {
	if _, err := e.store.AddCategory(ctx, e.sid, strings.TrimSpace(name)); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			fatal("category %q already exists", name)
		}
		fatal("%s", err)
	}
	fmt.Println(tui.SuccessStyle.Render("  ✓ Added category " + name))
}

func cmdGenerate(ctx context.Context, e *env, args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	palace := fs.String("palace", "", "Palace name (created when missing)")
	category := fs.String("category", "", "Category name (created when missing)")
	topic := fs.String("topic", "", "Topic")
	items := fs.String("items", "", "Comma-separated items for a new palace")
	points := fs.String("points", "", "Semicolon-separated key points (skips the bullet point request)")
	_ = fs.Parse(args)

	in := associate.Input{
		Palace:   *palace,
		Category: *category,
		Topic:    *topic,
		Items:    split(*items, ","),
		Points:   split(*points, ";"),
	}
	if err := headless.Run(ctx, e.workflow(true), e.sid, in, os.Stdout, os.Stderr); err != nil {
		fatal("%s", err)
	}
}

func cmdView(ctx context.Context, e *env, category, topic string) {
	catID, err := e.store.GetCategoryIDByDisplayName(ctx, e.sid, category)
	if errors.Is(err, storage.ErrNotFound) {
		fatal("no category %q in this session", category)
	}
	if err != nil {
		fatal("%s", err)
	}
	assocs, err := e.store.ListAssociations(ctx, e.sid, catID)
	if err != nil {
		fatal("%s", err)
	}

	var md strings.Builder
	for _, a := range assocs {
		if topic != "" && a.Topic != topic {
			continue
		}
		palace, err := e.store.GetDisplayName(ctx, e.sid, a.PalaceID)
		if err != nil {
			palace = "?"
		}
		fmt.Fprintf(&md, "## %s\n\n*palace %s*\n\n%s\n", a.Topic, palace, content.Markdown(a.Content))
	}
	if md.Len() == 0 {
		fmt.Println(tui.HelpStyle.Render("  Nothing to show"))
		return
	}
	if !isTerminal() {
		fmt.Print(md.String())
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fatal("%s", err)
	}
	out, err := r.Render(md.String())
	if err != nil {
		fatal("%s", err)
	}
	fmt.Print(out)
}

func cmdExport(ctx context.Context, e *env, path string) {
	doc, err := exchange.Export(ctx, e.store, e.sid)
	if err != nil {
		fatal("export: %s", err)
	}
	if err := exchange.WriteFile(path, doc); err != nil {
		fatal("export: %s", err)
	}
	fmt.Println(tui.SuccessStyle.Render(fmt.Sprintf("  ✓ Exported %d palaces and %d categories to %s",
		len(doc.Palaces), len(doc.Categories), path)))
}

func cmdImport(ctx context.Context, e *env, pattern string) {
	reports, err := exchange.ImportFiles(ctx, e.store, e.sid, pattern)
	for _, r := range reports {
		fmt.Printf("  %s\n    %s\n", tui.PalaceNameStyle.Render(r.Path), r.Report)
		for _, name := range r.Report.SkippedPalaces {
			fmt.Println(tui.WarningStyle.Render("    skipped palace " + name))
		}
		for _, name := range r.Report.SkippedCategories {
			fmt.Println(tui.WarningStyle.Render("    skipped category " + name))
		}
	}
	if err != nil {
		fatal("import: %s", err)
	}
}

func cmdVerify(ctx context.Context, e *env, path string) {
	doc, err := exchange.ReadFile(path)
	if err != nil {
		fatal("%s", err)
	}
	scratch, err := sqlite.OpenMemory()
	if err != nil {
		fatal("%s", err)
	}
	defer scratch.Close()

	diff, err := exchange.Verify(ctx, doc, scratch)
	if err != nil {
		fatal("%s", err)
	}
	if diff == "" {
		fmt.Println(tui.SuccessStyle.Render("  ✓ " + path + " round-trips without loss"))
		return
	}
	fmt.Print(diff)
	e.log.Warn("document does not round-trip", "path", path)
	os.Exit(1)
}

func cmdDoctor(ctx context.Context, e *env) {
	fmt.Print(tui.BannerStyle.Render(tui.Banner))
	fmt.Println(tui.BannerStyle.Render("  Health Check"))
	fmt.Println()

	names := make([]string, 0, len(e.cfg.Providers))
	for name := range e.cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var statuses []health.Status
	var optional []health.Status
	for _, name := range names {
		s := health.Provider(ctx, name, e.cfg.Providers[name])
		if name == e.cfg.DefaultProvider {
			s.Component += " (default)"
			statuses = append(statuses, s)
		} else {
			optional = append(optional, s)
		}
	}
	statuses = append(statuses, health.Store(ctx, e.store, e.cfg.Database.Path))

	ok := health.Print(os.Stdout, statuses)
	fmt.Println(tui.HelpStyle.Render("  optional:"))
	health.Print(os.Stdout, optional)

	def := e.cfg.Providers[e.cfg.DefaultProvider]
	if err := health.Model(ctx, def, modelName(e.cfg, e.cfg.DefaultProvider, e.flags.model)); err != nil {
		fmt.Println(tui.WarningStyle.Render("  " + err.Error()))
	}

	fmt.Println()
	if !ok {
		fmt.Println(tui.ErrorStyle.Render("  The default provider or the database is not usable."))
		fmt.Println(tui.HelpStyle.Render("  For local models, start Ollama: ollama serve"))
		os.Exit(1)
	}
	fmt.Println(tui.SuccessStyle.Render("  All required services healthy!"))
}

func cmdConfig(gf globalFlags, args []string) {
	if len(args) == 0 || args[0] != "init" {
		fatal("usage: loci config init [--force]")
	}
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing file")
	_ = fs.Parse(args[1:])

	path := gf.config
	if path == "" {
		path = config.Path()
	}
	if err := config.WriteDefault(path, *force); err != nil {
		fatal("%s", err)
	}
	fmt.Println(tui.SuccessStyle.Render("  ✓ Wrote " + path))
}

func split(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
