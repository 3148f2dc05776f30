// Command cms runs content edits against a page and persists the result.
//
// Single-page mode loads the configured page, overlays the persisted content
// record, applies the requested edits through the guarded editing path, and
// optionally saves and exports:
//
//	cms -config cms.json -user admin -pass s3cret \
//	    -save -export out/index.html \
//	    hero.title="New <b>headline</b>" contact.phone="01 02 03 04 05"
//
// Media uploads attach a file to a field:
//
//	cms -config cms.json -user admin -pass s3cret -media hero_image=team.png -save
//
// Batch mode stamps the persisted record across a directory of pages:
//
//	cms -config cms.json -apply
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pagecms/internal/binder"
	"pagecms/internal/config"
	"pagecms/internal/metrics"
	"pagecms/internal/metrics/datadog"
	"pagecms/internal/model"
	"pagecms/internal/page"
	"pagecms/internal/secsim"
	"pagecms/internal/session"
	"pagecms/internal/store"

	// register all persistence backends with the store factory.
	_ "pagecms/internal/store/all"
)

func main() {
	var (
		cfgPath  string
		user     string
		pass     string
		mediaArg string
		exportTo string
		validate bool
		apply    bool
		save     bool
	)

	flag.StringVar(&cfgPath, "config", "cms.json", "config JSON path")
	flag.StringVar(&user, "user", "", "username for the editing session")
	flag.StringVar(&pass, "pass", "", "password for the editing session")
	flag.StringVar(&mediaArg, "media", "", "media upload as field=path")
	flag.StringVar(&exportTo, "export", "", "write the edited page (with embedded content) to this file")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&apply, "apply", false, "batch mode: stamp the saved record across site.pages_dir")
	flag.BoolVar(&save, "save", false, "persist the content record after editing")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	initMetrics(cfg.Metrics, *verbose)
	defer func() {
		if err := metrics.Close(); err != nil {
			log.Printf("metrics: close/flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		fatalf("open store: %v", err)
	}
	defer st.Close()

	if apply {
		if cfg.Site.PagesDir == "" {
			fatalf("-apply requires site.pages_dir in the config")
		}
		record, err := st.Load(ctx)
		if err != nil {
			fatalf("load record: %v", err)
		}
		stats, err := page.ApplyDir(ctx, cfg.Site.PagesDir, record, page.ApplyOptions{
			OutDir:  cfg.Site.OutDir,
			Workers: cfg.Site.Workers,
		})
		if err != nil {
			log.Fatalf("apply: %v", err)
		}
		log.Printf("apply: files=%d applied=%d missing=%d skipped=%d in %s",
			stats.Files, stats.Applied, stats.Missing, stats.Skipped,
			time.Since(start).Truncate(time.Millisecond))
		return
	}

	if err := runSession(ctx, cfg, sessionArgs{
		user:     user,
		pass:     pass,
		sets:     flag.Args(),
		media:    mediaArg,
		exportTo: exportTo,
		save:     save,
		verbose:  *verbose,
	}, st); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

type sessionArgs struct {
	user     string
	pass     string
	sets     []string
	media    string
	exportTo string
	save     bool
	verbose  bool
}

// logNotifier surfaces session notifications on the process log.
type logNotifier struct{}

func (logNotifier) Notify(msg string, kind session.NoticeKind) {
	if kind == session.NoticeError {
		log.Printf("notice: ERROR %s", msg)
		return
	}
	log.Printf("notice: %s", msg)
}

func runSession(ctx context.Context, cfg config.Config, args sessionArgs, st store.Store) error {
	if cfg.Site.Page == "" {
		return fmt.Errorf("config has no site.page; nothing to edit")
	}

	loader := page.NewLoader(nil, 20*time.Second)
	src, err := loader.Load(ctx, page.Input{URL: urlOf(cfg.Site.Page), Path: pathOf(cfg.Site.Page)})
	if err != nil {
		return fmt.Errorf("load page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	b := binder.New(doc)
	m := b.ExtractAll()
	m.SnapshotBaseline()

	// Saved content wins over what the page currently shows.
	record, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	m.MergeFrom(model.FromPersisted(record))
	if applied, missing := b.ApplyAll(m); args.verbose {
		log.Printf("overlay: applied=%d missing=%d", applied, missing)
	}

	sessions := secsim.NewSessions(cfg.Auth)
	if args.user != "" || args.pass != "" {
		if err := sessions.Login(args.user, args.pass); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	ctrl := session.New(session.Options{
		Model:  m,
		Binder: b,
		Auth:   sessions,
		Limits: secsim.NewRateLimiter(),
		Notify: logNotifier{},
	})

	for _, set := range args.sets {
		section, field, value, err := parseSet(set)
		if err != nil {
			return err
		}
		outcome := ctrl.ProposeEdit(section, field, value)
		if args.verbose {
			log.Printf("edit: %s.%s outcome=%s", section, field, outcome)
		}
		if outcome != session.OutcomeApplied {
			return fmt.Errorf("edit %s.%s: %s", section, field, outcome)
		}
	}

	if args.media != "" {
		if err := uploadMedia(ctrl, args.media); err != nil {
			return err
		}
	}

	if args.save {
		err := st.Save(ctx, ctrl.Model().ToPersisted())
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IncCounter("cms_saves_total", 1, metrics.Labels{"backend": cfg.Store.Kind, "status": status})
		if err != nil {
			return fmt.Errorf("save record: %w", err)
		}
		log.Printf("saved %d fields to %s store", ctrl.Model().Len(), cfg.Store.Kind)
	}

	if args.exportTo != "" {
		out, err := b.Export(ctrl.Model())
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := os.WriteFile(args.exportTo, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		log.Printf("exported page to %s", args.exportTo)
	}

	return nil
}

// uploadMedia runs one field=path upload and waits for its completion.
func uploadMedia(ctrl *session.Controller, arg string) error {
	field, path, ok := strings.Cut(arg, "=")
	if !ok || field == "" || path == "" {
		return fmt.Errorf("malformed -media %q, want field=path", arg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat media: %w", err)
	}

	up := session.Upload{
		Name: info.Name(),
		MIME: mimeOf(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var uploadErr error
	uploader := session.NewMediaUploader(ctrl)
	if err := uploader.Upload(field, up, func(err error) {
		uploadErr = err
		wg.Done()
	}); err != nil {
		return fmt.Errorf("upload %s: %w", field, err)
	}
	wg.Wait()
	if uploadErr != nil {
		return fmt.Errorf("upload %s: %w", field, uploadErr)
	}
	return nil
}

// mimeOf maps a file extension to the upload MIME types the session accepts.
func mimeOf(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}

// parseSet splits a section.field=value argument.
func parseSet(arg string) (section, field, value string, err error) {
	addr, value, ok := strings.Cut(arg, "=")
	if !ok {
		return "", "", "", fmt.Errorf("malformed edit %q, want section.field=value", arg)
	}
	section, field, ok = strings.Cut(addr, ".")
	if !ok || section == "" || field == "" {
		return "", "", "", fmt.Errorf("malformed address %q, want section.field", addr)
	}
	return section, field, value, nil
}

func urlOf(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return ""
}

func pathOf(p string) string {
	if urlOf(p) != "" {
		return ""
	}
	return p
}

// initMetrics wires the configured backend: flag config → env → disabled.
func initMetrics(mc config.Metrics, verbose bool) {
	backendName := mc.Backend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	switch backendName {
	case "datadog":
		tags := datadog.ParseTagsCSV(mc.Tags)
		if env := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")); len(env) > 0 {
			tags = append(tags, env...)
		}
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName:    mc.Job,
			Tags:       tags,
			FlushEvery: time.Duration(mc.FlushSeconds) * time.Second,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog job=%q tags=%v", mc.Job, tags)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
