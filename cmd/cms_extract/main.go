// Command cms-extract reads a page (from stdin, a file, or a URL) and prints
// its editable content as a JSON record, section by section.
//
// Usage (stdin):
//
//	cat index.html | cms-extract
//
// Usage (file):
//
//	cms-extract -path public/index.html
//
// Usage (fetch URL):
//
//	cms-extract -url "https://example.com/" -timeout 10s
//
// The output is the persisted record shape, suitable for seeding a store or
// diffing against a saved record.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pagecms/internal/binder"
	"pagecms/internal/page"
)

func main() {
	os.Exit(run(
		context.Background(),
		os.Args[1:],
		os.Stdin,
		os.Stdout,
		os.Stderr,
		http.DefaultClient,
	))
}

// run is split out from main so we can unit test the command without
// spawning an OS process.
//
// It returns a Unix-style exit code:
//   - 0 for success
//   - 2 for usage errors
//   - 1 for operational/runtime errors
func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	httpClient *http.Client,
) int {
	fs := flag.NewFlagSet("cms-extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	urlFlag := fs.String("url", "", "Optional: fetch the page from a URL instead of stdin")
	pathFlag := fs.String("path", "", "Optional: read the page from a file instead of stdin")
	timeout := fs.Duration("timeout", 20*time.Second, "Timeout for -url fetch")
	compact := fs.Bool("compact", false, "Emit compact JSON instead of indented")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *urlFlag != "" && *pathFlag != "" {
		fmt.Fprintf(stderr, "-url and -path are mutually exclusive\n")
		return 2
	}

	loader := page.NewLoader(httpClient, *timeout)
	src, err := loader.Load(ctx, page.Input{
		URL:    *urlFlag,
		Path:   *pathFlag,
		Reader: stdin,
	})
	if err != nil {
		fmt.Fprintf(stderr, "load page: %v\n", err)
		return 1
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		fmt.Fprintf(stderr, "parse page: %v\n", err)
		return 1
	}

	record := binder.New(doc).ExtractAll().ToPersisted()

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if !*compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(record); err != nil {
		fmt.Fprintf(stderr, "encode json: %v\n", err)
		return 1
	}
	return 0
}
