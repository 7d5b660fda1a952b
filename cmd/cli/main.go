package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/thisisjab/contactsearch/entity"
	"github.com/thisisjab/contactsearch/registry"
	"github.com/thisisjab/contactsearch/search"
)

// A developer tool: parse a contact search query and print its normalized
// text plus the compiled relational and index forms.
func main() {
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}),
	)

	var (
		orgID        = flag.Int64("org", 1, "organization id")
		anon         = flag.Bool("anon", false, "treat the org as anonymized")
		tzName       = flag.String("tz", "UTC", "org timezone")
		dayFirst     = flag.Bool("dayfirst", false, "parse dates day-first")
		registryPath = flag.String("registry", "", "path of a YAML field registry")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cli [flags] <query>")
		os.Exit(2)
	}
	text := flag.Arg(0)

	tz, err := time.LoadLocation(*tzName)
	if err != nil {
		logger.Error("invalid timezone.", "error", err)
		os.Exit(1)
	}

	org := &entity.Org{ID: *orgID, IsAnon: *anon, Timezone: tz, DayFirst: *dayFirst}

	parsed, err := search.ParseQuery(text, true, org.IsAnon)
	if err != nil {
		logger.Error("cannot parse query.", "error", err)
		os.Exit(1)
	}

	fmt.Printf("text: %s\n", parsed.AsText())
	fmt.Printf("tree: %s\n", parsed)
	fmt.Printf("dynamic group: %v\n", parsed.CanBeDynamicGroup())

	if *registryPath == "" {
		return
	}

	reg, err := registry.NewFile(logger, *registryPath)
	if err != nil {
		logger.Error("cannot load registry.", "error", err)
		os.Exit(1)
	}

	props, err := parsed.ResolveProps(reg, org)
	if err != nil {
		logger.Error("cannot resolve query properties.", "error", err)
		os.Exit(1)
	}

	compiled, err := parsed.AsSQL(org, props)
	if err != nil {
		logger.Error("cannot compile query to SQL.", "error", err)
		os.Exit(1)
	}
	fmt.Printf("sql: %s\n", compiled.Query)
	fmt.Printf("args: %v\n", compiled.Args)

	indexQuery, err := parsed.AsIndexQuery(org, props)
	if err != nil {
		logger.Error("cannot compile query for the index.", "error", err)
		os.Exit(1)
	}

	encoded, err := json.MarshalIndent(indexQuery, "", "  ")
	if err != nil {
		logger.Error("cannot encode index query.", "error", err)
		os.Exit(1)
	}
	fmt.Printf("index: %s\n", encoded)
}
