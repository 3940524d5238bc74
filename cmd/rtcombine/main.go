// rtcombine combines, per result category, every registered result file of
// one parameterization of the evaluation into a single table plus a summary of
// its numeric columns.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/carbocation/rtorder"
	"github.com/carbocation/rtorder/combine"
	"github.com/carbocation/rtorder/manifest"
	"github.com/carbocation/rtorder/results"

	_ "github.com/carbocation/rtorder/compileinfoprint"
)

func main() {
	var dbPath, baseDir, outDir, categories string
	flags := make(map[string]*string, len(manifest.BuildFlags))

	flag.StringVar(&dbPath, "db", "", "SQLite manifest of the result files")
	flag.StringVar(&baseDir, "base", "", "Directory that the manifest paths are relative to. May be a gs:// path.")
	flag.StringVar(&outDir, "out", "", "Directory for <category>.csv and <category>_summary.tsv. May be a gs:// path.")
	flag.StringVar(&categories, "categories", strings.Join(manifest.Categories, ","), "Comma-delimited result categories to combine")
	for _, f := range manifest.BuildFlags {
		def := ""
		if f == manifest.FlagFEATSCAL {
			def = manifest.DefaultFeatureScaling
		}
		flags[f] = flag.String(f, def, "(Optional) only combine runs built with this "+f+" value")
	}
	flag.Parse()

	if dbPath == "" {
		log.Println("Please provide -db")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if outDir == "" {
		log.Println("Please provide -out")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Println("Started running at", time.Now())
	defer func() {
		log.Println("Completed at", time.Now())
	}()

	settings := make(map[string]string, len(flags))
	for k, v := range flags {
		settings[k] = *v
	}
	flavor, err := combine.Flavor(settings)
	if err != nil {
		log.Fatalln(err)
	}
	log.Println("Combining runs with", flavor)

	ctx := context.Background()

	if baseDir, err = rtorder.ExpandHome(baseDir); err != nil {
		log.Fatalln(err)
	}

	client, err := rtorder.NewStorageClientIfNeeded(ctx, baseDir, outDir)
	if err != nil {
		log.Fatalln(err)
	}

	m, err := manifest.Open(dbPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer m.Close()

	loader := results.Loader{Manifest: m, BaseDir: baseDir, Storage: client}

	cats := []string{}
	for _, c := range strings.Split(categories, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}

	written, err := combine.Run(ctx, loader, cats, flavor, outDir)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Wrote %d categories: %s\n", len(written), strings.Join(written, ", "))
}
