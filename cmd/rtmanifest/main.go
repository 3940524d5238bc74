// rtmanifest maintains the manifest of evaluation result files: it registers
// single files, imports trees of files with legacy flag-encoded names and
// lists what is registered.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/carbocation/rtorder"
	"github.com/carbocation/rtorder/manifest"
	"gopkg.in/guregu/null.v3"

	_ "github.com/carbocation/rtorder/compileinfoprint"
)

var (
	BufferSize = 4096 * 8
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

func main() {
	defer STDOUT.Flush()

	var dbPath, importDir, addPath, category, predictor, kernel, featureType, flavor, pairParams string
	var list bool

	flag.StringVar(&dbPath, "db", "", "SQLite manifest. Created if it does not exist.")
	flag.StringVar(&importDir, "import", "", "Directory tree, or gs:// prefix, of result files with legacy names such as accuracies_embso=True_featscal=noscaling.csv")
	flag.StringVar(&addPath, "add", "", "Result file to register, relative to the base directory used when loading")
	flag.StringVar(&category, "category", "", fmt.Sprintf("Category of the file given to -add, or the category to -list. One of: %s", strings.Join(manifest.Categories, ", ")))
	flag.StringVar(&predictor, "predictor", "", "Molecular feature representation that produced the results, e.g., maccs")
	flag.StringVar(&kernel, "kernel", "", "Kernel that produced the results, e.g., tanimoto")
	flag.StringVar(&featureType, "feature-type", "", "(Optional) feature type of the results, e.g., difference")
	flag.StringVar(&flavor, "flavor", "", "Build flags of the run, as comma-delimited key=value pairs, e.g., EMBSO=True,SYSSET=10")
	flag.StringVar(&pairParams, "pair-params", "", "Learning pair parameters of the run, as comma-delimited key=value pairs")
	flag.BoolVar(&list, "list", false, "List the registered files?")
	flag.Parse()

	if dbPath == "" {
		log.Println("Please provide -db")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if importDir == "" && addPath == "" && !list {
		log.Println("Please provide -import, -add or -list")
		flag.PrintDefaults()
		os.Exit(1)
	}

	m, err := manifest.Open(dbPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer m.Close()

	if importDir != "" {
		n, err := importResults(importDir, m, predictor, kernel)
		if err != nil {
			log.Fatalln(err)
		}
		log.Printf("Imported %d result files from %s\n", n, importDir)
	}

	if addPath != "" {
		rec := manifest.Record{
			Path:      addPath,
			Category:  category,
			Predictor: predictor,
			Kernel:    kernel,
		}
		if featureType != "" {
			rec.FeatureType = null.StringFrom(featureType)
		}
		if rec.Flavor, err = manifest.ParseParams(flavor); err != nil {
			log.Fatalln("-flavor:", err)
		}
		if rec.PairParams, err = manifest.ParseParams(pairParams); err != nil {
			log.Fatalln("-pair-params:", err)
		}

		id, err := m.Add(rec)
		if err != nil {
			log.Fatalln(err)
		}
		log.Printf("Registered %s as record %d\n", addPath, id)
	}

	if list {
		recs, err := m.Find(manifest.Query{Category: category, Predictor: predictor, Kernel: kernel})
		if err != nil {
			log.Fatalln(err)
		}

		fmt.Fprintln(STDOUT, strings.Join([]string{"path", "category", "predictor", "kernel", "feature_type", "flavor", "pair_params"}, "\t"))
		for _, rec := range recs {
			fmt.Fprintln(STDOUT, strings.Join([]string{
				rec.Path,
				rec.Category,
				rec.Predictor,
				rec.Kernel,
				rec.FeatureType.ValueOrZero(),
				rec.Flavor.String(),
				rec.PairParams.String(),
			}, "\t"))
		}
	}
}

func importResults(dir string, m *manifest.Manifest, predictor, kernel string) (int, error) {
	if !rtorder.IsGoogleStorage(dir) {
		return m.ImportDir(dir, predictor, kernel)
	}

	ctx := context.Background()
	client, err := rtorder.NewStorageClientIfNeeded(ctx, dir)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	paths, err := rtorder.ListGoogleStorage(ctx, dir, client)
	if err != nil {
		return 0, err
	}

	return m.ImportPaths(dir, paths, predictor, kernel)
}
