// rtpreprocess filters a raw retention-time dataset down to the allow-listed
// systems, aggregates replicate measurements and writes the aggregate table
// and the number of molecules per system.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/carbocation/rtorder"
	"github.com/carbocation/rtorder/measurement"
	"github.com/carbocation/rtorder/preprocess"

	_ "github.com/carbocation/rtorder/compileinfoprint"
)

const (
	AggregateFile = "rts.csv"
	CountsFile    = "n_molecules_per_system.tsv"
)

func main() {
	var configFile, baseDir, inputFile, thresholdsFile, outDir string
	var detailed bool
	var BQ = &measurement.WrappedBigQuery{
		Context: context.Background(),
	}
	var bqTable string

	flag.StringVar(&configFile, "config", "", "HCL file listing the base_dir, the allow-listed systems, the cutoff date and the per-system thresholds")
	flag.StringVar(&baseDir, "base", "", "Base directory of the dataset. Overrides base_dir of the config file.")
	flag.StringVar(&inputFile, "input", "", "Raw semicolon-delimited dataset. Relative paths are resolved against the base directory. May be compressed and may be a gs:// path.")
	flag.StringVar(&thresholdsFile, "thresholds", "", "(Optional) tab-delimited system/threshold table that overrides the thresholds of the config file. Relative paths are resolved against the base directory.")
	flag.StringVar(&outDir, "out", ".", "Output directory. Relative paths are resolved against the base directory.")
	flag.BoolVar(&detailed, "detailed", false, "Also write the replicate count and spread of every aggregate?")
	flag.StringVar(&BQ.Project, "bq-project", "", "(Optional) Google Cloud project. If set, the aggregates are also loaded into BigQuery.")
	flag.StringVar(&BQ.Database, "bq-dataset", "", "BigQuery dataset that receives the aggregates")
	flag.StringVar(&bqTable, "bq-table", "rts", "BigQuery table that receives the aggregates. It is replaced.")
	flag.Parse()

	if configFile == "" {
		log.Println("Please provide -config")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if inputFile == "" {
		log.Println("Please provide -input")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if BQ.Project != "" && BQ.Database == "" {
		log.Println("Please provide -bq-dataset when -bq-project is set")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Println("Started running at", time.Now())
	defer func() {
		log.Println("Completed at", time.Now())
	}()

	if err := run(BQ, bqTable, configFile, baseDir, inputFile, thresholdsFile, outDir, detailed); err != nil {
		if errors.Is(err, preprocess.ErrBasePathUnset) {
			log.Fatalln("The base directory is unset. Set base_dir in", configFile, "or pass -base.")
		}
		log.Fatalln(err)
	}
}

func run(BQ *measurement.WrappedBigQuery, bqTable, configFile, baseDir, inputFile, thresholdsFile, outDir string, detailed bool) error {
	ctx := BQ.Context

	cfg, err := preprocess.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}

	// Abort before touching any data if the base directory was never set.
	if err := cfg.Validate(); err != nil {
		return err
	}

	inputPath, err := cfg.Resolve(inputFile)
	if err != nil {
		return err
	}
	outPath, err := cfg.Resolve(outDir)
	if err != nil {
		return err
	}

	thresholdsPath := ""
	if thresholdsFile != "" {
		if thresholdsPath, err = cfg.Resolve(thresholdsFile); err != nil {
			return err
		}
	}

	client, err := rtorder.NewStorageClientIfNeeded(ctx, inputPath, outPath, thresholdsPath)
	if err != nil {
		return err
	}

	if thresholdsFile != "" {
		path, n, err := cfg.LoadThresholdsFile(ctx, thresholdsFile, client)
		if err != nil {
			return err
		}
		log.Printf("Read %d thresholds from %s\n", n, path)
	}

	for _, system := range cfg.ThresholdSystems() {
		log.Printf("Threshold for %s: %v min\n", system, cfg.Threshold(system))
	}

	ms, err := measurement.OpenRaw(ctx, inputPath, client)
	if err != nil {
		return err
	}
	log.Printf("Read %d measurements from %s\n", len(ms), inputPath)

	res, err := preprocess.Run(cfg, ms)
	if err != nil {
		return err
	}
	logTally(res.Tally)

	writeAggs := measurement.WriteAggregates
	if detailed {
		writeAggs = measurement.WriteAggregatesDetailed
	}
	if err := rtorder.WriteOutput(ctx, rtorder.JoinPath(outPath, AggregateFile), client, func(w io.Writer) error {
		return writeAggs(w, res.Aggregates)
	}); err != nil {
		return err
	}
	if err := rtorder.WriteOutput(ctx, rtorder.JoinPath(outPath, CountsFile), client, func(w io.Writer) error {
		return measurement.WriteCounts(w, res.Counts)
	}); err != nil {
		return err
	}

	for _, c := range res.Counts {
		log.Printf("%s: %d molecules\n", c.System, c.N)
	}

	if BQ.Project != "" {
		if err := measurement.ExportBigQuery(BQ, bqTable, res.Aggregates); err != nil {
			return err
		}
		log.Printf("Loaded %d aggregates into %s.%s.%s\n", len(res.Aggregates), BQ.Project, BQ.Database, bqTable)
	}

	return nil
}

func logTally(t preprocess.Tally) {
	log.Printf("Input rows: %d\n", t.Input)
	log.Printf("Dropped, system not allow-listed: %d\n", t.WrongSystem)
	log.Printf("Dropped, no date added: %d\n", t.Undated)
	log.Printf("Dropped, added after the cutoff: %d\n", t.AfterCutoff)
	log.Printf("Dropped, flagged suspect: %d\n", t.Suspect)
	log.Printf("Dropped, below the system threshold: %d\n", t.BelowThreshold)
	log.Printf("Molecule/system groups: %d\n", t.Groups)
	log.Printf("Dropped, replicates too far apart: %d\n", t.InconsistentGroups)
	log.Printf("Output rows: %d\n", t.Output)
}
