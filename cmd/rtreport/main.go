// rtreport loads registered results of one model configuration, summarizes a
// measure per group and, optionally, tests whether two settings of a build
// flag differ. Tables go to stdout; a workbook and a chart can be written
// alongside.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/carbocation/rtorder"
	"github.com/carbocation/rtorder/manifest"
	"github.com/carbocation/rtorder/report"
	"github.com/carbocation/rtorder/results"
	"gopkg.in/guregu/null.v3"

	_ "github.com/carbocation/rtorder/compileinfoprint"
)

var (
	BufferSize = 4096 * 8
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

func main() {
	defer STDOUT.Flush()

	var dbPath, baseDir, category, measures, predictor, kernel, featureType, pairParams, flavor string
	var groupBy, by, settingA, settingB, xlsxPath, pngPath string
	var mu0 float64

	flag.StringVar(&dbPath, "db", "", "SQLite manifest of the result files")
	flag.StringVar(&baseDir, "base", "", "Directory that the manifest paths are relative to. May be a gs:// path.")
	flag.StringVar(&category, "category", manifest.CategoryAccuracies, "Result category to load")
	flag.StringVar(&measures, "measures", "", "Comma-delimited measure columns to load. If empty, every numeric column is loaded.")
	flag.StringVar(&predictor, "predictor", "", "(Optional) molecular feature representation, e.g., maccs")
	flag.StringVar(&kernel, "kernel", "", "(Optional) kernel, e.g., tanimoto")
	flag.StringVar(&featureType, "feature-type", "", "(Optional) feature type, e.g., difference")
	flag.StringVar(&pairParams, "pair-params", "", "(Optional) learning pair parameters as comma-delimited key=value pairs. If empty, any are accepted.")
	flag.StringVar(&flavor, "flavor", "", "(Optional) build flags as comma-delimited key=value pairs")
	flag.StringVar(&groupBy, "group", "", "Comma-delimited columns to summarize by, in addition to the measure, e.g., target_system")
	flag.StringVar(&by, "by", "", "(Optional) column whose values -a and -b are compared with a Welch t-test, e.g., EMBSO")
	flag.StringVar(&settingA, "a", "", "First value of -by")
	flag.StringVar(&settingB, "b", "", "Second value of -by")
	flag.Float64Var(&mu0, "mu0", 0, "Difference of means under the null hypothesis")
	flag.StringVar(&xlsxPath, "xlsx", "", "(Optional) workbook to write the loaded data and the tables to")
	flag.StringVar(&pngPath, "png", "", "(Optional) bar chart of the group means")
	flag.Parse()

	if dbPath == "" {
		log.Println("Please provide -db")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if by != "" && (settingA == "" || settingB == "") {
		log.Println("Please provide -a and -b together with -by")
		flag.PrintDefaults()
		os.Exit(1)
	}

	req := results.Request{
		Category:  category,
		Measures:  splitList(measures),
		Predictor: predictor,
		Kernel:    kernel,
	}
	if featureType != "" {
		req.FeatureType = null.StringFrom(featureType)
	}

	var err error
	if req.Flavor, err = manifest.ParseParams(flavor); err != nil {
		log.Fatalln("-flavor:", err)
	}
	if pairParams != "" {
		if req.PairParams, err = manifest.ParseParams(pairParams); err != nil {
			log.Fatalln("-pair-params:", err)
		}
	}

	ctx := context.Background()

	if baseDir, err = rtorder.ExpandHome(baseDir); err != nil {
		log.Fatalln(err)
	}
	client, err := rtorder.NewStorageClientIfNeeded(ctx, baseDir, xlsxPath, pngPath)
	if err != nil {
		log.Fatalln(err)
	}

	m, err := manifest.Open(dbPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer m.Close()

	data, err := results.Loader{Manifest: m, BaseDir: baseDir, Storage: client}.Load(ctx, req)
	if err != nil {
		log.Fatalln(err)
	}
	if len(data.Rows) == 0 {
		log.Fatalln("No results match the query")
	}
	log.Printf("Loaded %d values\n", len(data.Rows))

	groups := append(splitList(groupBy), "measure")

	summaries, err := report.Summarize(data, groups, "value")
	if err != nil {
		log.Fatalln(err)
	}
	summaryTable := report.SummaryTable(groups, summaries)
	if err := results.WriteTable(STDOUT, summaryTable, '\t'); err != nil {
		log.Fatalln(err)
	}

	sheets := []report.Sheet{
		{Name: "data", Table: data},
		{Name: "summary", Table: summaryTable},
	}

	if by != "" {
		comparisons, err := report.Compare(data, groups, by, settingA, settingB, "value", mu0)
		if err != nil {
			log.Fatalln(err)
		}
		for _, c := range comparisons {
			if c.Err != nil {
				log.Printf("Cannot test %s: %v\n", strings.Join(c.Group, " "), c.Err)
			}
		}

		comparisonTable := report.ComparisonTable(groups, comparisons)
		STDOUT.WriteString("\n")
		if err := results.WriteTable(STDOUT, comparisonTable, '\t'); err != nil {
			log.Fatalln(err)
		}
		sheets = append(sheets, report.Sheet{Name: "ttest_" + by, Table: comparisonTable})
	}

	if xlsxPath != "" {
		if err := rtorder.WriteOutput(ctx, xlsxPath, client, func(w io.Writer) error {
			return report.WriteXLSX(w, sheets)
		}); err != nil {
			log.Fatalln(err)
		}
		log.Println("Wrote", xlsxPath)
	}

	if pngPath != "" {
		if err := rtorder.WriteOutput(ctx, pngPath, client, func(w io.Writer) error {
			return report.PlotMeans(w, category, summaries)
		}); err != nil {
			log.Fatalln(err)
		}
		log.Println("Wrote", pngPath)
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}
