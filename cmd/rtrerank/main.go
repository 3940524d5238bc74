// rtrerank re-ranks the candidates of a set of MS/MS spectra by integrating
// their MS/MS scores with predicted retention orders, and reports the top-k
// identification accuracies for each value of the order weight D.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/carbocation/rtorder"
	"github.com/carbocation/rtorder/rerank"

	_ "github.com/carbocation/rtorder/compileinfoprint"
)

func main() {
	var dir, ds, outFile, assignmentFile string
	var topK, cutoff, jobs int
	var weight rerank.MaxWeight

	flag.StringVar(&dir, "dir", "", "Candidate directory holding rts_msms.csv and scorings/<inchikey>.csv. May be a gs:// path.")
	flag.StringVar(&ds, "D", "0", "Comma-delimited weights of the retention order penalty. D=0 ranks by MS/MS score alone.")
	flag.IntVar(&topK, "topk", 1, "Number of successive shortest paths to extract")
	flag.IntVar(&cutoff, "cutoff", 0, "If >0, only the highest scoring cutoff candidates of each spectrum are considered")
	flag.BoolVar(&weight.UseSign, "use-sign", false, "Use only the sign of the order score difference?")
	flag.BoolVar(&weight.UseLog, "use-log", false, "Use log(1 + penalty)?")
	flag.Float64Var(&weight.EpsilonRT, "epsilon-rt", 0, "Spectra whose retention times differ by at most this many minutes carry no order information")
	flag.IntVar(&jobs, "jobs", 4, "Number of candidate files to read at once")
	flag.StringVar(&outFile, "out", "", "(Optional) file for the top-k accuracies. Defaults to stdout.")
	flag.StringVar(&assignmentFile, "assignment", "", "(Optional) file for the candidate assigned to each spectrum, using the first value of -D")
	flag.Parse()

	if dir == "" {
		log.Println("Please provide -dir")
		flag.PrintDefaults()
		os.Exit(1)
	}

	weights := []float64{}
	for _, v := range strings.Split(ds, ",") {
		d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			log.Fatalln("-D:", err)
		}
		weights = append(weights, d)
	}

	log.Println("Started running at", time.Now())
	defer func() {
		log.Println("Completed at", time.Now())
	}()

	ctx := context.Background()

	client, err := rtorder.NewStorageClientIfNeeded(ctx, dir, outFile, assignmentFile)
	if err != nil {
		log.Fatalln(err)
	}

	layers, err := rerank.LoadLayers(ctx, dir, client, jobs)
	if err != nil {
		log.Fatalln(err)
	}

	outcomes := make([]rerank.Outcome, 0, len(weights))
	for _, d := range weights {
		weight.D = d
		o, err := rerank.Rerank(layers, topK, cutoff, weight)
		if err != nil {
			log.Fatalln(err)
		}
		log.Printf("D=%v: top-1 accuracy %.2f%%\n", d, o.TopKAccuracy[0])
		outcomes = append(outcomes, o)
	}

	writeAccuracies := func(w io.Writer) error {
		return rerank.WriteAccuracies(w, weights, outcomes)
	}
	if outFile == "" {
		if err := writeAccuracies(os.Stdout); err != nil {
			log.Fatalln(err)
		}
	} else if err := rtorder.WriteOutput(ctx, outFile, client, writeAccuracies); err != nil {
		log.Fatalln(err)
	}

	if assignmentFile != "" {
		if err := rtorder.WriteOutput(ctx, assignmentFile, client, func(w io.Writer) error {
			return rerank.WriteAssignment(w, layers, outcomes[0])
		}); err != nil {
			log.Fatalln(err)
		}
	}
}
