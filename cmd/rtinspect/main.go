// rtinspect prints per-system diagnostics of a raw retention-time dataset, or
// serves them over HTTP so that thresholds can be chosen interactively. It
// never modifies the data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/carbocation/rtorder"
	"github.com/carbocation/rtorder/inspect"
	"github.com/carbocation/rtorder/measurement"

	_ "github.com/carbocation/rtorder/compileinfoprint"
)

func main() {
	var inputFile, system string
	var bins, port int
	var serve bool

	flag.StringVar(&inputFile, "input", "", "Raw semicolon-delimited dataset. May be compressed and may be a gs:// path.")
	flag.StringVar(&system, "system", "", "(Optional) print a histogram of the retention times of this system")
	flag.IntVar(&bins, "bins", 20, "Number of histogram bins")
	flag.BoolVar(&serve, "serve", false, "Serve the diagnostics over HTTP instead of printing them?")
	flag.IntVar(&port, "port", 9019, "Port for the HTTP server")
	flag.Parse()

	if inputFile == "" {
		log.Println("Please provide -input")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	client, err := rtorder.NewStorageClientIfNeeded(ctx, inputFile)
	if err != nil {
		log.Fatalln(err)
	}

	dataset, err := inspect.NewDataset(inputFile, func() ([]measurement.Measurement, error) {
		return measurement.OpenRaw(ctx, inputFile, client)
	})
	if err != nil {
		log.Fatalln(err)
	}

	if !serve {
		if err := inspect.Fprint(os.Stdout, dataset.Stats()); err != nil {
			log.Fatalln(err)
		}
		if system != "" {
			fmt.Println()
			if err := inspect.FprintHistogram(os.Stdout, dataset.Rows(system), system, bins); err != nil {
				log.Fatalln(err)
			}
		}
		return
	}

	errors := make(chan error, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Println("Starting HTTP server on port", port)
		errors <- http.ListenAndServe(fmt.Sprintf(`:%d`, port), inspect.Router(dataset))
	}()

	select {
	case sigl := <-sig:
		log.Printf("Exit: %s\n", sigl.String())
	case err := <-errors:
		log.Println("Exiting due to error", err)
		os.Exit(1)
	}
}
