// Package measurement reads and writes retention-time tables: the raw,
// per-injection measurements and the per-system aggregates derived from them.
package measurement

import (
	"cloud.google.com/go/civil"
)

// Measurement is one recorded retention time of one molecule on one
// chromatographic system.
type Measurement struct {
	InChI      string
	System     string
	RecordedRT float64 // minutes
	Suspect    bool
	DateAdded  civil.Date

	// Line is the 1-based line of the source file; 0 if constructed in code.
	Line int
}

// Aggregate summarizes all retained replicates of a molecule on a system.
type Aggregate struct {
	InChI     string
	System    string
	RT        float64 // minimum over replicates
	NRep      int
	SpreadPct float64 // (max-min)/min*100
}

// SystemCount is the number of distinct molecules retained for a system.
type SystemCount struct {
	System string
	N      int
}

// Key identifies an aggregation group.
type Key struct {
	InChI  string
	System string
}

func (m Measurement) Key() Key {
	return Key{InChI: m.InChI, System: m.System}
}

func (a Aggregate) Key() Key {
	return Key{InChI: a.InChI, System: a.System}
}
