// Command ltbench exercises the block engine's external sort: it fills
// one block with random varchar-keyed rows, sorts it, and reports
// whether the result is correctly ordered along with timing, reporting
// per-cycle nanoseconds the way a microbenchmark harness would.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/ltt-engine/blockstore/block"
	"github.com/ltt-engine/blockstore/schema"
	blocksort "github.com/ltt-engine/blockstore/sort"
)

func testCycles(n int, label string, testSize int, cb func()) {
	before := time.Now()
	for i := 0; i < n; i++ {
		cb()
	}
	after := time.Since(before)

	perCycle := after.Nanoseconds() / int64(testSize)
	log.Printf(" %s per cycle : %d/ns", label, perCycle)
}

func buildSchema(inlinePadding int) *schema.TupleSchema {
	cols := []schema.Column{{Name: "key", Type: schema.ColumnVarchar}}
	for i := 0; i < inlinePadding; i++ {
		cols = append(cols, schema.Column{Name: fmt.Sprintf("pad%d", i), Type: schema.ColumnInt8})
	}
	return schema.NewTupleSchema(cols)
}

func randomString(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(buf)
}

func fillBlock(b *block.Block, s *schema.TupleSchema, varcharLen int) int {
	count := 0
	for {
		row := block.NewStandaloneTuple(s)
		row.SetActive()
		row.SetString(0, randomString(varcharLen))
		for i := 1; i < s.ColumnCount(); i++ {
			row.SetInt8(i, int8(count))
		}
		if !b.Insert(row) {
			return count
		}
		count++
	}
}

func verifySorted(b *block.Block) bool {
	for i := 1; i < b.ActiveTupleCount(); i++ {
		if b.Tuple(i-1).String(0) > b.Tuple(i).String(0) {
			return false
		}
	}
	return true
}

func main() {
	numSorts := flag.Int("n", 1, "number of sort iterations to run")
	varcharLen := flag.Int("v", 256, "width in bytes of the variable-length key column")
	inlinePad := flag.Int("i", 64, "number of extra 1-byte inline padding columns")
	help := flag.Bool("h", false, "print usage and exit")
	flag.Parse()

	if *help {
		flag.Usage()
		os.Exit(0)
	}

	s := buildSchema(*inlinePad)
	less := func(a, b block.TupleRef) bool { return a.String(0) < b.String(0) }

	var lastBlock *block.Block
	var tuplesPerRun int

	testCycles(*numSorts, "sort", *numSorts, func() {
		b := block.New(uuid.New(), s)
		tuplesPerRun = fillBlock(b, s, *varcharLen)
		blocksort.SortBlock(b, less)
		lastBlock = b
	})

	if lastBlock == nil || !verifySorted(lastBlock) {
		color.Red("FAIL: output block is not sorted")
		os.Exit(1)
	}
	if got := lastBlock.ActiveTupleCount(); got != tuplesPerRun {
		color.Red("FAIL: sorted block holds %d tuples, want %d", got, tuplesPerRun)
		os.Exit(1)
	}

	color.Green("PASS: %d tuples sorted per run, %d runs", tuplesPerRun, *numSorts)
}
