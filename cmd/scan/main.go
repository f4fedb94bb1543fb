// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command scan turns per-block partial counts into exclusive prefix offsets.
//
// Counts are taken from the arguments, or from stdin when none are given:
//
//	scan -wg 4 -ept 2 1 2 3 4 5 6 7 8
//	0 1 3 6 10 15 21 28
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/LynnColeArt/radixscan"
	"github.com/LynnColeArt/radixscan/gpu"
)

func main() {
	var (
		wg      = flag.Int("wg", radixscan.DefaultWorkgroupSize, "Lanes per execution group (power of two)")
		ept     = flag.Int("ept", radixscan.DefaultElementsPerThread, "Values owned by each lane")
		n       = flag.Int("n", -1, "Number of meaningful counts (default: all given)")
		backend = flag.String("backend", "cpu", "Execution backend: cpu or webgpu")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("scan: ")
	gpu.Debug = *verbose

	counts, err := readCounts(flag.Args(), os.Stdin)
	if err != nil {
		log.Fatalf("Failed to read counts: %v", err)
	}

	numScanValues := *n
	if numScanValues < 0 {
		numScanValues = len(counts)
	}

	sizing := radixscan.Sizing{WorkgroupSize: *wg, ElementsPerThread: *ept}
	if *verbose {
		dev := radixscan.GetDevice()
		log.Printf("sizing %v (block %d), %d counts, n=%d", sizing, sizing.BlockSize(), len(counts), numScanValues)
		log.Printf("device %s, %d cores, %s", dev.Name, dev.NumCores, dev.Features)
	}

	offsets, err := run(*backend, sizing, counts, numScanValues)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	out := make([]string, numScanValues)
	for i, v := range offsets[:numScanValues] {
		out[i] = strconv.FormatUint(uint64(v), 10)
	}
	fmt.Println(strings.Join(out, " "))
}

func run(backend string, sizing radixscan.Sizing, counts []uint32, numScanValues int) ([]uint32, error) {
	switch backend {
	case "cpu":
		return radixscan.ExclusiveScanUint32(counts, numScanValues, sizing)
	case "webgpu":
		p, err := gpu.NewScanPipeline(sizing)
		if err != nil {
			return nil, err
		}
		defer p.Cleanup()
		return p.Run(counts, numScanValues)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// readCounts parses unsigned 32-bit counts from args, or from r if args is empty
func readCounts(args []string, r io.Reader) ([]uint32, error) {
	fields := args
	if len(fields) == 0 {
		scanner := bufio.NewScanner(r)
		scanner.Split(bufio.ScanWords)
		for scanner.Scan() {
			fields = append(fields, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	counts := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("count %d: %w", i, err)
		}
		counts[i] = uint32(v)
	}
	return counts, nil
}
