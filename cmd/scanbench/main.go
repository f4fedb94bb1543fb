// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command scanbench measures scan dispatch latency and logs the results
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/LynnColeArt/radixscan"
	"github.com/LynnColeArt/radixscan/gpu"
)

func main() {
	var (
		wg      = flag.Int("wg", radixscan.DefaultWorkgroupSize, "Lanes per execution group (power of two)")
		ept     = flag.Int("ept", radixscan.DefaultElementsPerThread, "Values owned by each lane")
		iters   = flag.Int("iters", 200, "Timed iterations per backend")
		backend = flag.String("backend", "cpu", "Backends to run: cpu, webgpu or all")
		logDir  = flag.String("logdir", "benchmark_logs", "Directory for JSON result logs")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()
	gpu.Debug = *verbose

	sizing := radixscan.Sizing{WorkgroupSize: *wg, ElementsPerThread: *ept}
	if err := sizing.Validate(); err != nil {
		log.Fatalf("Invalid sizing: %v", err)
	}

	fmt.Println("=== Scan Benchmark ===")
	fmt.Printf("Date: %s\n", time.Now().Format(time.RFC3339))
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("radixscan: %s\n", radixscan.VersionString())
	fmt.Printf("CPU: %d cores, %s\n", runtime.NumCPU(), radixscan.GetCPUInfo())
	fmt.Printf("Sizing: %v (block %d)\n", sizing, sizing.BlockSize())

	logger, err := radixscan.NewBenchmarkLogger(*logDir, "scan")
	if err != nil {
		log.Fatalf("Failed to start benchmark log: %v", err)
	}

	backends := []string{*backend}
	if *backend == "all" {
		backends = []string{"cpu", "webgpu"}
	}

	block := make([]uint32, sizing.BlockSize())
	rng := rand.New(rand.NewSource(1))
	for i := range block {
		block[i] = uint32(rng.Intn(1 << 16))
	}

	for _, b := range backends {
		samples, err := measure(b, sizing, block, *iters)
		if err != nil {
			log.Printf("%s backend failed: %v", b, err)
			if logErr := logger.LogFail("scan", b, sizing, err); logErr != nil {
				log.Fatalf("Failed to log result: %v", logErr)
			}
			continue
		}

		mean, std := stat.MeanStdDev(samples, nil)
		if err := logger.LogPass("scan", b, sizing, len(samples), mean, std); err != nil {
			log.Fatalf("Failed to log result: %v", err)
		}
	}

	results, err := radixscan.LoadBenchmarkResults(logger.SessionFile())
	if err != nil {
		log.Fatalf("Failed to reload results: %v", err)
	}
	radixscan.PrintBenchmarkSummary(os.Stdout, results)
	fmt.Printf("\nResults saved to %s\n", logger.SessionFile())
}

// measure returns per-iteration latencies in nanoseconds, verifying the first
// result against the serial reference
func measure(backend string, sizing radixscan.Sizing, block []uint32, iters int) ([]float64, error) {
	var scan func() ([]uint32, error)

	switch backend {
	case "cpu":
		ctx := radixscan.NewContext()
		defer ctx.Destroy()
		scan = func() ([]uint32, error) {
			return ctx.ExclusiveScanUint32(block, len(block), sizing)
		}
	case "webgpu":
		p, err := gpu.NewScanPipeline(sizing)
		if err != nil {
			return nil, err
		}
		defer p.Cleanup()
		scan = func() ([]uint32, error) {
			return p.Run(block, len(block))
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}

	want := radixscan.Reference{}.ExclusiveScan(block)
	samples := make([]float64, 0, iters)
	for i := 0; i < iters; i++ {
		start := time.Now()
		got, err := scan()
		elapsed := time.Since(start)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			for j := range want {
				if got[j] != want[j] {
					return nil, fmt.Errorf("offset %d = %d, want %d", j, got[j], want[j])
				}
			}
		}
		samples = append(samples, float64(elapsed.Nanoseconds()))
	}
	return samples, nil
}
