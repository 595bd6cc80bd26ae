package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

type config struct {
	benchmarks       []string
	num              int
	reads            int
	threads          int
	arenaBlockSize   int
	compressionRatio float64
	histogram        bool
	seed             int64
}

func main() {
	cfg := parseFlags()
	printBanner(cfg)
	printHeader(cfg)

	for _, name := range cfg.benchmarks {
		spec, err := benchSpecFor(name)
		if err != nil {
			fatalf("%v", err)
		}

		r, err := runBenchmark(cfg, spec)
		if err != nil {
			fatalf("%s: %v", name, err)
		}
		printResult(cfg, name, r)
	}
}

func printBanner(cfg config) {
	reads := cfg.reads
	if reads < 0 {
		reads = cfg.num
	}
	fmt.Printf("sklbench: num=%d reads=%d threads=%d arena_block_size=%d key_size=%d seed=%d compression_ratio=%.2f\n",
		cfg.num,
		reads,
		cfg.threads,
		cfg.arenaBlockSize,
		keySize,
		cfg.seed,
		cfg.compressionRatio)
}

func printHeader(cfg config) {
	if cfg.histogram {
		fmt.Printf("%-12s %12s %12s %12s %12s %8s %8s %8s %8s\n",
			"benchmark", "ops", "ops/sec", "MB/sec", "avg(us)", "miss", "p50", "p95", "p99")
		return
	}
	fmt.Printf("%-12s %12s %12s %12s %12s %8s\n",
		"benchmark", "ops", "ops/sec", "MB/sec", "avg(us)", "miss")
}

func printResult(cfg config, name string, r runResult) {
	if cfg.histogram {
		fmt.Printf("%-12s %12d %12.0f %12.2f %12.1f %8d %8s %8s %8s\n",
			name,
			r.ops,
			r.opsPerSec,
			r.mbPerSec,
			r.avgMicros,
			r.misses,
			formatDurationMicros(r.hist.P50()),
			formatDurationMicros(r.hist.P95()),
			formatDurationMicros(r.hist.P99()),
		)
	} else {
		fmt.Printf("%-12s %12d %12.0f %12.2f %12.1f %8d\n",
			name,
			r.ops,
			r.opsPerSec,
			r.mbPerSec,
			r.avgMicros,
			r.misses,
		)
	}
	if r.message != "" {
		fmt.Printf("%-12s %s\n", "", r.message)
	}
}

func parseFlags() config {
	var benchmarkList string
	cfg := config{}

	flag.StringVar(&benchmarkList, "benchmarks", "fillseq,readrandom", "comma-separated benchmark names")
	flag.IntVar(&cfg.num, "num", 1000000, "keys per benchmark")
	flag.IntVar(&cfg.reads, "reads", -1, "read operations per goroutine (default: num)")
	flag.IntVar(&cfg.threads, "threads", 1, "reader goroutines (fill benchmarks always run one writer)")
	flag.IntVar(&cfg.arenaBlockSize, "arena_block_size", 4096, "standard arena block size in bytes")
	flag.Float64Var(&cfg.compressionRatio, "compression_ratio", 0.5, "compression ratio for generated snappy input")
	flag.BoolVar(&cfg.histogram, "histogram", false, "print latency histogram percentiles")
	flag.Int64Var(&cfg.seed, "seed", 301, "rng seed")
	flag.Parse()

	cfg.benchmarks = parseBenchmarks(benchmarkList)

	if cfg.num <= 0 {
		fatalf("num must be > 0")
	}
	if cfg.reads < -1 {
		fatalf("reads must be >= -1")
	}
	if cfg.threads <= 0 {
		fatalf("threads must be > 0")
	}
	if cfg.arenaBlockSize <= 0 {
		fatalf("arena_block_size must be > 0")
	}
	if cfg.compressionRatio <= 0 {
		fatalf("compression_ratio must be > 0")
	}
	if len(cfg.benchmarks) == 0 {
		fatalf("benchmarks is empty")
	}

	return cfg
}

func parseBenchmarks(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
