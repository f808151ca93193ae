// main.go - one-shot demonstration binary for the coherence simulator

/*
main.go wires a Simulator, populates its memory and then its caches from a
seed (the caches through random reads; it issues no writes and runs no
fixed scripted sequence), and prints the resulting memory/cache state.
This is a thin front end kept out of the coherence core and talking to it
only through its exported interface - it is deliberately a single
non-interactive run, not a CLI menu loop.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesisim/coherence"
	"github.com/mesisim/coherence/bloodtype"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		mainMemorySize int
		cacheSize      int
		nCaches        int
		blockSize      int
		seed           int64
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "mesisim",
		Short: "Run a single scripted demonstration of the MESI coherence simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			return run(mainMemorySize, cacheSize, nCaches, blockSize, seed)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&mainMemorySize, "main-memory-size", 200, "main memory size in cells")
	flags.IntVar(&cacheSize, "cache-size", 10, "cache lines per processor")
	flags.IntVar(&nCaches, "n-caches", 4, "number of attached caches")
	flags.IntVar(&blockSize, "block-size", 5, "block size in cells")
	flags.Int64Var(&seed, "seed", 0, "population seed (0 = derive from current time)")
	flags.BoolVar(&verbose, "verbose", false, "emit debug-level protocol tracing")

	return cmd
}

func run(mainMemorySize, cacheSize, nCaches, blockSize int, seed int64) error {
	sim, err := coherence.NewSimulator[bloodtype.Type](coherence.Config{
		MainMemorySize: mainMemorySize,
		CacheSize:      cacheSize,
		NCaches:        nCaches,
		BlockSize:      blockSize,
	})
	if err != nil {
		return err
	}

	sim.PopulateMemory(seed, bloodtype.All)
	sim.PopulateCaches(seed)

	fmt.Println("-- main memory --")
	fmt.Println(sim.Memory)

	for i, c := range sim.Caches {
		fmt.Printf("-- cache %d (queue %v) --\n", i, c.Queue())
		fmt.Println(c)
	}

	return nil
}
