// workers.go - Parallelisierung der CPU-Kernels
//
// Die Kernels verteilen unabhaengige Kanaele auf Goroutines. Jede Goroutine
// schreibt nur in ihren eigenen Ausgabebereich und summiert in fester
// Reihenfolge, daher sind Ergebnisse bit-identisch unabhaengig von der
// Worker-Anzahl.
package nn

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var workers atomic.Int64

// SetWorkers setzt die maximale Anzahl paralleler Goroutines pro Kernel.
// Werte <= 0 setzen auf runtime.GOMAXPROCS(0) zurueck.
func SetWorkers(n int) {
	workers.Store(int64(n))
}

// Workers gibt die aktuelle Worker-Anzahl zurueck.
func Workers() int {
	if n := workers.Load(); n > 0 {
		return int(n)
	}
	return runtime.GOMAXPROCS(0)
}

// parallelFor ruft fn fuer jeden Index in [0, n) auf. Ein Panic in einer
// Worker-Goroutine wird aufgefangen und nach Wait in der aufrufenden
// Goroutine erneut ausgeloest, damit der Aufrufer ihn per recover sieht.
func parallelFor(n int, fn func(i int)) {
	limit := Workers()
	if limit <= 1 || n <= 1 {
		for i := range n {
			fn(i)
		}
		return
	}

	var (
		g        errgroup.Group
		once     sync.Once
		panicked any
	)
	g.SetLimit(limit)
	for i := range n {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { panicked = r })
				}
			}()
			fn(i)
			return nil
		})
	}
	_ = g.Wait()

	if panicked != nil {
		panic(panicked)
	}
}
