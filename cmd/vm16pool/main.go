// Command vm16pool runs an isolated interpreter pool and exposes it
// over stdin/stdout: one newline-delimited JSON job per input line,
// one newline-delimited JSON verdict per output line, correlated by
// an id the caller supplies. Verdicts may arrive out of submission
// order, since the pool runs jobs across POOL_SIZE worker processes
// concurrently.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"vm16chain/env"
	"vm16chain/log"
	"vm16chain/log/rotation"
	"vm16chain/log/splunk"
	"vm16chain/os/program"
	"vm16chain/protocol/pool"
	"vm16chain/protocol/vm"
)

var (
	poolSize   = env.Int("POOL_SIZE", 4)
	queueCap   = env.Int("QUEUE_CAP", 1024)
	workerPath = env.String("WORKER_PATH", defaultWorkerPath())
	logFile    = env.String("LOGFILE", "")
	logSize    = env.Int("LOGSIZE", 5e6)
	logCount   = env.Int("LOGCOUNT", 9)
	splunkAddr = env.String("SPLUNKADDR", "")
	limitFreq  = env.Int("RATELIMIT_FREQ", 0)
	limitBurst = env.Int("RATELIMIT_BURST", 0)
)

// defaultWorkerPath assumes vm16worker was built alongside vm16pool,
// in the same directory, and falls back to bare $PATH lookup if the
// current executable's location can't be determined.
func defaultWorkerPath() string {
	self, err := program.Path()
	if err != nil {
		return "vm16worker"
	}
	return filepath.Join(filepath.Dir(self), "vm16worker")
}

// configureLogOutput keeps operational logging off stdout, which
// carries verdicts per the protocol above. Without LOGFILE, logging
// goes to stderr. With LOGFILE, it goes to a rotated file and, if
// SPLUNKADDR is also set, is mirrored to splunk; SPLUNKADDR has no
// effect when LOGFILE is empty.
func configureLogOutput() {
	if *logFile == "" {
		log.SetOutput(os.Stderr)
		return
	}
	var w io.Writer = rotation.Create(*logFile, *logSize, *logCount)
	if *splunkAddr != "" {
		w = io.MultiWriter(w, splunk.New(*splunkAddr, []byte("\n")))
	}
	log.SetOutput(w)
}

type request struct {
	ID     string `json:"id"`
	Key    string `json:"key"` // rate-limit bucket; defaults to id if empty
	Hash   string `json:"hash"`
	Output string `json:"output"`
	Input  string `json:"input"`
}

type reply struct {
	ID     string `json:"id"`
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (r request) toJob() (vm.Job, error) {
	var job vm.Job
	hash, err := hex.DecodeString(r.Hash)
	if err != nil {
		return job, fmt.Errorf("decoding hash: %w", err)
	}
	copy(job.Hash[:], hash)
	job.Output, err = hex.DecodeString(r.Output)
	if err != nil {
		return job, fmt.Errorf("decoding output: %w", err)
	}
	job.Input, err = hex.DecodeString(r.Input)
	if err != nil {
		return job, fmt.Errorf("decoding input: %w", err)
	}
	return job, nil
}

func main() {
	env.Parse()
	configureLogOutput()
	ctx := context.Background()

	p, err := pool.New(*poolSize, *queueCap, *workerPath)
	if err != nil {
		log.Fatal(ctx, log.KeyError, err)
	}
	if *limitFreq > 0 {
		p.SetLimit(*limitFreq, *limitBurst)
	}
	log.Messagef(ctx, "vm16pool: %d workers ready", *poolSize)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Messagef(ctx, "vm16pool: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.Shutdown(shutdownCtx)
		os.Exit(0)
	}()

	var (
		out sync.Mutex
		wg  sync.WaitGroup
	)
	enc := json.NewEncoder(os.Stdout)
	writeReply := func(rep reply) {
		out.Lock()
		defer out.Unlock()
		enc.Encode(rep)
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			writeReply(reply{Error: fmt.Sprintf("decoding request: %s", err)})
			continue
		}
		job, err := req.toJob()
		if err != nil {
			writeReply(reply{ID: req.ID, Error: err.Error()})
			continue
		}
		key := req.Key
		if key == "" {
			key = req.ID
		}
		wg.Add(1)
		id := req.ID
		submitted := p.SubmitLimited(key, job, func(result bool, err error) {
			defer wg.Done()
			rep := reply{ID: id, Result: result}
			if err != nil {
				rep.Error = err.Error()
			}
			writeReply(rep)
		})
		if !submitted {
			wg.Done()
			writeReply(reply{ID: id, Error: "rate limit exceeded"})
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error(ctx, err, "reading stdin")
	}

	wg.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.Shutdown(shutdownCtx)
}
