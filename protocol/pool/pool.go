package pool

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"vm16chain/errors"
	"vm16chain/log"
	"vm16chain/metrics"
	"vm16chain/protocol/vm"
	"vm16chain/sync/idempotency"
)

// ErrQueueFull is passed to a submitted job's callback when the pool's
// queue has a configured capacity and is full.
var ErrQueueFull = errors.New("pool queue full")

// Callback is invoked exactly once per submitted job, with the job's
// verdict or an error describing why no verdict could be produced.
type Callback func(result bool, err error)

type pendingJob struct {
	job vm.Job
	cb  Callback
}

// Pool owns N worker processes and dispatches jobs to them, FIFO,
// restarting any worker that exits and resubmitting its in-flight job
// at the head of the queue.
type Pool struct {
	workerPath string
	workerArgs []string
	size       int
	queueCap   int

	cmds chan interface{}
	done chan struct{}

	dedup   *idempotency.Group
	limiter *bucketLimiter
}

type submitCmd struct {
	pending pendingJob
}

type workerReplyCmd struct {
	w     *workerProc
	reply wireReply
	err   error
}

type shutdownCmd struct {
	ack chan struct{}
}

// inspectCmd runs fn inside the pool's loop goroutine with its free
// and busy sets, the same way every other command is handled. It
// exists so tests can deterministically observe or mutate loop state
// (for example, killing a free worker to simulate a crash) without
// racing the loop goroutine.
type inspectCmd struct {
	fn func(free []*workerProc, busy map[*workerProc]pendingJob)
}

// New starts size worker processes, each the program at workerPath
// run with args, and returns a Pool ready to accept jobs. queueCap
// caps the pending-job queue; 0 means unbounded.
func New(size int, queueCap int, workerPath string, args ...string) (*Pool, error) {
	p := &Pool{
		workerPath: workerPath,
		workerArgs: args,
		size:       size,
		queueCap:   queueCap,
		cmds:       make(chan interface{}),
		done:       make(chan struct{}),
		dedup:      new(idempotency.Group),
		limiter:    newBucketLimiter(0, 0),
	}

	free := make([]*workerProc, 0, size)
	for i := 0; i < size; i++ {
		w, err := spawnWorker(i, workerPath, args...)
		if err != nil {
			for _, f := range free {
				f.kill()
			}
			return nil, errors.Wrapf(err, "spawning worker %d", i)
		}
		free = append(free, w)
	}

	go p.loop(free)
	return p, nil
}

// SetLimit installs a per-key submission rate limit of freq jobs per
// second, with burst as the bucket size. SetLimit is meant to be
// called once, before the pool sees any traffic; it is not safe for
// concurrent use with SubmitLimited. A freq of 0 disables limiting
// (the default).
func (p *Pool) SetLimit(freq, burst int) {
	p.limiter = newBucketLimiter(freq, burst)
}

// SubmitLimited is like Submit, but first checks key against the rate
// limit installed by SetLimit. If key has exceeded its budget,
// SubmitLimited returns false and cb is never called; otherwise it
// submits the job and returns true.
func (p *Pool) SubmitLimited(key string, job vm.Job, cb Callback) bool {
	if !p.limiter.allow(key) {
		return false
	}
	p.Submit(job, cb)
	return true
}

// Submit enqueues job, invoking cb exactly once with its verdict.
// Submit never blocks on worker execution; it returns as soon as the
// job is queued or dispatched.
func (p *Pool) Submit(job vm.Job, cb Callback) {
	p.cmds <- submitCmd{pending: pendingJob{job: job, cb: cb}}
}

// SubmitOnce is like Submit, but jobs sharing the same key are
// coalesced: only one of them actually runs, and every caller's
// callback receives that run's verdict. Once a run for a key has
// produced a verdict, the pool keeps it, and later SubmitOnce calls
// with that key receive it without running the job again; a run that
// ends in an error is not kept. This is useful when the same
// (hash, output, input) triple might be resubmitted by a racing
// caller before the first submission's verdict is known.
func (p *Pool) SubmitOnce(key string, job vm.Job, cb Callback) {
	go func() {
		v, err := p.dedup.Once(key, func() (interface{}, error) {
			type outcome struct {
				result bool
				err    error
			}
			ch := make(chan outcome, 1)
			p.Submit(job, func(result bool, err error) {
				ch <- outcome{result, err}
			})
			o := <-ch
			return o.result, o.err
		})
		if err != nil {
			cb(false, err)
			return
		}
		cb(v.(bool), nil)
	}()
}

// Shutdown kills every worker process and waits for them to exit, or
// for ctx to be done.
func (p *Pool) Shutdown(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case p.cmds <- shutdownCmd{ack: ack}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) loop(free []*workerProc) {
	busy := make(map[*workerProc]pendingJob)
	var queue []pendingJob

	dispatch := func(w *workerProc, pj pendingJob) {
		busy[w] = pj
		go func() {
			start := time.Now()
			reply, err := w.submit(pj.job)
			metrics.RecordElapsed(start)
			p.cmds <- workerReplyCmd{w: w, reply: reply, err: err}
		}()
	}

	popQueue := func() (pendingJob, bool) {
		if len(queue) == 0 {
			return pendingJob{}, false
		}
		pj := queue[0]
		queue = queue[1:]
		return pj, true
	}

	respawn := func(id int) (*workerProc, error) {
		return spawnWorker(id, p.workerPath, p.workerArgs...)
	}

	for {
		select {
		case c := <-p.cmds:
			switch cmd := c.(type) {
			case submitCmd:
				metrics.JobSubmitted()
				if len(free) > 0 {
					w := free[len(free)-1]
					free = free[:len(free)-1]
					dispatch(w, cmd.pending)
				} else if p.queueCap > 0 && len(queue) >= p.queueCap {
					cmd.pending.cb(false, ErrQueueFull)
				} else {
					queue = append(queue, cmd.pending)
				}

			case workerReplyCmd:
				pj, wasBusy := busy[cmd.w]
				delete(busy, cmd.w)
				if !wasBusy {
					continue
				}

				if cmd.err != nil {
					log.Messagef(context.Background(), "worker %d crashed: %s", cmd.w.id, cmd.err)
					cmd.w.kill()
					metrics.WorkerRestarted()
					replacement, err := respawn(cmd.w.id)
					if err != nil {
						log.Error(context.Background(), err, "failed to respawn worker ", cmd.w.id)
						metrics.JobFailed()
						pj.cb(false, errors.Wrap(err, "worker crashed and could not be respawned"))
						continue
					}
					queue = append([]pendingJob{pj}, queue...)
					free = append(free, replacement)
				} else if cmd.reply.Error != "" {
					metrics.JobFailed()
					pj.cb(false, errors.New(cmd.reply.Error))
					free = append(free, cmd.w)
				} else {
					metrics.JobCompleted()
					pj.cb(cmd.reply.Result, nil)
					free = append(free, cmd.w)
				}

				for len(free) > 0 {
					next, ok := popQueue()
					if !ok {
						break
					}
					w := free[len(free)-1]
					free = free[:len(free)-1]
					dispatch(w, next)
				}

			case inspectCmd:
				cmd.fn(free, busy)

			case shutdownCmd:
				var g errgroup.Group
				for _, w := range free {
					w := w
					g.Go(func() error { return shutdownWorker(w) })
				}
				for w := range busy {
					w := w
					g.Go(func() error { return shutdownWorker(w) })
				}
				g.Wait()
				close(cmd.ack)
				close(p.done)
				return
			}
		}
	}
}

func shutdownWorker(w *workerProc) error {
	w.close()
	if err := w.kill(); err != nil {
		return fmt.Errorf("killing worker %d: %w", w.id, err)
	}
	w.wait()
	return nil
}
