package vm

import (
	"fmt"
	"io"
)

// Tick budgets, per the protocol.
const (
	MaxInitTicks = 100 * 1024
	MaxTicks     = 1024 * 1024
)

// Size limits on a Job's output and input scripts, in words.
const MaxScriptWords = 4096

// TraceOut, if non-nil, receives one line per tick during Run,
// describing which thread stepped and its resulting state. It exists
// for debugging script runs; it has no effect on the verdict.
var TraceOut io.Writer

// Job is the immutable input to a single verification run.
type Job struct {
	Hash   [32]byte
	Output []byte
	Input  []byte
}

// VM is a disposable, per-job instance of the two-thread machine.
type VM struct {
	Memory *Memory
	T0     *Thread
	T1     *Thread
}

// New constructs a VM with hash and output loaded into memory and
// both threads positioned at their conventional entry points. The
// input script is not loaded until (and unless) Run reaches co-run.
func New(job Job) *VM {
	mem := &Memory{}
	mem.LoadBytes(HashBase*2, job.Hash[:])
	mem.LoadBytes(OutputBase*2, job.Output)
	return &VM{
		Memory: mem,
		T0:     NewThread(mem, OutputBase),
		T1:     NewThread(mem, InputBase),
	}
}

// Run executes job's two-phase schedule to completion and returns the
// verdict: true iff T0 reaches HaltedSuccess. Run never returns an
// error; every word is a legal instruction and the only way a script
// loses is by reaching HaltedFailure, yielding, or exhausting its
// tick budget.
func Run(job Job) bool {
	if len(job.Output) > MaxScriptWords*2 {
		job.Output = job.Output[:MaxScriptWords*2]
	}
	if len(job.Input) > MaxScriptWords*2 {
		job.Input = job.Input[:MaxScriptWords*2]
	}

	m := New(job)

	for tick := 0; tick < MaxInitTicks; tick++ {
		m.T0.Step()
		trace(tick, m.T0, nil)
		if m.T0.State.Done() {
			return m.T0.State.Success()
		}
	}

	m.Memory.LoadBytes(InputBase*2, job.Input)

	for tick := 0; tick < MaxTicks; tick++ {
		m.T0.Step()
		if !m.T1.State.Done() {
			m.T1.Step()
		}
		trace(tick, m.T0, m.T1)
		if m.T0.State.Done() {
			return m.T0.State.Success()
		}
	}

	return false
}

func trace(tick int, t0, t1 *Thread) {
	if TraceOut == nil {
		return
	}
	if t1 == nil {
		fmt.Fprintf(TraceOut, "tick %d: t0 pc=%04x state=%s\n", tick, t0.PC, t0.State)
		return
	}
	fmt.Fprintf(TraceOut, "tick %d: t0 pc=%04x state=%s t1 pc=%04x state=%s\n",
		tick, t0.PC, t0.State, t1.PC, t1.State)
}
