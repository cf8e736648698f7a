package pool

import (
	"bufio"
	"io"
	"os/exec"

	"vm16chain/errors"
	"vm16chain/protocol/vm"
)

// workerProc is the host-side handle for one worker process.
type workerProc struct {
	id  int
	cmd *exec.Cmd

	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// spawnWorker starts a new worker process at path, piping its stdin
// and stdout. The worker is expected to speak the wire protocol in
// wire.go over those pipes, which is what cmd/vm16worker's main does.
func spawnWorker(id int, path string, args ...string) (*workerProc, error) {
	cmd := exec.Command(path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "opening worker stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "opening worker stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "starting worker process")
	}
	return &workerProc{
		id:     id,
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// submit ships job to the worker and blocks for its reply. The
// returned error is a transport-level failure only (a broken pipe or
// an unparseable message), which the pool treats as a worker crash.
// An application-level failure reported by the worker itself comes
// back as a non-empty wireReply.Error with a nil error here.
func (w *workerProc) submit(job vm.Job) (wireReply, error) {
	if err := writeMessage(w.stdin, jobToWire(job)); err != nil {
		return wireReply{}, err
	}
	var reply wireReply
	if err := readMessage(w.stdout, &reply); err != nil {
		return wireReply{}, err
	}
	return reply, nil
}

// kill terminates the worker process without waiting for it to exit
// cleanly. It is used when the pool is shutting down or has decided a
// worker must be replaced.
func (w *workerProc) kill() error {
	return w.cmd.Process.Kill()
}

// wait blocks until the worker process exits and reports how.
func (w *workerProc) wait() error {
	return w.cmd.Wait()
}

// close releases the worker's pipes. It does not kill the process;
// callers that want that should call kill first.
func (w *workerProc) close() {
	w.stdin.Close()
}

// RunWorkerLoop is the worker side of the wire protocol: it reads one
// job at a time from r, evaluates it with vm.Run, and writes one
// reply to w, until r reaches EOF or a malformed message is read. It
// is the body of cmd/vm16worker's main, factored out here so tests
// can run a worker in-process via self-reexec.
func RunWorkerLoop(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	for {
		var req wireRequest
		err := readMessage(br, &req)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return writeMessage(w, wireReply{Error: err.Error()})
		}

		job, err := req.toJob()
		if err != nil {
			if werr := writeMessage(w, wireReply{Error: err.Error()}); werr != nil {
				return werr
			}
			continue
		}

		result := vm.Run(job)
		if err := writeMessage(w, wireReply{Result: result}); err != nil {
			return err
		}
	}
}
