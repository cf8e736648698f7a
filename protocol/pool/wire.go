package pool

import (
	"encoding/hex"
	"encoding/json"
	"io"

	"vm16chain/encoding/blockchain"
	"vm16chain/encoding/bufpool"
	"vm16chain/errors"
	"vm16chain/protocol/vm"
)

// wireRequest is the host-to-worker message: one job, hex-encoded.
type wireRequest struct {
	Hash   string `json:"hash"`
	Output string `json:"output"`
	Input  string `json:"input"`
}

// wireReply is the worker-to-host message: a verdict, or a verdict of
// false accompanied by an error describing why the verdict could not
// be trusted.
type wireReply struct {
	Result bool   `json:"result"`
	Error  string `json:"error,omitempty"`
}

func jobToWire(job vm.Job) wireRequest {
	return wireRequest{
		Hash:   hex.EncodeToString(job.Hash[:]),
		Output: hex.EncodeToString(job.Output),
		Input:  hex.EncodeToString(job.Input),
	}
}

func (r wireRequest) toJob() (vm.Job, error) {
	var job vm.Job
	hash, err := hex.DecodeString(r.Hash)
	if err != nil {
		return job, errors.Wrap(err, "decoding hash")
	}
	copy(job.Hash[:], hash)
	job.Output, err = hex.DecodeString(r.Output)
	if err != nil {
		return job, errors.Wrap(err, "decoding output")
	}
	job.Input, err = hex.DecodeString(r.Input)
	if err != nil {
		return job, errors.Wrap(err, "decoding input")
	}
	return job, nil
}

// writeMessage writes v as a length-prefixed JSON line: a varint31
// byte count followed by that many bytes of JSON.
func writeMessage(w io.Writer, v interface{}) error {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	err := json.NewEncoder(buf).Encode(v)
	if err != nil {
		return errors.Wrap(err, "encoding message")
	}
	_, err = blockchain.WriteVarint31(w, uint64(buf.Len()))
	if err != nil {
		return errors.Wrap(err, "writing message length")
	}
	_, err = w.Write(buf.Bytes())
	return errors.Wrap(err, "writing message body")
}

// readMessage reads one length-prefixed JSON line into v.
func readMessage(r io.Reader, v interface{}) error {
	n, _, err := blockchain.ReadVarint31(r)
	if err != nil {
		return err // typically io.EOF at a clean boundary
	}
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	buf.Grow(int(n))
	_, err = io.CopyN(buf, r, int64(n))
	if err != nil {
		return errors.Wrap(err, "reading message body")
	}
	return errors.Wrap(json.Unmarshal(buf.Bytes(), v), "decoding message")
}
