package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/SulthanZahran91/plc-to-wavedrom-sub000/internal/signal"
)

// internalWorkerFlag is the hidden flag self-re-exec uses to recognize a
// child process invocation: no shared memory, so every batch travels
// over stdin/stdout as JSON.
const internalWorkerFlag = "--internal-worker-batch"

type workerRequest struct {
	Descriptor Descriptor `json:"descriptor"`
	Lines      []string   `json:"lines"`
	LineOffset int        `json:"line_offset"`
}

type wireTuple struct {
	DeviceID      string `json:"device_id"`
	SignalName    string `json:"signal_name"`
	TimestampText string `json:"timestamp_text"`
	ValueType     string `json:"value_type"`
	ValueRaw      string `json:"value_raw"`
	SignalType    string `json:"signal_type"`
}

type workerResponse struct {
	Entries    []wireTuple         `json:"entries"`
	Errors     []signal.ParseError `json:"errors"`
	OutOfOrder bool                `json:"out_of_order"`
}

// IsWorkerInvocation reports whether the current process was re-exec'd
// as a batch worker, and should run RunWorkerMain instead of its normal
// entrypoint. cmd/plcingest checks this first thing in main().
func IsWorkerInvocation(args []string) bool {
	return len(args) > 1 && args[1] == internalWorkerFlag
}

// RunWorkerMain is the child-process entrypoint: read one workerRequest
// from stdin, parse it with the regex line parser reconstructed from its
// Descriptor, and write one workerResponse to stdout.
func RunWorkerMain(stdin *os.File, stdout *os.File) int {
	var req workerRequest
	if err := json.NewDecoder(stdin).Decode(&req); err != nil {
		fmt.Fprintf(os.Stderr, "worker: decode request: %v\n", err)
		return 1
	}

	lp, err := reconstructLineParser(req.Descriptor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: reconstruct descriptor: %v\n", err)
		return 1
	}

	br := parseLineBatch(lp, req.Lines, req.LineOffset)
	resp := workerResponse{OutOfOrder: br.OutOfOrder, Errors: br.Errors}
	for _, t := range br.Entries {
		// ValueType is the Value's own tag, not the declared SignalType:
		// with infer-on-failure a declared-integer line can legitimately
		// carry a text value, and the parent must rebuild exactly that.
		resp.Entries = append(resp.Entries, wireTuple{
			DeviceID:      t.DeviceID,
			SignalName:    t.SignalName,
			TimestampText: t.TimestampText,
			ValueType:     string(t.Value.Type),
			ValueRaw:      t.Value.Raw(),
			SignalType:    string(t.SignalType),
		})
	}

	if err := json.NewEncoder(stdout).Encode(&resp); err != nil {
		fmt.Fprintf(os.Stderr, "worker: encode response: %v\n", err)
		return 1
	}
	return 0
}

// runProcessBatch spawns a child copy of the current executable, feeds it
// one batch over stdin, and decodes its stdout response.
func runProcessBatch(ctx context.Context, desc Descriptor, lines []string, path string, lineOffset int) (BatchResult, error) {
	exe, err := os.Executable()
	if err != nil {
		return BatchResult{}, fmt.Errorf("resolve executable for process worker: %w", err)
	}

	req := workerRequest{Descriptor: desc, Lines: lines, LineOffset: lineOffset}
	payload, err := json.Marshal(&req)
	if err != nil {
		return BatchResult{}, fmt.Errorf("encode worker request: %w", err)
	}

	cmd := exec.CommandContext(ctx, exe, internalWorkerFlag)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return BatchResult{}, fmt.Errorf("process worker for %s: %w: %s", path, err, stderr.String())
	}

	var resp workerResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return BatchResult{}, fmt.Errorf("decode worker response for %s: %w", path, err)
	}

	res := BatchResult{
		Errors:     resp.Errors,
		OutOfOrder: resp.OutOfOrder,
	}
	for _, t := range resp.Entries {
		v, err := valueFromWire(signal.SignalType(t.ValueType), t.ValueRaw)
		if err != nil {
			continue
		}
		res.Entries = append(res.Entries, LineTuple{
			DeviceID:      t.DeviceID,
			SignalName:    t.SignalName,
			TimestampText: t.TimestampText,
			Value:         v,
			SignalType:    signal.SignalType(t.SignalType),
		})
	}
	return res, nil
}

func valueFromWire(stype signal.SignalType, raw string) (signal.Value, error) {
	switch stype {
	case signal.Boolean:
		return signal.BoolValue(raw == "true" || raw == "1" || raw == "ON"), nil
	case signal.Integer:
		var n int64
		if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
			return signal.Value{}, err
		}
		return signal.IntValue(n), nil
	case signal.Float:
		var f float64
		if _, err := fmt.Sscanf(raw, "%g", &f); err != nil {
			return signal.Value{}, err
		}
		return signal.FloatValue(f), nil
	default:
		return signal.TextValue(raw), nil
	}
}
