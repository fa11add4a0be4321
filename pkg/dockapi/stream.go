package dockapi

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// buildEvent is one line of the newline-delimited JSON stream the engine
// emits during an image build.
type buildEvent struct {
	Stream      string `json:"stream"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
	Aux struct {
		ID string `json:"ID"`
	} `json:"aux"`
}

// buildResult is what a fully-consumed build stream yielded.
type buildResult struct {
	imageID   string
	succeeded bool
}

// decodeBuildStream walks a live build response line by line. Progress
// messages are forwarded to onMessage; lines that are not valid JSON are
// forwarded as raw text and the stream continues (the engine is known to
// emit non-JSON noise). An explicit error event aborts immediately with a
// BuildError, without waiting for stream end.
func decodeBuildStream(r io.Reader, onMessage func(string)) (buildResult, error) {
	var res buildResult

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var ev buildEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			if onMessage != nil {
				onMessage(line)
			}
			continue
		}

		if ev.Error != "" || ev.ErrorDetail.Message != "" {
			msg := ev.Error
			if ev.ErrorDetail.Message != "" {
				msg = ev.ErrorDetail.Message
			}
			return res, &BuildError{Message: msg}
		}

		if ev.Stream != "" {
			msg := strings.TrimSpace(ev.Stream)
			if msg != "" {
				if onMessage != nil {
					onMessage(msg)
				}
				if strings.Contains(msg, "Successfully built") || strings.Contains(msg, "Successfully tagged") {
					res.succeeded = true
				}
			}
		}

		if ev.Aux.ID != "" {
			res.imageID = ev.Aux.ID
			res.succeeded = true
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("failed to read build stream: %w", err)
	}
	return res, nil
}

// LogStream is a live, line-oriented log follower. It owns exactly one
// underlying socket; Close releases it and is the only cancellation
// mechanism. After Close, the next ReadLine fails and the reading loop
// must stop.
type LogStream struct {
	rc io.ReadCloser
	br *bufio.Reader
}

func newLogStream(rc io.ReadCloser) *LogStream {
	return &LogStream{rc: rc, br: bufio.NewReader(rc)}
}

// ReadLine returns the next raw log line without its trailing newline.
// io.EOF signals a cleanly ended stream.
func (s *LogStream) ReadLine() (string, error) {
	line, err := s.br.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close releases the underlying socket.
func (s *LogStream) Close() error {
	return s.rc.Close()
}

// demuxStream splits a multiplexed non-TTY attach/exec stream into stdout
// and stderr. Each frame carries an 8-byte header: stream id, three zero
// bytes, then a big-endian uint32 payload length.
func demuxStream(r io.Reader) (stdout, stderr []byte, err error) {
	var outBuf, errBuf bytes.Buffer
	hdr := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, hdr); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return outBuf.Bytes(), errBuf.Bytes(), nil
			}
			return nil, nil, fmt.Errorf("failed to read stream frame: %w", err)
		}
		size := binary.BigEndian.Uint32(hdr[4:8])
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("failed to read stream payload: %w", err)
		}
		switch hdr[0] {
		case 2:
			errBuf.Write(payload)
		default:
			outBuf.Write(payload)
		}
	}
}
