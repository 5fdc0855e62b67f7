// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package app

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/nethergamesmc/lokilogger/app/errors"
	"github.com/nethergamesmc/lokilogger/app/log"
	"github.com/nethergamesmc/lokilogger/app/z"
)

// maxLineSize bounds a single input line, longer lines fail the input.
const maxLineSize = 1 << 20

// lineWriter abstracts the agent's ingestion API.
type lineWriter interface {
	Write(line string, labels map[string]string)
}

// openInput returns the input reader, "-" denotes stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return os.Stdin, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input", z.Str("path", path))
	}

	return f, nil
}

// newInputSource returns a source reading lines from the reader and writing them to the agent.
// The done function is called once the input is exhausted.
func newInputSource(reader io.ReadCloser, writer lineWriter, labels map[string]string, done func()) *inputSource {
	return &inputSource{
		reader: reader,
		writer: writer,
		labels: labels,
		done:   done,
	}
}

type inputSource struct {
	reader io.ReadCloser
	writer lineWriter
	labels map[string]string
	done   func()
	closed atomic.Bool
}

// Run blocks reading lines until the input is exhausted or closed.
func (s *inputSource) Run(ctx context.Context) error {
	ctx = log.WithCtx(log.WithTopic(ctx, "input"), z.Labels("input_labels", s.labels))

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var count int
	for scanner.Scan() {
		s.writer.Write(scanner.Text(), s.labels)
		inputLinesCounter.Inc()
		count++
	}

	if s.closed.Load() {
		return nil
	} else if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read input")
	}

	log.Info(ctx, "Input exhausted, shutting down", z.Int("lines", count))
	s.done()

	return nil
}

// Close closes the input, unblocking Run.
func (s *inputSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	return s.reader.Close()
}
