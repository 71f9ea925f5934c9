package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Process reads newline-delimited frames from body until it is exhausted,
// sending a cumulative delta for every frame that yields content. It closes
// both body and the deltas channel when done.
func (p *Parser) Process(body io.ReadCloser) {
	defer func() {
		_ = body.Close()
	}()

	reader := bufio.NewReaderSize(body, 4096)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanLines)

	p.Pull(func() (string, error) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if fragment, ok := p.parse(line); ok {
				return fragment, nil
			}
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("error reading response stream: %w", err)
		}
		return "", io.EOF
	})
}

// Pull calls next until it returns io.EOF, accumulating the fragments it
// yields and sending the running text after each non-empty one. Any other
// error is sent as the final delta. Pull closes the deltas channel.
func (p *Parser) Pull(next func() (string, error)) {
	defer close(p.deltas)
	done := p.ctx.Done()

	var buffer strings.Builder

	for {
		select {
		case <-done:
			p.send(Delta{Text: buffer.String(), Error: p.ctx.Err()})
			return
		default:
		}

		fragment, err := next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			p.send(Delta{Text: buffer.String(), Error: err})
			return
		}
		if fragment == "" {
			continue
		}

		buffer.WriteString(fragment)
		if !p.send(Delta{Text: buffer.String()}) {
			return
		}
	}
}

// send blocks until the consumer takes d or the context ends.
func (p *Parser) send(d Delta) bool {
	select {
	case p.deltas <- d:
		return true
	case <-p.ctx.Done():
		return false
	}
}
