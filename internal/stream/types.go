package stream

import "context"

// Delta is the cumulative text produced so far for one chunk. A Delta with a
// non-nil Error is always the last value sent before the channel closes.
type Delta struct {
	Text  string
	Error error
}

// FrameFunc decodes one framed record into a content fragment. It reports
// false for frames that carry no content, including ones that fail to parse.
type FrameFunc func(frame string) (fragment string, ok bool)

// Parser turns a provider's raw stream into cumulative deltas.
type Parser struct {
	ctx    context.Context
	parse  FrameFunc
	deltas chan Delta
}

func NewParser(ctx context.Context, parse FrameFunc) *Parser {
	return &Parser{
		ctx:    ctx,
		parse:  parse,
		deltas: make(chan Delta),
	}
}

func (p *Parser) Deltas() <-chan Delta {
	return p.deltas
}
