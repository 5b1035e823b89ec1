package ingest

import (
	"bufio"
	"context"
	"io"
)

const maxLineSize = 4 << 20

// ReadLines calls fn for every line of r, checking ctx between lines. Line
// numbers start at 1.
func ReadLines(ctx context.Context, r io.Reader, fn func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++
		if err := fn(lineNo, scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}
