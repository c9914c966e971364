// File: cmd/hitl.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"domainlens/api/schemas"
)

// promptResponder answers HITL escalations on the terminal. It blocks until
// the user picks an option; cancelling the surrounding context is the only
// timeout.
type promptResponder struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptResponder(in io.Reader, out io.Writer) *promptResponder {
	return &promptResponder{in: bufio.NewReader(in), out: out}
}

func (r *promptResponder) Respond(ctx context.Context, req schemas.HITLRequest) (schemas.HITLResponse, error) {
	fmt.Fprintf(r.out, "\n%s\n", req.Question)
	if req.File != "" {
		fmt.Fprintf(r.out, "  file: %s\n", req.File)
	}
	for i, opt := range req.Options {
		fmt.Fprintf(r.out, "  [%d] %s", i+1, opt.Label)
		if opt.Description != "" {
			fmt.Fprintf(r.out, ": %s", opt.Description)
		}
		fmt.Fprintln(r.out)
	}

	for {
		if err := ctx.Err(); err != nil {
			return schemas.HITLResponse{}, err
		}
		fmt.Fprint(r.out, "choice (empty to skip): ")

		line, err := r.in.ReadString('\n')
		if err != nil && line == "" {
			// Closed input counts as declining to decide.
			return schemas.HITLResponse{OptionID: schemas.OptionSkip}, nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return schemas.HITLResponse{OptionID: schemas.OptionSkip}, nil
		}

		idx, convErr := strconv.Atoi(line)
		if convErr != nil || idx < 1 || idx > len(req.Options) {
			fmt.Fprintf(r.out, "invalid choice %q\n", line)
			continue
		}
		return schemas.HITLResponse{OptionID: req.Options[idx-1].ID}, nil
	}
}
