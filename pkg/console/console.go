// Package console implements the line-oriented operator prompt used when
// no terminal UI is available
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/james-see/opendmx/pkg/command"
	"github.com/james-see/opendmx/pkg/controller"
)

// Prompt is printed before each input line
const Prompt = "DMX Controller> "

// Console reads commands from in and applies them until exit, end of
// input, or the output shutting down on its own.
type Console struct {
	in   io.Reader
	out  io.Writer
	app  controller.Applier
	done <-chan struct{}
}

// New creates a Console; done is typically State.Done()
func New(in io.Reader, out io.Writer, app controller.Applier, done <-chan struct{}) *Console {
	return &Console{in: in, out: out, app: app, done: done}
}

// Run blocks until the operator exits, input ends, done closes or ctx ends.
// It returns nil in all of those cases except a read error.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	fmt.Fprintln(c.out, command.Help)
	for {
		fmt.Fprint(c.out, "\n"+Prompt)
		select {
		case line := <-lines:
			if stop := c.handle(line); stop {
				return nil
			}
		case err := <-readErr:
			fmt.Fprintln(c.out)
			return err
		case <-c.done:
			fmt.Fprintln(c.out, "\n[!] Output stopped")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Console) handle(line string) bool {
	in, err := command.Parse(line)
	switch {
	case errors.Is(err, command.ErrEmpty):
		return false
	case errors.Is(err, command.ErrHelp):
		fmt.Fprintln(c.out, command.Help)
		return false
	case err != nil:
		fmt.Fprintf(c.out, "[?] %v\n", err)
		return false
	}

	if err := c.app.Apply(in); err != nil {
		fmt.Fprintf(c.out, "[!] %v\n", err)
		return errors.Is(err, controller.ErrStopped)
	}
	fmt.Fprintf(c.out, "[*] %s\n", command.Feedback(in))
	return in.Op == controller.OpStop
}
