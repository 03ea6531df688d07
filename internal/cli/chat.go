package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tripflow/internal/presentation/tui"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/runner"
)

// Conversation is the part of the engine the chat loop drives.
type Conversation interface {
	Start(ctx context.Context, sessionID string, prefill domain.BookingSession) (domain.Reply, error)
	Turn(ctx context.Context, sessionID, input string) (domain.Reply, error)
	Cancel(ctx context.Context, sessionID string) (domain.Reply, error)
}

// ChatOptions configures the interactive loop.
type ChatOptions struct {
	SessionID string
	Prefill   domain.BookingSession
	In        io.Reader
	Out       io.Writer
	Render    tui.Renderer
}

// Chat runs a booking conversation on In/Out until the flow ends, the input
// is closed or the user presses Ctrl+C.
func Chat(ctx context.Context, conv Conversation, opts ChatOptions) error {
	if opts.Render == nil {
		opts.Render = tui.Plain
	}
	out := opts.Out

	sm := runner.NewSignalManager(ctx)
	defer sm.Stop()

	reply, err := conv.Start(sm.Context(), opts.SessionID, opts.Prefill)
	if err != nil {
		return fmt.Errorf("failed to start booking: %w", err)
	}
	sessionID := reply.SessionID
	printReply(out, reply, opts.Render)

	done := make(chan struct{})
	defer close(done)
	lines := readLines(opts.In, done)
	for !reply.Status.Terminal() {
		fmt.Fprint(out, "> ")

		var input string
		select {
		case line, ok := <-lines:
			if !ok {
				sm.CheckRace()
				if sm.Interrupted() {
					return interrupted(out, conv, sessionID)
				}
				fmt.Fprintln(out)
				printSystemMessage(out, "Input closed.")
				return nil
			}
			input = line
		case <-sm.Context().Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return interrupted(out, conv, sessionID)
		}

		reply, err = conv.Turn(sm.Context(), sessionID, input)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrCancellationRequested):
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, "[CTRL+C]")
			printSystemMessage(out, "Interrupted.")
			return nil
		case errors.Is(err, runner.ErrInputTooLarge), errors.Is(err, runner.ErrInvalidUTF8):
			printSystemMessage(out, "Input rejected: %v", err)
			continue
		default:
			return err
		}
		printReply(out, reply, opts.Render)
	}
	return nil
}

func interrupted(out io.Writer, conv Conversation, sessionID string) error {
	fmt.Fprintln(out, "[CTRL+C]")
	if _, err := conv.Cancel(context.Background(), sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	printSystemMessage(out, "Interrupted.")
	return nil
}

// readLines streams the lines of r until EOF or done is closed.
func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case ch <- strings.TrimRight(scanner.Text(), "\r"):
			case <-done:
				return
			}
		}
	}()
	return ch
}

func printReply(out io.Writer, reply domain.Reply, render tui.Renderer) {
	for _, m := range reply.Messages {
		switch m.Type {
		case domain.MessageSystem:
			printSystemMessage(out, "%s", m.Text)
		case domain.MessageMarkdown:
			fmt.Fprintln(out, renderOrRaw(render, m.Text))
		default:
			fmt.Fprintln(out, tui.Bot(m.Text))
		}
	}

	if p := reply.Prompt; p != nil {
		if p.Markdown {
			fmt.Fprintln(out, renderOrRaw(render, p.Text))
		} else {
			fmt.Fprintln(out, tui.Bot(p.Text))
		}
		if len(p.Choices) > 0 {
			fmt.Fprintf(out, "[%s]\n", strings.Join(p.Choices, "] ["))
		}
	}

	if b := reply.Booking; b != nil && reply.Status == domain.StatusCompleted {
		printSystemMessage(out, "Booked: %s to %s, %s to %s, budget %s.",
			b.Origin, b.Destination, b.StartDate, b.EndDate, b.Budget)
	}
}

func renderOrRaw(render tui.Renderer, md string) string {
	s, err := render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(s, "\n")
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(out io.Writer, format string, args ...any) {
	fmt.Fprintln(out, tui.System(fmt.Sprintf(">>> "+format, args...)))
}
