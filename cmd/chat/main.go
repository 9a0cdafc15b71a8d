// Command chat is a terminal front end for the chat relay. Each line typed is
// sent as one message; the transcript is printed as it grows.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"spirolink-backend/internal/widget"
)

func main() {
	baseURL := flag.String("url", "http://localhost:5000", "chat relay base URL")
	timeout := flag.Duration("timeout", 60*time.Second, "per-message timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *baseURL, *timeout, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL string, timeout time.Duration, in io.Reader, out io.Writer) error {
	client, err := widget.NewRelayClient(baseURL, timeout)
	if err != nil {
		return err
	}

	printed := 0
	render := func(entries []widget.Entry) {
		for _, e := range entries[printed:] {
			fmt.Fprintf(out, "%s> %s\n", label(e.Role), e.Content)
		}
		printed = len(entries)
	}

	w, err := widget.New(client, client.BaseURL(), widget.WithOnChange(render))
	if err != nil {
		return err
	}
	render(w.Transcript())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		w.SetInput(scanner.Text())
		// Failures are already in the transcript.
		if err := w.Submit(ctx); errors.Is(err, context.Canceled) {
			return nil
		}
	}
	return scanner.Err()
}

func label(r widget.Role) string {
	if r == widget.RoleUser {
		return "you"
	}
	return "bot"
}
