package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core/payment"
)

const reviewHelp = `Commands:
  a N   approve request N
  r N   reject request N
  l     refetch the pending requests
  q     quit`

// lineReader reads trimmed lines from cli.in; io.EOF once the input is exhausted.
func (cli *commandLine) lineReader() func() (string, error) {
	scanner := bufio.NewScanner(cli.in)
	return func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return strings.TrimSpace(scanner.Text()), nil
	}
}

// confirmer asks on cli.out and defaults to no.
func (cli *commandLine) confirmer(readLine func() (string, error)) payment.Confirmer {
	return payment.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		fmt.Fprintf(cli.out, "%s [y/N] ", prompt)
		answer, err := readLine()
		if err != nil {
			return false, err
		}
		answer = strings.ToLower(answer)
		return answer == "y" || answer == "yes", nil
	})
}

// pending prints the pending payment requests, newest first.
func (cli *commandLine) pending(ctx context.Context) error {
	items, err := cli.payments.ListPending(ctx)
	if err != nil {
		return err
	}
	cli.printQueue(items)
	return nil
}

// decide approves or rejects a single request once the operator confirms it.
func (cli *commandLine) decide(ctx context.Context, id string, approve bool) error {
	queue := payment.NewQueue(cli.payments, cli.confirmer(cli.lineReader()))
	if err := queue.Refresh(ctx); err != nil {
		return err
	}

	act := queue.Reject
	if approve {
		act = queue.Approve
	}
	pr, err := act(ctx, id)
	switch {
	case err == nil:
		fmt.Fprintf(cli.out, "%s %s\n", pr.TransactionRef, pr.Status)
		return nil
	case errors.Is(err, payment.ErrNotConfirmed), errors.Is(err, io.EOF):
		fmt.Fprintln(cli.out, "cancelled")
		return nil
	default:
		return err
	}
}

// review runs the verification queue on the terminal until the operator quits.
func (cli *commandLine) review(ctx context.Context) error {
	readLine := cli.lineReader()
	queue := payment.NewQueue(cli.payments, cli.confirmer(readLine))

	if err := queue.Refresh(ctx); err != nil {
		return err
	}
	cli.printQueue(queue.Items())
	fmt.Fprintln(cli.out, reviewHelp)

	for {
		fmt.Fprint(cli.out, "> ")
		line, err := readLine()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q", "quit":
			return nil
		case "l", "list":
			if err = queue.Refresh(ctx); err != nil {
				fmt.Fprintf(cli.out, "error: %v\n", err)
				continue
			}
		case "a", "approve", "r", "reject":
			item, err := pick(queue.Items(), fields)
			if err != nil {
				fmt.Fprintf(cli.out, "error: %v\n", err)
				continue
			}
			act := queue.Approve
			if fields[0][0] == 'r' {
				act = queue.Reject
			}
			pr, err := act(ctx, item.ID)
			switch {
			case err == nil:
				fmt.Fprintf(cli.out, "%s %s\n", pr.TransactionRef, pr.Status)
			case errors.Is(err, payment.ErrNotConfirmed):
				fmt.Fprintln(cli.out, "cancelled")
			case payment.IsStale(err):
				fmt.Fprintln(cli.out, "already reviewed by someone else")
			case errors.Is(err, io.EOF):
				return nil
			default:
				fmt.Fprintf(cli.out, "error: %v\n", err)
			}
		default:
			fmt.Fprintln(cli.out, reviewHelp)
			continue
		}
		cli.printQueue(queue.Items())
	}
}

// pick finds the request designated by the 1-based position in fields[1].
func pick(items []payment.RequestDetail, fields []string) (payment.RequestDetail, error) {
	if len(fields) < 2 {
		return payment.RequestDetail{}, errors.New("which request? e.g. `a 1`")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(items) {
		return payment.RequestDetail{}, errors.Errorf("no request #%s", fields[1])
	}
	return items[n-1], nil
}

func (cli *commandLine) printQueue(items []payment.RequestDetail) {
	if len(items) == 0 {
		fmt.Fprintln(cli.out, "No pending payment requests.")
		return
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tAMOUNT\tCOURSE\tSENDER\tUSER\tUTR\tSUBMITTED\tPROOF")
	for i, item := range items {
		fmt.Fprintf(w, "%d\t₹%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, item.Amount.StringFixed(2), item.CourseTitle, item.SenderName, item.UserEmail,
			item.TransactionRef, item.CreatedAt.Local().Format("02 Jan 15:04"), item.ProofURL)
	}
	_ = w.Flush()
}
