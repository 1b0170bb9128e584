package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/srg/blehub/internal/executor"
	"github.com/srg/blehub/internal/host/goble"
)

// FormatUserError turns err into a message with a hint where one helps.
func FormatUserError(err error) string {
	var exitErr *executor.TaskExitError
	switch {
	case errors.Is(err, goble.ErrUnsupportedPlatform):
		return fmt.Sprintf("%v\nblehub runs on Linux (HCI) and macOS only", err)
	case errors.As(err, &exitErr):
		return fmt.Sprintf("hub stopped: task %q exited: %v", exitErr.Task, exitErr.Err)
	default:
		return err.Error()
	}
}

func printUserError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Fprint(w, "ERROR: ")
	_, _ = fmt.Fprintln(w, FormatUserError(err))
}
