package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// timeRound trims sub-second noise from durations printed to the operator.
const timeRound = time.Second

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
