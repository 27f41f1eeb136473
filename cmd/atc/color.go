package main

import "os"

var colorEnabled = isTTY(os.Stdout) && os.Getenv("NO_COLOR") == ""

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
)

func bold(s string) string {
	if !colorEnabled {
		return s
	}
	return ansiBold + s + ansiReset
}

func green(s string) string {
	if !colorEnabled {
		return s
	}
	return ansiGreen + s + ansiReset
}

func yellow(s string) string {
	if !colorEnabled {
		return s
	}
	return ansiYellow + s + ansiReset
}

func red(s string) string {
	if !colorEnabled {
		return s
	}
	return ansiRed + s + ansiReset
}

// pass renders a boolean check outcome.
func pass(ok bool) string {
	if ok {
		return green("OK")
	}
	return red("FAILED")
}
