//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableVT switches the console to virtual terminal mode so arrow keys arrive as ANSI
// sequences and the list colours render. The returned func puts the old modes back.
func enableVT() func() {
	hIn := windows.Handle(os.Stdin.Fd())
	hOut := windows.Handle(os.Stdout.Fd())

	var inMode, outMode uint32
	inOK := windows.GetConsoleMode(hIn, &inMode) == nil
	outOK := windows.GetConsoleMode(hOut, &outMode) == nil

	if inOK {
		_ = windows.SetConsoleMode(hIn, inMode|windows.ENABLE_VIRTUAL_TERMINAL_INPUT)
	}
	if outOK {
		_ = windows.SetConsoleMode(hOut, outMode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
	}

	return func() {
		if inOK {
			_ = windows.SetConsoleMode(hIn, inMode)
		}
		if outOK {
			_ = windows.SetConsoleMode(hOut, outMode)
		}
	}
}
