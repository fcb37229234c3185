package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"leadfinder/internal/types"
)

// interactiveSelect lets user move through the provided lines with arrow keys and press Enter to
// view the full lead. It expects len(leads)==len(lines). When savePath is set, the detail view
// offers to add the lead to the saved shortlist.
func interactiveSelect(leads []types.LeadRecord, lines []string, savePath string) {
	if len(leads) == 0 {
		return
	}

	restoreVT := enableVT()
	defer restoreVT()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Println("(interactive selection not supported on this terminal)")
		return
	}
	defer func() { term.Restore(fd, oldState) }()

	reader := bufio.NewReader(os.Stdin)

	selected := 0

	redraw := func() {
		// Clear screen (ANSI reset to top + clear screen)
		fmt.Print("\033[H\033[2J")
		for i, l := range lines {
			prefix := "  "
			if i == selected {
				prefix = "> "
			}
			// raw mode: no implicit carriage return
			fmt.Print(prefix + l + "\r\n")
		}
		fmt.Print("(↑/↓ to navigate, Enter to view details, Esc to quit)\r\n")
	}

	move := func(delta int) {
		next := selected + delta
		if next < 0 || next >= len(leads) {
			return
		}
		selected = next
		redraw()
	}

	// showDetail drops back to cooked mode while the lead is shown, then re-enters raw mode.
	showDetail := func() bool {
		term.Restore(fd, oldState)
		fmt.Println()
		renderLeadDetail(os.Stdout, leads[selected])

		in := bufio.NewReader(os.Stdin)
		if savePath != "" {
			fmt.Print("Save to leads? (y/N): ")
			resp, _ := in.ReadString('\n')
			resp = strings.ToLower(strings.TrimSpace(resp))
			if resp == "y" || resp == "yes" {
				if saved, err := saveLead(savePath, leads[selected]); err != nil {
					fmt.Printf("%sFailed to save lead: %v%s\n", colorRed, err, colorReset)
				} else if saved {
					fmt.Println("Lead saved.")
				} else {
					fmt.Println("Already in your leads.")
				}
			}
		}

		fmt.Print("\n(press Enter to return)")
		_, _ = in.ReadBytes('\n')

		oldState, err = term.MakeRaw(fd)
		if err != nil {
			return false
		}
		reader = bufio.NewReader(os.Stdin)
		redraw()
		return true
	}

	redraw()

	for {
		b1, err := reader.ReadByte()
		if err != nil {
			return
		}
		// Handle Windows console arrow sequences (0 or 224, then code)
		if b1 == 0 || b1 == 224 {
			b2, _ := reader.ReadByte()
			switch b2 {
			case 72: // up
				move(-1)
			case 80: // down
				move(1)
			case 13: // Enter
				if !showDetail() {
					return
				}
			}
			continue
		}

		switch b1 {
		case 27: // ESC or ANSI sequence
			if reader.Buffered() == 0 {
				// Bare ESC – exit
				fmt.Print("\r\n")
				return
			}
			b2, _ := reader.ReadByte()
			if b2 != '[' || reader.Buffered() == 0 {
				continue
			}
			b3, _ := reader.ReadByte()
			switch b3 {
			case 'A': // up
				move(-1)
			case 'B': // down
				move(1)
			}
		case '\r', '\n': // Enter
			if !showDetail() {
				return
			}
		case 3: // Ctrl-C
			fmt.Print("\r\n")
			return

		default:
			// ignore other keys
		}
	}
}
