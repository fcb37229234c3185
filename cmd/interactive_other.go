//go:build !windows

package main

// enableVT is a no-op outside Windows; terminals there already speak ANSI.
func enableVT() func() { return func() {} }
