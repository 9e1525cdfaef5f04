//go:build !headless && windows

package main

import "os"

// Windows console reads stay blocking; the read loop relies on the
// quit key to terminate the reader.
func prepareStdin(fd int) error {
	return nil
}

func restoreStdin(fd int) {}

func readStdinByte(fd int) (byte, bool, error) {
	var buf [1]byte
	n, err := os.Stdin.Read(buf[:])
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// No lookahead on a blocking console, so a leading escape always
// stands alone.
func readStdinByteNoWait(fd int) (byte, bool) {
	return 0, false
}
