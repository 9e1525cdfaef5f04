//go:build !headless && !windows

package main

import "syscall"

// Non-blocking stdin lets the read loop poll the stop channel and lets
// escape sequences be drained without waiting.
func prepareStdin(fd int) error {
	return syscall.SetNonblock(fd, true)
}

func restoreStdin(fd int) {
	_ = syscall.SetNonblock(fd, false)
}

func readStdinByte(fd int) (byte, bool, error) {
	var buf [1]byte
	n, err := syscall.Read(fd, buf[:])
	if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

func readStdinByteNoWait(fd int) (byte, bool) {
	var buf [1]byte
	n, err := syscall.Read(fd, buf[:])
	if err != nil || n == 0 {
		return 0, false
	}
	return buf[0], true
}
