// cpu_chip8_runner.go - Worker goroutine scheduler for the CHIP-8 core

package main

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	COMMAND_NONE = iota
	COMMAND_SUSPEND
	COMMAND_STOP
)

const (
	INSTRUCTIONS_PER_TICK = 18
	TICK_INTERVAL         = time.Second / 60
	MESSAGE_BUFFER_SIZE   = 8
)

// Message is one outcome delivered through the runner mailbox: a trace
// line from debug stepping, or an error raised by the worker.
type Message struct {
	Trace string
	Err   error
}

type RunnerOptions struct {
	DebugMode bool

	// InstructionsPerTick overrides the per-tick execution budget.
	// Zero selects INSTRUCTIONS_PER_TICK. Debug mode always steps
	// one instruction at a time.
	InstructionsPerTick int
}

func (o RunnerOptions) tickBudget() int {
	if o.DebugMode {
		return 1
	}
	if o.InstructionsPerTick > 0 {
		return o.InstructionsPerTick
	}
	return INSTRUCTIONS_PER_TICK
}

// Chip8Runner drives a CPU_Chip8 on a dedicated goroutine at a fixed
// cadence, or one instruction per resume in debug mode. The cpu slot
// is empty while the worker owns the machine; Stop joins the worker
// and moves it back, so the two sides never share the machine. The
// keypad is the only state touched from both sides and carries its
// own lock.
type Chip8Runner struct {
	cpu     *CPU_Chip8 // empty while the worker runs
	display *DisplayBuffer
	keys    *KeyboardState
	options RunnerOptions

	cmdMu   sync.Mutex
	cmdCond *sync.Cond
	command int

	mailbox chan Message
	done    chan *CPU_Chip8

	present func(*DisplayBuffer)
	sound   func()
}

func NewChip8Runner(cpu *CPU_Chip8, display *DisplayBuffer, options RunnerOptions) *Chip8Runner {
	r := &Chip8Runner{
		cpu:     cpu,
		display: display,
		keys:    NewKeyboardState(),
		options: options,
	}
	r.cmdCond = sync.NewCond(&r.cmdMu)
	return r
}

// Keyboard returns the shared keypad state for the input side.
func (r *Chip8Runner) Keyboard() *KeyboardState {
	return r.keys
}

// SetPresentHandler registers the presentation callback, invoked on
// the worker goroutine once per dirty frame. Set before Start.
func (r *Chip8Runner) SetPresentHandler(fn func(*DisplayBuffer)) {
	r.present = fn
}

// SetSoundHandler registers the audio trigger, invoked on the worker
// goroutine while the sound timer is running. Set before Start.
func (r *Chip8Runner) SetSoundHandler(fn func()) {
	r.sound = fn
}

// Started reports whether the worker currently owns the machine.
func (r *Chip8Runner) Started() bool {
	return r.cpu == nil
}

// Suspended reports whether the worker is parked, or about to park, on
// the suspend command.
func (r *Chip8Runner) Suspended() bool {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	return r.command == COMMAND_SUSPEND
}

// Start moves the machine onto a new worker goroutine and opens the
// mailbox.
func (r *Chip8Runner) Start() error {
	if r.Started() {
		return errors.New("attempt to start the already started worker")
	}

	cpu := r.cpu
	r.cpu = nil
	r.mailbox = make(chan Message, MESSAGE_BUFFER_SIZE)
	r.done = make(chan *CPU_Chip8, 1)

	mailbox := r.mailbox
	done := r.done
	go func() {
		done <- r.run(cpu, mailbox)
	}()

	return nil
}

// Suspend asks the worker to park at the top of its next iteration.
func (r *Chip8Runner) Suspend() error {
	if !r.Started() {
		return errors.New("attempt to suspend the worker while it is not started")
	}
	if r.Suspended() {
		return errors.New("attempt to suspend the already suspended worker")
	}

	r.cmdMu.Lock()
	r.command = COMMAND_SUSPEND
	r.cmdMu.Unlock()
	return nil
}

// Resume wakes a suspended worker.
func (r *Chip8Runner) Resume() error {
	if !r.Suspended() {
		return errors.New("attempt to resume the worker while it is not suspended")
	}

	r.cmdMu.Lock()
	r.command = COMMAND_NONE
	r.cmdMu.Unlock()
	r.cmdCond.Signal()
	return nil
}

// Stop wakes the worker, waits for it to exit and reclaims the
// machine. The mailbox is closed only after the join, so the worker
// can never send on a closed channel; messages still queued stay
// readable through Message until drained.
func (r *Chip8Runner) Stop() (*CPU_Chip8, error) {
	if !r.Started() {
		return nil, errors.New("attempt to stop the already stopped worker")
	}

	r.cmdMu.Lock()
	r.command = COMMAND_STOP
	r.cmdMu.Unlock()
	r.cmdCond.Signal()

	cpu := <-r.done
	r.cpu = cpu
	close(r.mailbox)

	r.cmdMu.Lock()
	r.command = COMMAND_NONE
	r.cmdMu.Unlock()

	return cpu, nil
}

// Reset rewinds the machine and clears the display. Only valid while
// stopped; the worker owns both otherwise.
func (r *Chip8Runner) Reset() error {
	if r.Started() {
		return errors.New("attempt to reset the machine while the worker is running")
	}
	r.cpu.Reset()
	r.display.Clear()
	return nil
}

// Message polls the mailbox without blocking.
func (r *Chip8Runner) Message() (Message, bool) {
	if r.mailbox == nil {
		return Message{}, false
	}
	select {
	case msg, ok := <-r.mailbox:
		if !ok {
			return Message{}, false
		}
		return msg, true
	default:
		return Message{}, false
	}
}

func (r *Chip8Runner) run(cpu *CPU_Chip8, mailbox chan<- Message) *CPU_Chip8 {
	budget := r.options.tickBudget()

	for {
		r.cmdMu.Lock()
		for r.command == COMMAND_SUSPEND {
			r.cmdCond.Wait()
		}
		stopping := r.command == COMMAND_STOP
		r.cmdMu.Unlock()
		if stopping {
			break
		}

		if cpu.Timers.Sound > 0 && r.sound != nil {
			r.sound()
		}

		index, word, err := cpu.Tick(budget, r.display, r.keys)
		switch {
		case err != nil:
			mailbox <- Message{Err: err}
			if fatalError(err) || r.options.DebugMode {
				return cpu
			}
			r.selfSuspend()
		case r.options.DebugMode:
			mailbox <- Message{Trace: fmt.Sprintf("executed %s (%s) at 0x%03x", word.Disassemble(), word, index)}
			r.selfSuspend()
		}

		if r.display.Dirty() {
			r.display.ClearDirty()
			if r.present != nil {
				r.present(r.display)
			}
		}

		if !r.options.DebugMode {
			time.Sleep(TICK_INTERVAL)
		}
	}

	return cpu
}

func (r *Chip8Runner) selfSuspend() {
	r.cmdMu.Lock()
	r.command = COMMAND_SUSPEND
	r.cmdMu.Unlock()
}

// fatalError classifies worker errors. Memory and program-load faults
// cannot be stepped past; stack and decode faults leave the machine
// suspended for inspection and resume.
func fatalError(err error) bool {
	var cpuErr *CPUError
	if !errors.As(err, &cpuErr) {
		return true
	}
	switch cpuErr.Kind {
	case ERR_MEMORY_OVERFLOW, ERR_PROGRAM_INVALID, ERR_PROGRAM_NOT_LOADED:
		return true
	}
	return false
}
