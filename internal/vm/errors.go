package vm

import (
	"errors"
	"fmt"
)

// HaltReason classifies why the machine stopped executing.
type HaltReason uint8

// Halt reasons. All of them are fatal, the machine only continues after a reset.
const (
	ReasonNone HaltReason = iota
	ReasonInvalidProgramCounter
	ReasonStackUnderflow
	ReasonStackOverflow
	ReasonInvalidMemoryAccess
	ReasonExternal // requested by a collaborator, for example the user pressing escape
)

// Sentinel errors matching a *HaltError of the corresponding reason with errors.Is.
var (
	ErrInvalidProgramCounter = errors.New("invalid program counter")
	ErrStackUnderflow        = errors.New("stack underflow")
	ErrStackOverflow         = errors.New("stack overflow")
	ErrInvalidMemoryAccess   = errors.New("invalid memory access")
	ErrHalted                = errors.New("halted")
)

// ErrProgramTooLarge is returned when a program does not fit into the program space.
var ErrProgramTooLarge = errors.New("program too large")

var reasonNames = [...]string{
	ReasonNone:                  "None",
	ReasonInvalidProgramCounter: "InvalidProgramCounter",
	ReasonStackUnderflow:        "StackUnderflow",
	ReasonStackOverflow:         "StackOverflow",
	ReasonInvalidMemoryAccess:   "InvalidMemoryAccess",
	ReasonExternal:              "External",
}

func (r HaltReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("HaltReason(%d)", r)
}

func (r HaltReason) sentinel() error {
	switch r {
	case ReasonInvalidProgramCounter:
		return ErrInvalidProgramCounter
	case ReasonStackUnderflow:
		return ErrStackUnderflow
	case ReasonStackOverflow:
		return ErrStackOverflow
	case ReasonInvalidMemoryAccess:
		return ErrInvalidMemoryAccess
	default:
		return ErrHalted
	}
}

// HaltError describes the halt state of a machine.
type HaltError struct {
	Reason  HaltReason
	Message string
	PC      uint16 // address of the instruction that caused the halt
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Unwrap returns the sentinel error of the halt reason.
func (e *HaltError) Unwrap() error {
	return e.Reason.sentinel()
}
