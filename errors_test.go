package radixscan

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestStructuredErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
		wantOp   string
		checkFn  func(error) bool
	}{
		{"Memory Error", ErrOutOfMemory, ErrTypeMemory, "Malloc", IsMemoryError},
		{"Invalid Size", ErrInvalidSize, ErrTypeInvalidArg, "Malloc", IsInvalidArgError},
		{"Invalid Device", ErrInvalidDevice, ErrTypeInvalidArg, "SetDevice", IsInvalidArgError},
		{"Group Count", ErrGroupCount, ErrTypeInvalidArg, "ExclusiveScan", IsInvalidArgError},
		{"Barrier Broken", ErrBarrierBroken, ErrTypeExecution, "SyncThreads", IsExecutionError},
		{"Device Error", NewDeviceError("Adapter", "no adapter", nil), ErrTypeDevice, "Adapter", IsDeviceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e *Error
			if !errors.As(tt.err, &e) {
				t.Fatalf("error is not *Error: %T", tt.err)
			}
			if e.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", e.Type, tt.wantType)
			}
			if e.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", e.Op, tt.wantOp)
			}
			if !tt.checkFn(tt.err) {
				t.Errorf("classification predicate returned false for %v", tt.err)
			}
			if !strings.Contains(tt.err.Error(), tt.wantType.String()) {
				t.Errorf("message %q does not name the type", tt.err.Error())
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("lane failure")
	err := NewExecutionError("Kernel", "lane 3 panicked", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach the cause")
	}
	if !strings.Contains(err.Error(), "caused by: lane failure") {
		t.Errorf("message %q omits the cause", err.Error())
	}

	wrapped := fmt.Errorf("dispatch: %w", err)
	if !IsExecutionError(wrapped) {
		t.Error("wrapped execution error not classified")
	}
	if IsMemoryError(wrapped) || IsInvalidArgError(wrapped) || IsDeviceError(wrapped) {
		t.Error("wrapped execution error misclassified")
	}
	if IsExecutionError(cause) {
		t.Error("plain error classified as execution error")
	}
}

func TestErrorTypeString(t *testing.T) {
	if got := ErrorType(99).String(); got != "Unknown" {
		t.Errorf("ErrorType(99).String() = %q, want Unknown", got)
	}
}
