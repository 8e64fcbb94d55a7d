package dmx

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		kind Kind
		is   error
		not  error
	}{
		{"startup", StartupError("open", base), KindStartup, ErrStartup, ErrTransmit},
		{"transmit", TransmitError("write", base), KindTransmit, ErrTransmit, ErrIntent},
		{"intent", IntentError("parse", base), KindIntent, ErrIntent, ErrStartup},
		{"wrapped", fmt.Errorf("engine: %w", TransmitError("break", base)), KindTransmit, ErrTransmit, ErrStartup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf() = %q, want %q", got, tt.kind)
			}
			if !errors.Is(tt.err, tt.is) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.is)
			}
			if errors.Is(tt.err, tt.not) {
				t.Errorf("errors.Is(%v, %v) = true", tt.err, tt.not)
			}
			if !errors.Is(tt.err, base) {
				t.Errorf("cause not reachable through %v", tt.err)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := StartupError("discover", ErrAdapterNotFound)
	want := "startup: discover: no USB serial adapter found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf() should be empty for unclassified errors")
	}
}
