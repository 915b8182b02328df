package translink

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func TestInterfaceNetwork(t *testing.T) {
	tests := []struct {
		name   string
		ifaces func() ([]net.Interface, error)
		want   bool
	}{
		{"error", func() ([]net.Interface, error) { return nil, errors.New("boom") }, false},
		{"none", func() ([]net.Interface, error) { return nil, nil }, false},
		{"loopback only", func() ([]net.Interface, error) {
			return []net.Interface{{Name: "lo", Flags: net.FlagUp | net.FlagLoopback}}, nil
		}, false},
		{"down", func() ([]net.Interface, error) {
			return []net.Interface{{Name: "eth0"}}, nil
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := InterfaceNetwork{interfaces: tt.ifaces}
			if got := n.IsConnected(); got != tt.want {
				t.Errorf("IsConnected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Unreachable, "Data not available: check network connection"},
		{Timeout, "Unable to connect to Translink at this time"},
		{MalformedResponse, "Failed to get data from Translink service"},
		{Unknown, "Failed to get data from Translink service"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := &Error{Kind: tt.kind, Detail: "cause"}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
			if !IsKind(err, tt.kind) {
				t.Error("IsKind should match")
			}
		})
	}
	if IsKind(errors.New("other"), Unknown) {
		t.Error("IsKind should not match foreign errors")
	}
}
