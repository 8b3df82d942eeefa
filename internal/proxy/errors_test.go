package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestDescribeError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}}
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"refused", fmt.Errorf("wrapped: %w", refused), "ECONNREFUSED"},
		{"in use", &net.OpError{Op: "listen", Err: &os.SyscallError{Syscall: "bind", Err: syscall.EADDRINUSE}}, "EADDRINUSE"},
		{"reset", syscall.ECONNRESET, "ECONNRESET"},
		{"dns missing", &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}, "ENOTFOUND"},
		{"dns timeout", &net.DNSError{Err: "timeout", Name: "slow.invalid", IsTimeout: true}, "EAI_AGAIN"},
		{"deadline", context.DeadlineExceeded, "ETIMEDOUT"},
		{"other", errors.New("boom"), UnknownErrorCode},
	}
	for _, tc := range cases {
		code, desc := DescribeError(tc.err)
		if code != tc.code {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.code, code)
		}
		if desc == "" {
			t.Fatalf("%s: description should not be empty", tc.name)
		}
	}
	if got := FormatError(refused); got != "ECONNREFUSED: Connection refused by the target server." {
		t.Fatalf("unexpected formatted error %q", got)
	}
	if got := FormatError(errors.New("boom")); got != "UNKNOWN: Unknown error occurred." {
		t.Fatalf("unexpected formatted error %q", got)
	}
}
