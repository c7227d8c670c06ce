package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestSendRecv_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("hello")},
		{"binary", []byte{0x00, 0xff, 0x10, 0x00}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Send(&buf, tc.payload); err != nil {
				t.Fatalf("Send: %v", err)
			}

			got, err := Recv(&buf, 0)
			if err != nil {
				t.Fatalf("Recv: %v", err)
			}
			if !bytes.Equal(got, tc.payload) {
				t.Errorf("got %q, want %q", got, tc.payload)
			}
		})
	}
}

func TestRecv_EOFOnCleanClose(t *testing.T) {
	var buf bytes.Buffer
	_, err := Recv(&buf, 0)
	if !errors.Is(err, io.EOF) {
		t.Errorf("got %v, want io.EOF", err)
	}
}

func TestRecv_ShortHeaderIsProtocolError(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x00, 0x01})
	_, err := Recv(buf, 0)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("got %v, want ErrProtocol", err)
	}
}

func TestRecv_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, make([]byte, 100)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, err := Recv(&buf, 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}

func TestRecv_TooLargeDrainsPayloadForNextFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, make([]byte, 100)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := Send(&buf, []byte("next frame")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if _, err := Recv(&buf, 10); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("first Recv: got %v, want ErrTooLarge", err)
	}

	got, err := Recv(&buf, 0)
	if err != nil {
		t.Fatalf("second Recv: %v", err)
	}
	if string(got) != "next frame" {
		t.Errorf("second Recv = %q, want frame alignment preserved", got)
	}
}

func TestRecv_TruncatedPayloadIsProtocolError(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, []byte("hello world")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	truncated := buf.Bytes()[:len(buf.Bytes())-3]

	_, err := Recv(bytes.NewReader(truncated), 0)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("got %v, want ErrProtocol", err)
	}
}
