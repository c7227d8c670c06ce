package cips

import (
	"context"
	"reflect"
	"testing"
)

type stubCommand struct {
	name         string
	requiresAuth bool
	arity        int
}

func (s stubCommand) Name() string      { return s.name }
func (s stubCommand) RequiresAuth() bool { return s.requiresAuth }
func (s stubCommand) Arity() int        { return s.arity }

func (s stubCommand) Execute(context.Context, *Session, ConnectionLogger, []string) Response {
	return NewOKResponse("stub")
}

func TestRegisterAndGetCommand(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubCommand{name: "Stub", requiresAuth: true, arity: 1})

	cmd, ok := reg.Get("stub")
	if !ok {
		t.Fatal("Get(\"stub\") not found")
	}
	if cmd.Name() != "Stub" {
		t.Errorf("Name() = %q, want %q", cmd.Name(), "Stub")
	}

	// Lookup is case-insensitive on both registration and retrieval.
	cmd, ok = reg.Get("STUB")
	if !ok || cmd.Name() != "Stub" {
		t.Errorf("case-insensitive Get failed: ok=%v cmd=%v", ok, cmd)
	}

	if _, ok := reg.Get("does-not-exist"); ok {
		t.Error("Get found a command that was never registered")
	}
}

func TestRegistryIsIndependentPerInstance(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.Register(stubCommand{name: "only-in-a"})

	if _, ok := a.Get("only-in-a"); !ok {
		t.Fatal("registry a should contain its own registration")
	}
	if _, ok := b.Get("only-in-a"); ok {
		t.Error("registry b should not see registry a's commands")
	}
}

func TestNewErrorResponseClampsPositiveCodes(t *testing.T) {
	resp := NewErrorResponse(5, "oops")
	if resp.Code != -1 {
		t.Errorf("Code = %d, want -1 (positive codes must clamp)", resp.Code)
	}
	if resp.Message != "oops" {
		t.Errorf("Message = %q, want %q", resp.Message, "oops")
	}

	resp = NewErrorResponse(-7, "also oops")
	if resp.Code != -7 {
		t.Errorf("Code = %d, want -7 (already-negative codes pass through)", resp.Code)
	}
}

func TestResponsePackets(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want []string
	}{
		{
			name: "ok response with no data lines",
			resp: NewOKResponse("logged in"),
			want: []string{"0 logged in"},
		},
		{
			name: "error response",
			resp: NewErrorResponse(-4, "invalid email"),
			want: []string{"-4 invalid email"},
		},
		{
			name: "data response carries code equal to line count",
			resp: NewDataResponse([]string{"a@x.com", "b@x.com"}),
			want: []string{"2 ", "a@x.com", "b@x.com"},
		},
		{
			name: "data response with zero lines",
			resp: NewDataResponse(nil),
			want: []string{"0 "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.resp.Packets()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Packets() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
