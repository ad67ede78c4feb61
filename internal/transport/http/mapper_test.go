package http

import (
	"encoding/json"
	"testing"

	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	tests := []struct {
		name    string
		inbound proto.Inbound
		kind    core.CommandKind
		errMsg  string
	}{
		{
			name:    "join",
			inbound: proto.Inbound{Type: "join", Ack: 4, Data: json.RawMessage(`{"username":"alice","room":"5"}`)},
			kind:    core.CommandJoin,
		},
		{
			name:    "send message",
			inbound: proto.Inbound{Type: "sendMessage", Data: json.RawMessage(`{"userId":"c1","message":"hi"}`)},
			kind:    core.CommandSendMessage,
		},
		{
			name:    "bad join payload",
			inbound: proto.Inbound{Type: "join", Data: json.RawMessage(`[1,2]`)},
			errMsg:  "invalid join payload",
		},
		{
			name:    "unknown type",
			inbound: proto.Inbound{Type: "leave"},
			errMsg:  "unknown message type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, protoErr := inboundToCommand(tt.inbound)
			if tt.errMsg != "" {
				if protoErr == nil || protoErr.Msg != tt.errMsg || protoErr.Code != core.ErrCodeBadRequest {
					t.Fatalf("expected %q, got %+v", tt.errMsg, protoErr)
				}
				return
			}
			if protoErr != nil {
				t.Fatalf("unexpected error: %+v", protoErr)
			}
			if cmd.Kind != tt.kind || cmd.Ack != tt.inbound.Ack {
				t.Fatalf("unexpected command: %+v", cmd)
			}
		})
	}
}

func TestOutboundFromAckEvent(t *testing.T) {
	failure := &core.CoreError{Code: core.ErrCodeUnknownConnection, Message: "gone"}

	out := outboundFromEvent(&core.Event{Kind: core.EventAck, Ack: 3})
	if out.Type != proto.OutboundTypeAck || out.Ack != 3 || out.Error != nil {
		t.Fatalf("unexpected ack: %+v", out)
	}

	out = outboundFromEvent(&core.Event{Kind: core.EventAck, Ack: 3, Error: failure})
	if out.Type != proto.OutboundTypeAck || out.Error == nil || out.Error.Code != core.ErrCodeUnknownConnection {
		t.Fatalf("unexpected failed ack: %+v", out)
	}

	out = outboundFromEvent(&core.Event{Kind: core.EventAck, Error: failure})
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Msg != "gone" {
		t.Fatalf("unexpected error outbound: %+v", out)
	}
}
