package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Ack   int64           `json:"ack"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to join with")
	room := flag.String("room", "general", "room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, ack int64, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Ack: ack, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	// await reads until the ack for id arrives, printing everything on the way.
	await := func(id int64) (*proto.EventWelcomeData, error) {
		var welcome *proto.EventWelcomeData
		for {
			var out outbound
			if err := wsjson.Read(ctx, conn, &out); err != nil {
				return nil, fmt.Errorf("read: %w", err)
			}
			fmt.Printf("<- type=%s event=%s ack=%d data=%s\n", out.Type, out.Event, out.Ack, out.Data)
			if out.Event == proto.EventWelcome {
				welcome = &proto.EventWelcomeData{}
				if err := json.Unmarshal(out.Data, welcome); err != nil {
					return nil, fmt.Errorf("unmarshal welcome: %w", err)
				}
			}
			if out.Error != nil {
				return nil, fmt.Errorf("%s: %s", out.Error.Code, out.Error.Msg)
			}
			if out.Type == proto.OutboundTypeAck && out.Ack == id {
				return welcome, nil
			}
		}
	}

	if err := send(proto.InboundTypeJoin, 1, proto.JoinData{Username: *user, Room: *room}); err != nil {
		return err
	}
	welcome, err := await(1)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	if welcome == nil {
		return fmt.Errorf("join acknowledged without welcome")
	}

	if err := send(proto.InboundTypeSendMessage, 2, proto.SendMessageData{
		UserID:  welcome.UserData.ConnectionID,
		Message: *text,
	}); err != nil {
		return err
	}
	if _, err := await(2); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}

	fmt.Println("smoke test passed")
	return nil
}
