package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

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
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	room := flag.String("room", "general", "room to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	joinPayload, err := json.Marshal(proto.JoinData{Username: *user, Room: *room})
	if err != nil {
		return fmt.Errorf("marshal join: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoin, Ack: 1, Data: joinPayload}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	fmt.Printf("Connecting to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	var userID atomic.Value
	go func() {
		defer cancel()
		readLoop(ctx, conn, &userID)
	}()

	writeLoop(ctx, conn, &userID)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, userID *atomic.Value) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch out.Type {
		case proto.OutboundTypeAck, proto.OutboundTypeError:
			if out.Error != nil {
				fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
			}
			continue
		}

		switch out.Event {
		case proto.EventWelcome:
			var evt proto.EventWelcomeData
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal welcome: %v", err)
				continue
			}
			userID.Store(evt.UserData.ConnectionID)
			fmt.Printf("%s: %s\n", evt.User, evt.Text)
		case proto.EventMessage:
			var evt proto.EventMessageData
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", evt.User, evt.Text)
		case proto.EventRoomInfo:
			var evt proto.EventRoomInfoData
			if err := json.Unmarshal(out.Data, &evt); err != nil {
				log.Printf("unmarshal roomInfo: %v", err)
				continue
			}
			names := make([]string, 0, len(evt.Users))
			for _, u := range evt.Users {
				names = append(names, u.Username)
			}
			fmt.Printf("[room %s] online: %s\n", evt.Room, strings.Join(names, ", "))
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, userID *atomic.Value) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	var ack int64 = 1
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			id, _ := userID.Load().(string)
			payload, err := json.Marshal(proto.SendMessageData{UserID: id, Message: text})
			if err != nil {
				log.Printf("marshal message: %v", err)
				return
			}
			ack++
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendMessage, Ack: ack, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
