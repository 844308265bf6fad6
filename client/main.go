// Interactive test client. Authenticates, then forwards simple commands:
//
//	create [room]      mode <name> <room>   join <room>    leave <room>
//	start <room>       vote <room> <uid>    guess <room> <text>
//	stats              board
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	msgHeartbeat      = 1
	msgAuth           = 2
	msgCreateSession  = 101
	msgSelectMode     = 102
	msgJoinGame       = 103
	msgLeaveGame      = 104
	msgStartGame      = 105
	msgEndGame        = 106
	msgStartVoting    = 201
	msgCastVote       = 202
	msgSubmitGuess    = 203
	msgGetStats       = 401
	msgGetLeaderboard = 402
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	var data []byte
	if v != nil {
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return err
		}
	}
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	userID := flag.Int64("user", 1, "user id")
	name := flag.String("name", "tester", "display name")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	// Heartbeats keep the read deadline alive.
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := send(c, msgHeartbeat, nil); err != nil {
				return
			}
		}
	}()

	log.Println("Authenticating...")
	if err := send(c, msgAuth, map[string]interface{}{"user_id": *userID, "name": *name}); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. Commands: create/mode/join/leave/start/vote/endvote/guess/end/stats/board")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "create":
				room := ""
				if len(fields) > 1 {
					room = fields[1]
				}
				err = send(c, msgCreateSession, map[string]string{"room_id": room})
			case "mode":
				if len(fields) < 3 {
					log.Println("usage: mode <name> <room>")
					continue
				}
				err = send(c, msgSelectMode, map[string]string{"room_id": fields[2], "mode": fields[1]})
			case "join":
				err = send(c, msgJoinGame, map[string]string{"room_id": fields[1]})
			case "leave":
				err = send(c, msgLeaveGame, map[string]string{"room_id": fields[1]})
			case "start":
				err = send(c, msgStartGame, map[string]string{"room_id": fields[1]})
			case "endvote":
				err = send(c, msgStartVoting, map[string]string{"room_id": fields[1]})
			case "vote":
				if len(fields) < 3 {
					log.Println("usage: vote <room> <uid>")
					continue
				}
				target, _ := strconv.ParseInt(fields[2], 10, 64)
				err = send(c, msgCastVote, map[string]interface{}{"room_id": fields[1], "target_id": target})
			case "guess":
				if len(fields) < 3 {
					log.Println("usage: guess <room> <text>")
					continue
				}
				err = send(c, msgSubmitGuess, map[string]string{"room_id": fields[1], "guess": strings.Join(fields[2:], " ")})
			case "end":
				err = send(c, msgEndGame, map[string]string{"room_id": fields[1]})
			case "stats":
				err = send(c, msgGetStats, map[string]int64{"user_id": *userID})
			case "board":
				err = send(c, msgGetLeaderboard, map[string]int{"limit": 10})
			default:
				log.Printf("unknown command %q", fields[0])
				continue
			}
			if err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
