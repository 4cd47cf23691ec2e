package crdt

import (
	"encoding/json"
	"fmt"
	stdsync "sync"

	"github.com/gorilla/websocket"

	zsync "zeta-sync/sync"
)

// wireDelta is the JSON envelope RelayClient exchanges with a relay room:
// one message per local Transact batch. Ops replayed from a peer's message
// raise non-local events and are not sent on.
type wireDelta struct {
	Delta []zsync.DeltaOp `json:"delta"`
}

// RelayClient bridges a Text to a relay room over a websocket: every local
// event the Text raises is forwarded to the room, and every message that
// arrives from a peer is replayed into the Text as a sequence of remote
// Insert/Delete calls.
type RelayClient struct {
	mu          stdsync.Mutex
	conn        *websocket.Conn
	text        *Text
	unsubscribe func()
	done        chan struct{}
}

// DialRelay connects to addr (e.g. "ws://localhost:8081/relay/") + docID
// and starts bridging text's local events to the room and the room's
// messages into text.
func DialRelay(addr, docID string, text *Text) (*RelayClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr+docID, nil)
	if err != nil {
		return nil, fmt.Errorf("crdt: dial relay: %w", err)
	}

	rc := &RelayClient{conn: conn, text: text, done: make(chan struct{})}
	rc.unsubscribe = text.Observe(func(ev zsync.Event) {
		if !ev.Local {
			return
		}
		rc.send(ev.Delta)
	})
	go rc.readLoop()
	return rc, nil
}

func (rc *RelayClient) send(delta []zsync.DeltaOp) {
	msg, err := json.Marshal(wireDelta{Delta: delta})
	if err != nil {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.conn.WriteMessage(websocket.TextMessage, msg)
}

func (rc *RelayClient) readLoop() {
	defer close(rc.done)
	for {
		_, msg, err := rc.conn.ReadMessage()
		if err != nil {
			return
		}
		var w wireDelta
		if err := json.Unmarshal(msg, &w); err != nil {
			continue
		}
		rc.applyRemote(w.Delta)
	}
}

// applyRemote replays a peer's delta as a sequence of byte-offset
// Insert/Delete calls against text, each firing its own non-local event —
// the same path a relay-free caller uses to apply an externally-sourced
// edit.
func (rc *RelayClient) applyRemote(delta []zsync.DeltaOp) {
	pos := 0
	for _, op := range delta {
		switch op.Kind {
		case zsync.DeltaRetain:
			pos += op.N
		case zsync.DeltaInsert:
			rc.text.Insert(pos, op.Text)
			pos += len(op.Text)
		case zsync.DeltaDelete:
			rc.text.Delete(pos, op.N)
		case zsync.DeltaInsertEmbedded:
			// No native-offset effect; nothing to replay.
		}
	}
}

// Close unsubscribes from text and closes the websocket connection.
func (rc *RelayClient) Close() error {
	rc.unsubscribe()
	err := rc.conn.Close()
	<-rc.done
	return err
}
