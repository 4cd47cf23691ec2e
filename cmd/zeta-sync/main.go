package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"zeta-sync/internal/crdt"
	"zeta-sync/internal/lsp"
	"zeta-sync/internal/store"
	zsync "zeta-sync/sync"
)

// Version is set during the build process using ldflags.
var Version = "(dev) v0.0.0"

func main() {
	versionFlag := flag.Bool("version", false, "print the version of the program")
	logfileFlag := flag.String("logfile", "", "path to log file")
	dbFlag := flag.String("db", "", "path to the snapshot database (defaults to <tempdir>/zeta-sync/snapshots.db)")
	relayFlag := flag.String("relay", "", "relay base URL to bridge documents through, e.g. ws://localhost:8081/relay/")
	replicaFlag := flag.Int("replica", 0, "replica id; 0 picks one from the process id")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("zeta-sync version %s\n", Version)
		return
	}

	runtime.GOMAXPROCS(4)

	if *logfileFlag != "" {
		logFile, err := os.OpenFile(*logfileFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer logFile.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
		log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	} else {
		log.SetOutput(io.Discard)
	}
	commonlog.Configure(2, nil)
	log.Println("starting zeta-sync LSP server...")

	dbPath := *dbFlag
	if dbPath == "" {
		dir := filepath.Join(os.TempDir(), "zeta-sync")
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("failed to create snapshot directory: %v", err)
		}
		dbPath = filepath.Join(dir, "snapshots.db")
	}
	snapshots, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open snapshot store: %v", err)
	}
	defer snapshots.Close()

	replica := uint16(*replicaFlag)
	if replica == 0 {
		replica = uint16(os.Getpid())
	}

	binder := &documentBinder{
		store:   snapshots,
		replica: replica,
		relay:   *relayFlag,
	}

	server, err := lsp.NewServer(binder.bind)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	if err := server.RunStdio(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// documentBinder creates one internal/crdt.Text, one Sync Engine, and
// (when a relay address was configured) one crdt.RelayClient per document
// the LSP client opens, seeded from whatever snapshot store has for it.
type documentBinder struct {
	store   *store.SQLiteStore
	replica uint16
	relay   string
}

func (b *documentBinder) bind(uri string, editor zsync.Editor) (*zsync.Engine, error) {
	initial := ""
	rec, err := b.store.GetSnapshot(uri)
	switch err {
	case nil:
		initial = rec.Text
	case store.ErrNotFound:
	default:
		return nil, err
	}

	text := crdt.NewText(b.replica, rand.New(rand.NewSource(time.Now().UnixNano())), initial)

	if b.relay != "" {
		if _, err := crdt.DialRelay(b.relay, docIDFor(uri), text); err != nil {
			log.Printf("relay unavailable for %s, continuing offline: %v", uri, err)
		}
	}

	engine, err := zsync.NewEngine(context.Background(), editor, text, zsync.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if initial != "" {
		engine.ResyncNow()
	}

	go b.persistPeriodically(uri, engine)
	return engine, nil
}

// persistPeriodically writes a snapshot of engine's document every few
// seconds, stopping as soon as engine.Close runs. Each snapshot is read
// through engine.Snapshot, which hands the read to the Engine's own
// scheduler goroutine — the single cooperative loop that otherwise owns
// the document mirror — rather than touching it directly from this
// ticker's goroutine.
func (b *documentBinder) persistPeriodically(uri string, engine *zsync.Engine) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var version int64
	for {
		select {
		case <-ticker.C:
			text, hasCR, ok := engine.Snapshot()
			if !ok {
				return
			}
			version++
			err := b.store.UpsertSnapshot(&store.SnapshotRecord{
				DocumentID: uri,
				Text:       text,
				CRLF:       hasCR,
				Version:    version,
				UpdatedAt:  time.Now().UnixMilli(),
			})
			if err != nil {
				log.Printf("snapshot write failed for %s: %v", uri, err)
			}
		case <-engine.Done():
			return
		}
	}
}

// docIDFor maps an LSP document URI to the identifier its relay room is
// keyed by. The URI is already a stable, collision-free identifier, so no
// further hashing is needed.
func docIDFor(uri string) string {
	return uri
}
