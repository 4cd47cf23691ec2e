package lsp

import (
	stdsync "sync"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	zsync "zeta-sync/sync"
)

// BindFunc creates the Sync Engine for a newly opened document. Callers
// wire editor to whatever CRDTText backs that document — a relay-attached
// internal/crdt.Text, typically — and any persistence (internal/store)
// they want snapshots written to.
type BindFunc func(uri string, editor zsync.Editor) (*zsync.Engine, error)

type boundDoc struct {
	editor *docEditor
	engine *zsync.Engine
}

// Server is the glsp handler set for zeta-sync: it binds one Sync Engine
// per open document and otherwise does nothing else LSP servers normally
// do — no completion, no go-to-definition, no symbol index.
type Server struct {
	mu      stdsync.Mutex
	handler *protocol.Handler
	bind    BindFunc
	docs    map[string]*boundDoc
}

// NewServer returns a glsp server.Server ready to RunStdio, backed by bind
// for document binding.
func NewServer(bind BindFunc) (*server.Server, error) {
	s := &Server{
		bind: bind,
		docs: make(map[string]*boundDoc),
	}

	s.handler = &protocol.Handler{
		Initialize:            s.initialize,
		Initialized:           s.initialized,
		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidSave:   s.textDocumentDidSave,
		TextDocumentDidClose:  s.textDocumentDidClose,
		Shutdown:              s.shutdown,
	}

	return server.NewServer(s.handler, "zeta-sync", false), nil
}
