package lsp

import (
	"fmt"
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	zsync "zeta-sync/sync"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name: "zeta-sync",
		},
	}, nil
}

func (s *Server) initialized(context *glsp.Context, params *protocol.InitializedParams) error {
	log.Println("client initialized")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	log.Println("shutting down")
	s.mu.Lock()
	defer s.mu.Unlock()
	for uri, bd := range s.docs {
		if err := bd.engine.Close(); err != nil {
			log.Printf("closing engine for %s: %v", uri, err)
		}
		delete(s.docs, uri)
	}
	return nil
}

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	log.Printf("opened %s", uri)

	editor := newDocEditor(uri, params.TextDocument.Text)
	editor.setContext(context)

	engine, err := s.bind(uri, editor)
	if err != nil {
		return fmt.Errorf("failed to bind document %s: %w", uri, err)
	}

	s.mu.Lock()
	s.docs[uri] = &boundDoc{editor: editor, engine: engine}
	s.mu.Unlock()
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.mu.Lock()
	bd, ok := s.docs[uri]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("document not open: %s", uri)
	}
	bd.editor.setContext(context)

	for _, raw := range params.ContentChanges {
		switch change := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			text, _ := bd.editor.Text()
			start := offsetFromPosition(text, change.Range.Start)
			end := offsetFromPosition(text, change.Range.End)
			bd.editor.applyLocalChange(zsync.Change{
				Start: uint32(start),
				End:   uint32(end),
				Text:  change.Text,
			})
		case protocol.TextDocumentContentChangeEventWhole:
			text, _ := bd.editor.Text()
			bd.editor.applyLocalChange(zsync.Change{
				Start: 0,
				End:   uint32(len(text)),
				Text:  change.Text,
			})
		}
	}
	return nil
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	log.Printf("saved %s", params.TextDocument.URI)
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.mu.Lock()
	bd, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	log.Printf("closed %s", uri)
	return bd.engine.Close()
}
