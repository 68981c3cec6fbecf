package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/application"
	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/platform/logger"
	"github.com/atvirokodosprendimai/culturalatlas/internal/presentation"
	"github.com/atvirokodosprendimai/culturalatlas/internal/search"
)

const (
	codeParse          = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeNotFound       = 40400
	codeApplication    = 40000
	codeInternal       = 50000
)

type Server struct {
	service  *application.GraphService
	log      *logger.Logger
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Start listens on a unix socket readable only by the owner and serves
// newline-delimited JSON-RPC 2.0 requests until Close.
func Start(path string, service *application.GraphService, log *logger.Logger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, log: log, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: codeParse, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}, ID: req.ID}
	}
	scope := s.service.NewScope()

	switch req.Method {
	case "entity.get":
		var p struct {
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) || p.ID == 0 {
			return invalidParams(req.ID)
		}
		e, err := s.service.BuildEntity(ctx, p.ID, application.Full)
		if err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, presentation.Entity(e))
	case "entity.list", "search.run":
		var p struct {
			IDs     []uint          `json:"ids"`
			Classes []string        `json:"system_classes"`
			View    string          `json:"view"`
			Search  json.RawMessage `json:"search"`
			Limit   int             `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		q := application.Query{IDs: p.IDs, View: p.View, Limit: p.Limit}
		for _, c := range p.Classes {
			q.Classes = append(q.Classes, domain.SystemClass(strings.TrimSpace(c)))
		}
		if len(p.Search) > 0 && string(p.Search) != "null" {
			groups, err := parseSearch(p.Search)
			if err != nil {
				return s.fail(req, err)
			}
			q.Groups = groups
		}
		items, err := s.service.QueryEntities(ctx, scope, q)
		if err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, presentation.Entities(items))
	case "entity.save":
		var p application.SaveInput
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		e, err := s.service.SaveEntity(ctx, scope, p)
		if err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, presentation.Entity(e))
	case "entity.delete":
		var p struct {
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) || p.ID == 0 {
			return invalidParams(req.ID)
		}
		if err := s.service.DeleteEntity(ctx, scope, p.ID); err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, map[string]any{"deleted": p.ID})
	case "links.list":
		var p struct {
			ID      uint   `json:"id"`
			Codes   string `json:"codes"`
			Inverse bool   `json:"inverse"`
		}
		if !decodeParams(req.Params, &p) || p.ID == 0 {
			return invalidParams(req.ID)
		}
		links, err := s.service.GetLinks(ctx, []uint{p.ID}, splitCSV(p.Codes), p.Inverse)
		if err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, presentation.Links(links))
	case "linked.get":
		var p struct {
			ID      uint   `json:"id"`
			Code    string `json:"code"`
			Inverse bool   `json:"inverse"`
			Safe    bool   `json:"safe"`
		}
		if !decodeParams(req.Params, &p) || p.ID == 0 || strings.TrimSpace(p.Code) == "" {
			return invalidParams(req.ID)
		}
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		if p.Safe {
			e, err := s.service.GetLinkedEntitySafe(ctx, p.ID, code, p.Inverse)
			if err != nil {
				return s.fail(req, err)
			}
			return ok(req.ID, map[string]any{"entity": presentation.Entity(e)})
		}
		e, err := s.service.GetLinkedEntity(ctx, p.ID, code, p.Inverse)
		if err != nil {
			return s.fail(req, err)
		}
		if e == nil {
			return ok(req.ID, map[string]any{"entity": nil})
		}
		return ok(req.ID, map[string]any{"entity": presentation.Entity(*e)})
	case "types.tree":
		tree, err := scope.Tree(ctx)
		if err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, presentation.TypeTree(tree))
	case "types.subs", "types.root":
		var p struct {
			ID uint `json:"id"`
		}
		if !decodeParams(req.Params, &p) || p.ID == 0 {
			return invalidParams(req.ID)
		}
		var (
			ids []uint
			err error
		)
		if req.Method == "types.subs" {
			ids, err = scope.SubIDsOf(ctx, p.ID)
		} else {
			ids, err = scope.RootOf(ctx, p.ID)
		}
		if err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, ids)
	case "types.reparent":
		var p struct {
			ID       uint `json:"id"`
			ParentID uint `json:"parent_id"`
		}
		if !decodeParams(req.Params, &p) || p.ID == 0 || p.ParentID == 0 {
			return invalidParams(req.ID)
		}
		if err := s.service.ReparentType(ctx, scope, p.ID, p.ParentID); err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, map[string]any{"id": p.ID, "parent_id": p.ParentID})
	case "traverse.run":
		var p struct {
			StartEntityID uint   `json:"start_entity_id"`
			MaxDepth      int    `json:"max_depth"`
			Codes         string `json:"codes"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		hops, err := s.service.Traverse(ctx, domain.TraverseQuery{
			StartEntityID: p.StartEntityID,
			MaxDepth:      p.MaxDepth,
			Properties:    splitCSV(p.Codes),
		})
		if err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, presentation.Hops(hops))
	case "logs.list":
		var p struct {
			ID    uint `json:"id"`
			Limit int  `json:"limit"`
		}
		if !decodeParams(req.Params, &p) || p.ID == 0 {
			return invalidParams(req.ID)
		}
		logs, err := s.service.ListLogs(ctx, p.ID, p.Limit)
		if err != nil {
			return s.fail(req, err)
		}
		return ok(req.ID, presentation.Logs(logs))
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeMethodNotFound, Message: "method not found"}, ID: req.ID}
	}
}

// parseSearch accepts either a JSON string holding the search document or
// the document itself.
func parseSearch(raw json.RawMessage) ([]search.Group, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return search.ParseGroups([]string{text})
	}
	return search.ParseGroups([]string{string(raw)})
}

func (s *Server) fail(req request, err error) response {
	switch {
	case errors.Is(err, domain.ErrInvalidGeometry):
		return appError(req.ID, err)
	case errors.Is(err, domain.ErrNotFound):
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeNotFound, Message: err.Error()}, ID: req.ID}
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidOperator),
		errors.Is(err, domain.ErrTypeSelfParent),
		errors.Is(err, domain.ErrTypeCycle),
		errors.Is(err, domain.ErrReadOnlyType),
		errors.Is(err, domain.ErrTypeInUse):
		return appError(req.ID, err)
	default:
		s.log.Error("rpc call failed", "method", req.Method, "error", err)
		return internalError(req.ID, err)
	}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return true
	}
	return json.Unmarshal(raw, out) == nil
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func ok(id any, result any) response {
	return response{JSONRPC: "2.0", Result: result, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidParams, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeApplication, Message: err.Error()}, ID: id}
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInternal, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
}
