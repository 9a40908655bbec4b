// Package mcp exposes campusdesk to MCP clients as a stdio JSON-RPC 2.0
// server: a question-answering tool plus read-only operator tools.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/campusdesk/campusdesk/pkg/budget"
	"github.com/campusdesk/campusdesk/pkg/cache"
	"github.com/campusdesk/campusdesk/pkg/models"
	"github.com/campusdesk/campusdesk/pkg/resolver"
	"github.com/campusdesk/campusdesk/pkg/tracker"
)

const protocolVersion = "2024-11-05"

// Resolver answers questions.
type Resolver interface {
	Resolve(ctx context.Context, query string, lang models.Language) resolver.Result
}

// Auditor persists and searches chat exchanges.
type Auditor interface {
	Log(ctx context.Context, ex models.ChatExchange) error
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.ChatExchange, error)
}

// Deps are the components the tools read from. Nil optional fields make the
// matching tool report that the feature is not configured.
type Deps struct {
	Resolver Resolver
	Tracker  tracker.Tracker
	Cache    cache.Statter
	Budget   *budget.Enforcer
	Auditor  Auditor
	Logger   *logrus.Entry
}

// Server is a minimal MCP server over line-delimited JSON-RPC.
type Server struct {
	deps    Deps
	log     *logrus.Entry
	version string
}

// New creates an MCP Server.
func New(d Deps, version string) *Server {
	log := d.Logger
	if log == nil {
		log = logrus.WithField("component", "mcp")
	}
	return &Server{deps: d, log: log, version: version}
}

// Run reads requests from r line by line and writes responses to w. It
// blocks until r is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(w, rpcError(nil, CodeParseError, "parse error"))
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil {
			s.write(w, resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return result(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "campusdesk", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return result(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return rpcError(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return rpcError(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return result(req.ID, errorResult(fmt.Sprintf("unknown tool: %s", params.Name)))
	}

	s.log.WithField("tool", params.Name).Debug("tool call")
	return result(req.ID, handler(ctx, s, params.Arguments))
}

func (s *Server) write(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.WithError(err).Error("marshal response")
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.log.WithError(err).Error("write response")
	}
}
