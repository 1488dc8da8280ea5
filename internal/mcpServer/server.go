package mcpServer

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/rag"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

// Server exposes the document Q&A pipeline as MCP tools.
type Server struct {
	service rag.Service
	server  *mcp.Server
}

func NewServer(service rag.Service) *Server {
	s := &Server{
		service: service,
		server:  mcp.NewServer(&mcp.Implementation{Name: "doctalk", Version: Version}, nil),
	}
	s.registerTools()
	return s
}

// Handler serves MCP over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

type ListDocumentsInput struct{}

type ListDocumentsOutput struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}

type AskDocumentInput struct {
	DocumentId string `json:"document_id" jsonschema:"id returned when the document was uploaded"`
	Question   string `json:"question" jsonschema:"the question to answer from the document"`
	Emotion    string `json:"emotion,omitempty" jsonschema:"how the user is feeling, used to adjust the tone"`
}

type AskDocumentOutput struct {
	Answer     string `json:"answer"`
	DocumentId string `json:"document_id"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the ids of every indexed document",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Answer a question from the passages of one indexed document",
	}, s.handleAskDocument)
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	ids, err := s.service.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return nil, ListDocumentsOutput{Documents: ids, Count: len(ids)}, nil
}

func (s *Server) handleAskDocument(ctx context.Context, _ *mcp.CallToolRequest, input AskDocumentInput) (*mcp.CallToolResult, AskDocumentOutput, error) {
	if input.DocumentId == "" {
		return nil, AskDocumentOutput{}, errors.New("document_id is required")
	}

	result, err := s.service.Answer(ctx, commonModels.QueryContext{
		DocumentId:  input.DocumentId,
		Question:    input.Question,
		EmotionHint: input.Emotion,
		TextOnly:    true,
	})
	if err != nil {
		return nil, AskDocumentOutput{}, err
	}
	return nil, AskDocumentOutput{Answer: result.Text, DocumentId: input.DocumentId}, nil
}
