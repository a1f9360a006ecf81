package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"kudomarket/core"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the marketplace node over a single-endpoint JSON-RPC
// surface. Mutating methods require the shared bearer token when one is
// configured via KUDO_RPC_TOKEN.
type Server struct {
	node      *core.Node
	authToken string
}

func NewServer(node *core.Node) *Server {
	token := strings.TrimSpace(os.Getenv("KUDO_RPC_TOKEN"))
	return &Server{node: node, authToken: token}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	switch req.Method {
	case "market_list":
		s.mutating(w, r, req, s.handleMarketList)
	case "market_delist":
		s.mutating(w, r, req, s.handleMarketDelist)
	case "market_buy":
		s.mutating(w, r, req, s.handleMarketBuy)
	case "market_pause":
		s.mutating(w, r, req, s.handleMarketPause)
	case "market_pauseListings":
		s.mutating(w, r, req, s.handleMarketPauseListings)
	case "market_updateForwarder":
		s.mutating(w, r, req, s.handleMarketUpdateForwarder)
	case "market_getListing":
		s.handleMarketGetListing(w, r, req)
	case "market_getListings":
		s.handleMarketGetListings(w, r, req)
	case "forwarder_execute":
		s.mutating(w, r, req, s.handleForwarderExecute)
	case "forwarder_getNonce":
		s.handleForwarderGetNonce(w, r, req)
	case "card_mint":
		s.mutating(w, r, req, s.handleCardMint)
	case "card_batchMint":
		s.mutating(w, r, req, s.handleCardBatchMint)
	case "card_setTokenURIs":
		s.mutating(w, r, req, s.handleCardSetTokenURIs)
	case "card_approve":
		s.mutating(w, r, req, s.handleCardApprove)
	case "card_approveMarket":
		s.mutating(w, r, req, s.handleCardApproveMarket)
	case "card_setRoyalty":
		s.mutating(w, r, req, s.handleCardSetRoyalty)
	case "card_setContractURI":
		s.mutating(w, r, req, s.handleCardSetContractURI)
	case "card_contractURI":
		s.handleCardContractURI(w, r, req)
	case "card_get":
		s.handleCardGet(w, r, req)
	case "card_ownerOf":
		s.handleCardOwnerOf(w, r, req)
	case "access_grantRole":
		s.mutating(w, r, req, s.handleAccessGrantRole)
	case "access_revokeRole":
		s.mutating(w, r, req, s.handleAccessRevokeRole)
	case "access_hasRole":
		s.handleAccessHasRole(w, r, req)
	case "access_revokeAbility":
		s.mutating(w, r, req, s.handleAccessRevokeAbility)
	case "token_mint":
		s.mutating(w, r, req, s.handleTokenMint)
	case "token_approve":
		s.mutating(w, r, req, s.handleTokenApprove)
	case "token_balanceOf":
		s.handleTokenBalanceOf(w, r, req)
	case "events_list":
		s.handleEventsList(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %s not found", req.Method), nil)
	}
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

func (s *Server) mutating(w http.ResponseWriter, r *http.Request, req *RPCRequest, next handlerFunc) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	next(w, r, req)
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected a single params object")
	}
	return json.Unmarshal(req.Params[0], out)
}
