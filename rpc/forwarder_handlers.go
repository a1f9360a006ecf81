package rpc

import (
	"encoding/hex"
	"net/http"
	"strings"

	"kudomarket/native/forwarder"
)

type forwardRequestJSON struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	Gas   uint64 `json:"gas"`
	Nonce uint64 `json:"nonce"`
	Data  string `json:"data"`
}

type forwarderExecuteParams struct {
	Relayer   string             `json:"relayer"`
	Request   forwardRequestJSON `json:"request"`
	Signature string             `json:"signature"`
}

type forwarderNonceParams struct {
	Signer string `json:"signer"`
}

func decodeHex(value, field string) ([]byte, *RPCError) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, &RPCError{Code: codeMarketInvalidParams, Message: "invalid " + field}
	}
	return raw, nil
}

func (s *Server) handleForwarderExecute(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params forwarderExecuteParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	relayer, err := parseAddress(params.Relayer, "relayer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	from, err := parseAddress(params.Request.From, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	to, err := parseAddress(params.Request.To, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	value, err := parseAmount(params.Request.Value, "value")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	data, rpcErr := decodeHex(params.Request.Data, "data")
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	sig, rpcErr := decodeHex(params.Signature, "signature")
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return
	}
	request := &forwarder.ForwardRequest{
		From:  from,
		To:    to,
		Value: value,
		Gas:   params.Request.Gas,
		Nonce: params.Request.Nonce,
		Data:  data,
	}
	if err := s.node.RelayExecute(relayer, request, sig); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleForwarderGetNonce(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params forwarderNonceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	signer, err := parseAddress(params.Signer, "signer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	nonce, err := s.node.RelayNonce(signer)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, nonce)
}
