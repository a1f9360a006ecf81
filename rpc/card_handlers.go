package rpc

import (
	"net/http"

	"kudomarket/crypto"
)

type cardMintParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	URI    string `json:"uri"`
}

type cardBatchMintParams struct {
	Caller string   `json:"caller"`
	To     string   `json:"to"`
	URIs   []string `json:"uris"`
}

type cardSetURIsParams struct {
	Caller   string   `json:"caller"`
	TokenIDs []uint64 `json:"tokenIds"`
	URIs     []string `json:"uris"`
}

type cardApproveParams struct {
	Caller   string `json:"caller"`
	Operator string `json:"operator"`
	TokenID  uint64 `json:"tokenId"`
}

type cardApproveMarketParams struct {
	Caller   string `json:"caller"`
	Market   string `json:"market"`
	Approved bool   `json:"approved"`
}

type cardRoyaltyParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	FeeBps    uint32 `json:"feeBps"`
}

type cardContractURIParams struct {
	Caller string `json:"caller"`
	URI    string `json:"uri"`
}

type cardTokenParams struct {
	TokenID uint64 `json:"tokenId"`
}

func (s *Server) handleCardMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardMintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	to, err := parseAddress(params.To, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	tokenID, err := s.node.MintCard(caller, to, params.URI)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"tokenId": tokenID})
}

func (s *Server) handleCardBatchMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardBatchMintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	to, err := parseAddress(params.To, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	tokenIDs, err := s.node.BatchMintCards(caller, to, params.URIs)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string][]uint64{"tokenIds": tokenIDs})
}

func (s *Server) handleCardSetTokenURIs(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardSetURIsParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetTokenURIs(caller, params.TokenIDs, params.URIs); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleCardApprove(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardApproveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	operator, err := parseAddress(params.Operator, "operator")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.ApproveCard(caller, operator, params.TokenID); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleCardApproveMarket(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardApproveMarketParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	marketAddr, err := parseAddress(params.Market, "market")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.ApproveMarket(caller, marketAddr, params.Approved); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleCardSetRoyalty(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardRoyaltyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := parseAddress(params.Recipient, "recipient")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetRoyalty(caller, recipient, params.FeeBps); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleCardSetContractURI(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardContractURIParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.SetContractURI(caller, params.URI); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleCardContractURI(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	uri, err := s.node.ContractURI()
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"uri": uri})
}

func (s *Server) handleCardGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardTokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	record, err := s.node.Card(params.TokenID)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, cardJSON(record))
}

func (s *Server) handleCardOwnerOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params cardTokenParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	owner, err := s.node.CardOwner(params.TokenID)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"owner": crypto.MustAddressFromBytes(owner).String()})
}
