package rpc

import (
	"net/http"
)

type accessRoleParams struct {
	Caller  string `json:"caller"`
	Role    string `json:"role"`
	Address string `json:"address"`
}

type accessHasRoleParams struct {
	Role    string `json:"role"`
	Address string `json:"address"`
}

type accessAbilityParams struct {
	Caller     string `json:"caller"`
	Capability string `json:"capability"`
}

type tokenMintParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type tokenApproveParams struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

type tokenBalanceParams struct {
	Address string `json:"address"`
}

func (s *Server) handleAccessGrantRole(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params accessRoleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	member, err := parseAddress(params.Address, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.GrantRole(caller, params.Role, member); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleAccessRevokeRole(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params accessRoleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	member, err := parseAddress(params.Address, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.RevokeRole(caller, params.Role, member); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleAccessHasRole(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params accessHasRoleParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	member, err := parseAddress(params.Address, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, s.node.HasRole(params.Role, member))
}

func (s *Server) handleAccessRevokeAbility(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params accessAbilityParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.RevokeAbility(caller, params.Capability); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTokenMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params tokenMintParams
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
	amount, err := parseAmount(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.MintFunds(caller, to, amount); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTokenApprove(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params tokenApproveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Owner, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.ApproveFunds(owner, amount); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTokenBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params tokenBalanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.node.Balance(addr)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balance.String())
}
