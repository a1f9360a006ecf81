package rpc

import (
	"net/http"
)

type marketListParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Price   string `json:"price"`
}

type marketListingParams struct {
	Caller    string `json:"caller"`
	ListingID uint64 `json:"listingId"`
}

type marketPauseParams struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

type marketForwarderParams struct {
	Caller    string `json:"caller"`
	Forwarder string `json:"forwarder"`
}

type marketSellerParams struct {
	Seller string `json:"seller"`
}

type marketGetListingParams struct {
	ListingID uint64 `json:"listingId"`
}

func (s *Server) handleMarketList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketListParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	price, err := parseAmount(params.Price, "price")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	listing, err := s.node.List(caller, params.TokenID, price)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, listingJSON(listing))
}

func (s *Server) handleMarketDelist(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketListingParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Delist(caller, params.ListingID); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMarketBuy(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketListingParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Buy(caller, params.ListingID); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMarketPause(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketPauseParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.PauseMarket(caller, params.Paused); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMarketPauseListings(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketPauseParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.PauseListings(caller, params.Paused); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMarketUpdateForwarder(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketForwarderParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	fwd, err := parseAddress(params.Forwarder, "forwarder")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.UpdateTrustedForwarder(caller, fwd); err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleMarketGetListing(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketGetListingParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	listing, err := s.node.Listing(params.ListingID)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, listingJSON(listing))
}

func (s *Server) handleMarketGetListings(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params marketSellerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	seller, err := parseAddress(params.Seller, "seller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, err.Error(), nil)
		return
	}
	listings, err := s.node.Listings(seller)
	if err != nil {
		writeModuleError(w, req.ID, err)
		return
	}
	out := make([]ListingJSON, 0, len(listings))
	for _, l := range listings {
		out = append(out, listingJSON(l))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleEventsList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, s.node.Events())
}
