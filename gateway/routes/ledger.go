package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hashmelody/core"
	coreerrors "hashmelody/core/errors"
	"hashmelody/crypto"
	"hashmelody/gateway/middleware"
	"hashmelody/native/oracle"
	"hashmelody/native/registry"
	"hashmelody/native/vault"
	"hashmelody/storage/receipts"
)

// Ledger is the read-only view of the node served over HTTP.
type Ledger interface {
	Registry() (*registry.Registry, error)
	Tokens() ([][20]byte, error)
	Price(token [20]byte) (oracle.Quote, error)
	Oracle(token [20]byte) (*oracle.Oracle, error)
	Vault(token [20]byte) (*vault.Vault, error)
	VaultBalance(token [20]byte) (uint64, error)
	TokenSupply(token [20]byte) (uint64, error)
	TokenBalance(token, holder [20]byte) (uint64, error)
	Balance(addr [20]byte) (uint64, error)
}

// History serves journaled purchases. It is optional.
type History interface {
	Purchases(ctx context.Context, token [20]byte, limit int) ([]receipts.Purchase, error)
	Receipt(ctx context.Context, id string) (*receipts.Purchase, bool, error)
}

type ledgerRoutes struct {
	ledger  Ledger
	history History
}

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

type registryResponse struct {
	Admin           string `json:"admin"`
	TreasuryWallet  string `json:"treasuryWallet"`
	OracleAuthority string `json:"oracleAuthority"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

type priceResponse struct {
	Token     string `json:"token"`
	Price     string `json:"price"`
	ViewCount string `json:"viewCount"`
	Supply    string `json:"supply"`
	Quadratic string `json:"quadraticTerm"`
	Views     string `json:"viewsTerm"`
	Floored   bool   `json:"floored"`
}

type vaultResponse struct {
	Token              string  `json:"token"`
	EscrowAccount      string  `json:"escrowAccount"`
	CollectionWallet   string  `json:"collectionWallet,omitempty"`
	LiquidityPool      *string `json:"liquidityPool,omitempty"`
	LiquidityThreshold string  `json:"liquidityThreshold"`
	TotalCollected     string  `json:"totalCollected"`
	LiquidityReady     bool    `json:"liquidityReady"`
	LiveBalance        *string `json:"liveBalance,omitempty"`
}

type tokenResponse struct {
	Token       string        `json:"token"`
	Supply      string        `json:"supply"`
	ViewCount   string        `json:"viewCount"`
	K           string        `json:"k"`
	M           string        `json:"m"`
	LastUpdated int64         `json:"lastUpdated"`
	Price       priceResponse `json:"price"`
	Vault       vaultResponse `json:"vault"`
}

type balanceResponse struct {
	Account string `json:"account"`
	Token   string `json:"token,omitempty"`
	Balance string `json:"balance"`
}

func (lr *ledgerRoutes) mount(r chi.Router, obs *middleware.Observability) {
	r.With(obs.Middleware("registry")).Get("/registry", lr.getRegistry)
	r.With(obs.Middleware("tokens")).Get("/tokens", lr.listTokens)
	r.With(obs.Middleware("token")).Get("/tokens/{token}", lr.getToken)
	r.With(obs.Middleware("price")).Get("/tokens/{token}/price", lr.getPrice)
	r.With(obs.Middleware("vault")).Get("/tokens/{token}/vault", lr.getVault)
	r.With(obs.Middleware("token_balance")).Get("/tokens/{token}/balances/{holder}", lr.getTokenBalance)
	r.With(obs.Middleware("account")).Get("/accounts/{address}", lr.getAccount)
	if lr.history != nil {
		r.With(obs.Middleware("purchases")).Get("/tokens/{token}/purchases", lr.listPurchases)
		r.With(obs.Middleware("receipt")).Get("/receipts/{id}", lr.getReceipt)
	}
}

func formatAmount(v uint64) string { return strconv.FormatUint(v, 10) }

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, coreerrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, coreerrors.ErrArithmeticOverflow):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Category: coreerrors.Label(err)})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Category: "validation"})
}

func pathAddress(w http.ResponseWriter, r *http.Request, param string) ([20]byte, bool) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, param))
	if err != nil {
		badRequest(w, "invalid "+param+": "+err.Error())
		return addr, false
	}
	return addr, true
}

func renderQuote(token [20]byte, q oracle.Quote) priceResponse {
	return priceResponse{
		Token:     crypto.FormatToken(token),
		Price:     formatAmount(q.Price),
		ViewCount: formatAmount(q.ViewCount),
		Supply:    formatAmount(q.Supply),
		Quadratic: formatAmount(q.Quadratic),
		Views:     formatAmount(q.Views),
		Floored:   q.Floored,
	}
}

func renderVault(v *vault.Vault) vaultResponse {
	out := vaultResponse{
		Token:              crypto.FormatToken(v.Token),
		EscrowAccount:      crypto.FormatAccount(v.EscrowAccount),
		LiquidityThreshold: formatAmount(v.LiquidityThreshold),
		TotalCollected:     formatAmount(v.TotalCollected),
		LiquidityReady:     v.LiquidityReady(),
	}
	if v.Bound() {
		out.CollectionWallet = crypto.FormatAccount(v.CollectionWallet)
	}
	if v.LiquidityPool != nil {
		pool := crypto.FormatAccount(*v.LiquidityPool)
		out.LiquidityPool = &pool
	}
	return out
}

func (lr *ledgerRoutes) getRegistry(w http.ResponseWriter, r *http.Request) {
	reg, err := lr.ledger.Registry()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registryResponse{
		Admin:           crypto.FormatAccount(reg.Admin),
		TreasuryWallet:  crypto.FormatAccount(reg.TreasuryWallet),
		OracleAuthority: crypto.FormatAccount(reg.OracleAuthority),
		CreatedAt:       reg.CreatedAt,
		UpdatedAt:       reg.UpdatedAt,
	})
}

func (lr *ledgerRoutes) listTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := lr.ledger.Tokens()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, crypto.FormatToken(token))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tokens": out})
}

func (lr *ledgerRoutes) getToken(w http.ResponseWriter, r *http.Request) {
	token, ok := pathAddress(w, r, "token")
	if !ok {
		return
	}
	o, err := lr.ledger.Oracle(token)
	if err != nil {
		writeError(w, err)
		return
	}
	quote, err := lr.ledger.Price(token)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := lr.ledger.Vault(token)
	if err != nil {
		writeError(w, err)
		return
	}
	supply, err := lr.ledger.TokenSupply(token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Token:       crypto.FormatToken(token),
		Supply:      formatAmount(supply),
		ViewCount:   formatAmount(o.ViewCount),
		K:           formatAmount(o.Params.K),
		M:           formatAmount(o.Params.M),
		LastUpdated: o.LastUpdated,
		Price:       renderQuote(token, quote),
		Vault:       renderVault(v),
	})
}

func (lr *ledgerRoutes) getPrice(w http.ResponseWriter, r *http.Request) {
	token, ok := pathAddress(w, r, "token")
	if !ok {
		return
	}
	quote, err := lr.ledger.Price(token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderQuote(token, quote))
}

func (lr *ledgerRoutes) getVault(w http.ResponseWriter, r *http.Request) {
	token, ok := pathAddress(w, r, "token")
	if !ok {
		return
	}
	v, err := lr.ledger.Vault(token)
	if err != nil {
		writeError(w, err)
		return
	}
	out := renderVault(v)
	if v.Bound() {
		live, err := lr.ledger.VaultBalance(token)
		if err != nil {
			writeError(w, err)
			return
		}
		rendered := formatAmount(live)
		out.LiveBalance = &rendered
	}
	writeJSON(w, http.StatusOK, out)
}

func (lr *ledgerRoutes) getTokenBalance(w http.ResponseWriter, r *http.Request) {
	token, ok := pathAddress(w, r, "token")
	if !ok {
		return
	}
	holder, ok := pathAddress(w, r, "holder")
	if !ok {
		return
	}
	balance, err := lr.ledger.TokenBalance(token, holder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		Account: crypto.FormatAccount(holder),
		Token:   crypto.FormatToken(token),
		Balance: formatAmount(balance),
	})
}

func (lr *ledgerRoutes) getAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	balance, err := lr.ledger.Balance(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		Account: crypto.FormatAccount(addr),
		Balance: formatAmount(balance),
	})
}

type purchaseResponse struct {
	ReceiptID      string `json:"receiptId"`
	Token          string `json:"token"`
	Buyer          string `json:"buyer"`
	Amount         string `json:"amount"`
	Price          string `json:"price"`
	TotalCost      string `json:"totalCost"`
	PlatformFee    string `json:"platformFee"`
	VaultAmount    string `json:"vaultAmount"`
	Supply         string `json:"supply"`
	TotalCollected string `json:"totalCollected"`
	Timestamp      int64  `json:"timestamp"`
}

func renderPurchase(p receipts.Purchase) purchaseResponse {
	return purchaseResponse{
		ReceiptID:      p.ReceiptID,
		Token:          p.Token,
		Buyer:          p.Buyer,
		Amount:         p.Amount,
		Price:          p.Price,
		TotalCost:      p.TotalCost,
		PlatformFee:    p.PlatformFee,
		VaultAmount:    p.VaultAmount,
		Supply:         p.Supply,
		TotalCollected: p.TotalCollected,
		Timestamp:      p.Timestamp,
	}
}

func (lr *ledgerRoutes) listPurchases(w http.ResponseWriter, r *http.Request) {
	token, ok := pathAddress(w, r, "token")
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}
	rows, err := lr.history.Purchases(r.Context(), token, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]purchaseResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, renderPurchase(row))
	}
	writeJSON(w, http.StatusOK, map[string][]purchaseResponse{"purchases": out})
}

func (lr *ledgerRoutes) getReceipt(w http.ResponseWriter, r *http.Request) {
	row, ok, err := lr.history.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "receipt not found"})
		return
	}
	writeJSON(w, http.StatusOK, renderPurchase(*row))
}
