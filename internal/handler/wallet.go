package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chowline/chowline/internal/domain/wallet"
)

// walletTxnResponse is the wire representation of one ledger entry.
type walletTxnResponse struct {
	ID          string          `json:"id"`
	Type        wallet.TxnType  `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type walletResponse struct {
	Balance      decimal.Decimal     `json:"balance"`
	Transactions []walletTxnResponse `json:"transactions"`
}

// GetWallet returns the caller's balance and most recent ledger entries.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	txns, err := h.ledger.Recent(r.Context(), userID, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}

	out := make([]walletTxnResponse, len(txns))
	for i, txn := range txns {
		out[i] = walletTxnResponse{
			ID:          txn.ID,
			Type:        txn.Type,
			Amount:      txn.Amount,
			Description: txn.Description,
			Reference:   txn.Reference,
			CreatedAt:   txn.CreatedAt,
		}
	}
	respondJSON(w, r, http.StatusOK, walletResponse{Balance: balance, Transactions: out})
}
