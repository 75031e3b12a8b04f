package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/cypherlabs/cypher-indexer/service/state"
	"github.com/cypherlabs/cypher-indexer/service/storage"
)

const (
	maxAddressLength = 100 // base58 addresses are 44 chars, give buffer
	defaultTxLimit   = 50
	maxTxLimit       = 1000
)

// Valid base58 characters (no 0, O, I, l).
var validBase58Regex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// handleGetAccount returns the latest indexed record for an account.
// GET /api/v1/accounts/{address}
func handleGetAccount(querier Querier, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := validateBase58(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		rec, err := querier.GetAccount(r.Context(), address)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, "account not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get account", "address", address, "error", err)
			writeError(w, "upstream storage error", http.StatusBadGateway)
			return
		}

		writeJSON(w, rec, http.StatusOK)
	})
}

// handleGetTransaction returns an indexed transaction summary.
// GET /api/v1/transactions/{signature}
func handleGetTransaction(querier Querier, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.PathValue("signature")
		if err := validateBase58(signature); err != nil {
			logger.Debug("invalid signature", "signature", signature, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		rec, err := querier.GetTransaction(r.Context(), signature)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, "transaction not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get transaction", "signature", signature, "error", err)
			writeError(w, "upstream storage error", http.StatusBadGateway)
			return
		}

		writeJSON(w, rec, http.StatusOK)
	})
}

// handleListTransactions returns recent transactions mentioning an address,
// newest first.
// GET /api/v1/accounts/{address}/transactions?limit={n}
func handleListTransactions(querier Querier, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")
		if err := validateBase58(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		limit := defaultTxLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > maxTxLimit {
				writeError(w, fmt.Sprintf("limit must be between 1 and %d", maxTxLimit), http.StatusBadRequest)
				return
			}
			limit = n
		}

		recs, err := querier.GetTransactionsByAddress(r.Context(), address, limit)
		if err != nil {
			logger.Error("failed to list transactions", "address", address, "error", err)
			writeError(w, "upstream storage error", http.StatusBadGateway)
			return
		}

		writeJSON(w, map[string]any{
			"address":      address,
			"transactions": recs,
		}, http.StatusOK)
	})
}

type stateEntryResponse struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	Slot    uint64 `json:"slot"`
}

// handleListState lists live in-memory accounts of one kind. Intended for
// operational inspection; the scan is linear over the table.
// GET /api/v1/state/accounts?kind={kind}
func handleListState(table *state.Table, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		if kind == "" {
			writeError(w, "kind is required", http.StatusBadRequest)
			return
		}

		entries := table.ByKind(kind)
		resp := make([]stateEntryResponse, len(entries))
		for i, e := range entries {
			resp[i] = stateEntryResponse{
				Address: e.Address.String(),
				Kind:    e.Entry.Account.Kind(),
				Slot:    e.Entry.Slot,
			}
		}

		logger.Debug("state listed", "kind", kind, "count", len(resp))
		writeJSON(w, map[string]any{
			"kind":     kind,
			"count":    len(resp),
			"accounts": resp,
		}, http.StatusOK)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateBase58 validates an address or signature path parameter.
func validateBase58(v string) error {
	if v == "" {
		return errors.New("value is required")
	}
	if len(v) > maxAddressLength {
		return fmt.Errorf("value too long: maximum length is %d characters", maxAddressLength)
	}
	if !validBase58Regex.MatchString(v) {
		return errors.New("invalid base58 value")
	}
	return nil
}
