package http

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	payments "github.com/PaulElisha/KaiaChain-Payment-Protocol"
)

// Handler serves the settlement API. Gate and Auth are optional: without a
// Gate the pause endpoints are absent, without Auth the whole admin surface
// is absent.
type Handler struct {
	Engine *payments.Engine
	Gate   *payments.Gate
	Auth   *AdminAuth
	Logger *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Routes builds the chi router for the settlement API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/settle/native", h.handleSettle(variantNative))
	r.Post("/settle/token", h.handleSettle(variantToken))
	r.Post("/settle/wrap", h.handleSettle(variantWrap))
	r.Post("/settle/unwrap", h.handleSettle(variantUnwrap))

	r.Post("/operators", h.handleRegister)
	r.Delete("/operators/{operator}", h.handleUnregister)
	r.Get("/operators/{operator}/fee-destination", h.handleFeeDestination)
	r.Get("/intents/{operator}/{id}", h.handleProcessed)

	if h.Auth != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.Auth.Middleware)
			if h.Gate != nil {
				r.Post("/pause", h.handlePause)
				r.Post("/unpause", h.handleUnpause)
			}
			r.Post("/sweep", h.handleSweep)
		})
	}

	return r
}

type settlementVariant int

const (
	variantNative settlementVariant = iota
	variantToken
	variantWrap
	variantUnwrap
)

func (h *Handler) handleSettle(variant settlementVariant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SettleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if !common.IsHexAddress(req.Payer) {
			writeJSON(w, http.StatusBadRequest, SettleResponse{
				ErrorCode: string(payments.ErrCodeInvalidDetails),
				Error:     "invalid payer address",
			})
			return
		}
		payer := common.HexToAddress(req.Payer)

		value := new(big.Int)
		if req.Value != "" {
			parsed, ok := new(big.Int).SetString(req.Value, 10)
			if !ok {
				writeJSON(w, http.StatusBadRequest, SettleResponse{
					ErrorCode: string(payments.ErrCodeInvalidDetails),
					Error:     "invalid value",
				})
				return
			}
			value = parsed
		}

		var receipt *payments.SettlementReceipt
		var err error
		switch variant {
		case variantNative:
			receipt, err = h.Engine.SettleNative(r.Context(), &req.Intent, payer, value)
		case variantToken:
			receipt, err = h.Engine.SettleToken(r.Context(), &req.Intent, payer)
		case variantWrap:
			receipt, err = h.Engine.WrapAndSettle(r.Context(), &req.Intent, payer, value)
		case variantUnwrap:
			receipt, err = h.Engine.UnwrapAndSettle(r.Context(), &req.Intent, payer)
		}
		if err != nil {
			resp := settleFailure(err)
			h.logger().Info("settlement rejected",
				"operator", req.Intent.Operator.Hex(),
				"id", req.Intent.ID.Hex(),
				"code", resp.ErrorCode,
			)
			writeJSON(w, statusForCode(payments.CodeOf(err)), resp)
			return
		}

		writeJSON(w, http.StatusOK, SettleResponse{Success: true, Receipt: receipt})
	}
}

// handleRegister applies an operator-signed registration. The request is
// unauthenticated at the transport level; the operator's signature over the
// mutation is the authorization, so nobody can re-point another operator's
// fee destination.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !common.IsHexAddress(req.Operator) {
		writeError(w, http.StatusBadRequest, errInvalidAddress("operator"))
		return
	}
	operator := common.HexToAddress(req.Operator)

	// Deliberately permissive: the zero address is a valid destination.
	destination := operator
	if req.FeeDestination != "" {
		if !common.IsHexAddress(req.FeeDestination) {
			writeError(w, http.StatusBadRequest, errInvalidAddress("feeDestination"))
			return
		}
		destination = common.HexToAddress(req.FeeDestination)
	}

	deadline, signature, err := ParseMutationAuth(req.Deadline, req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Engine.RegisterOperatorSigned(operator, destination, deadline, signature); err != nil {
		writeJSON(w, statusForCode(payments.CodeOf(err)), settleFailure(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnregister(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "operator")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, errInvalidAddress("operator"))
		return
	}
	operator := common.HexToAddress(raw)

	var req UnregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	deadline, signature, err := ParseMutationAuth(req.Deadline, req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Engine.UnregisterOperatorSigned(operator, deadline, signature); err != nil {
		writeJSON(w, statusForCode(payments.CodeOf(err)), settleFailure(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFeeDestination(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "operator")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, errInvalidAddress("operator"))
		return
	}
	operator := common.HexToAddress(raw)

	resp := FeeDestinationResponse{Operator: operator.Hex()}
	if dest, ok := h.Engine.FeeDestination(operator); ok {
		resp.Registered = true
		resp.FeeDestination = dest.Hex()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleProcessed(w http.ResponseWriter, r *http.Request) {
	rawOperator := chi.URLParam(r, "operator")
	if !common.IsHexAddress(rawOperator) {
		writeError(w, http.StatusBadRequest, errInvalidAddress("operator"))
		return
	}
	id, err := payments.IntentIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	operator := common.HexToAddress(rawOperator)

	writeJSON(w, http.StatusOK, ProcessedResponse{
		Operator:  operator.Hex(),
		ID:        id.Hex(),
		Processed: h.Engine.IsProcessed(operator, id),
	})
}

// requireOwner resolves the verified token subject and checks it against the
// engine owner. The whole admin surface shares one authorization model: a
// valid token carrying the owner identity.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	subject, ok := AdminSubject(r.Context())
	if !ok || !common.IsHexAddress(subject) {
		writeError(w, http.StatusUnauthorized, ErrUnauthorized)
		return common.Address{}, false
	}
	caller := common.HexToAddress(subject)
	if caller == (common.Address{}) || caller != h.Engine.Owner() {
		writeJSON(w, statusForCode(payments.ErrCodeNotOwner), settleFailure(payments.ErrNotOwner))
		return common.Address{}, false
	}
	return caller, true
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireOwner(w, r); !ok {
		return
	}
	h.Gate.Pause()
	h.logger().Warn("settlement paused")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireOwner(w, r); !ok {
		return
	}
	h.Gate.Unpause()
	h.logger().Info("settlement unpaused")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !common.IsHexAddress(req.To) {
		writeError(w, http.StatusBadRequest, errInvalidAddress("to"))
		return
	}

	amount, err := h.Engine.Sweep(r.Context(), caller, req.Currency, common.HexToAddress(req.To))
	if err != nil {
		writeJSON(w, statusForCode(payments.CodeOf(err)), settleFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Amount: amount.String()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type errInvalidAddress string

func (e errInvalidAddress) Error() string {
	return "invalid " + string(e) + " address"
}
