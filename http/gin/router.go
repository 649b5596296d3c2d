// Package gin mounts the settlement API on a gin engine. It is a thin
// adapter over the same request/response types the chi surface uses; all
// settlement logic stays in the core engine.
package gin

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	payments "github.com/PaulElisha/KaiaChain-Payment-Protocol"
	httpapi "github.com/PaulElisha/KaiaChain-Payment-Protocol/http"
)

// Router builds a gin engine serving the settlement API.
func Router(engine *payments.Engine) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/settle/native", settleHandler(engine, settleNative))
	r.POST("/settle/token", settleHandler(engine, settleToken))
	r.POST("/settle/wrap", settleHandler(engine, settleWrap))
	r.POST("/settle/unwrap", settleHandler(engine, settleUnwrap))

	// Registry mutations are authorized by the operator's signature over the
	// mutation, never by the transport session.
	r.POST("/operators", func(c *gin.Context) {
		var req httpapi.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !common.IsHexAddress(req.Operator) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator address"})
			return
		}
		operator := common.HexToAddress(req.Operator)

		destination := operator
		if req.FeeDestination != "" {
			if !common.IsHexAddress(req.FeeDestination) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feeDestination address"})
				return
			}
			destination = common.HexToAddress(req.FeeDestination)
		}

		deadline, signature, err := httpapi.ParseMutationAuth(req.Deadline, req.Signature)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := engine.RegisterOperatorSigned(operator, destination, deadline, signature); err != nil {
			c.JSON(httpapi.StatusForError(err), httpapi.FailureResponse(err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.DELETE("/operators/:operator", func(c *gin.Context) {
		raw := c.Param("operator")
		if !common.IsHexAddress(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator address"})
			return
		}
		var req httpapi.UnregisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		deadline, signature, err := httpapi.ParseMutationAuth(req.Deadline, req.Signature)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := engine.UnregisterOperatorSigned(common.HexToAddress(raw), deadline, signature); err != nil {
			c.JSON(httpapi.StatusForError(err), httpapi.FailureResponse(err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.GET("/operators/:operator/fee-destination", func(c *gin.Context) {
		raw := c.Param("operator")
		if !common.IsHexAddress(raw) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator address"})
			return
		}
		operator := common.HexToAddress(raw)
		resp := httpapi.FeeDestinationResponse{Operator: operator.Hex()}
		if dest, ok := engine.FeeDestination(operator); ok {
			resp.Registered = true
			resp.FeeDestination = dest.Hex()
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/intents/:operator/:id", func(c *gin.Context) {
		rawOperator := c.Param("operator")
		if !common.IsHexAddress(rawOperator) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid operator address"})
			return
		}
		id, err := payments.IntentIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		operator := common.HexToAddress(rawOperator)
		c.JSON(http.StatusOK, httpapi.ProcessedResponse{
			Operator:  operator.Hex(),
			ID:        id.Hex(),
			Processed: engine.IsProcessed(operator, id),
		})
	})

	return r
}

type settleFunc func(c *gin.Context, engine *payments.Engine, req *httpapi.SettleRequest, payer common.Address, value *big.Int) (*payments.SettlementReceipt, error)

func settleNative(c *gin.Context, engine *payments.Engine, req *httpapi.SettleRequest, payer common.Address, value *big.Int) (*payments.SettlementReceipt, error) {
	return engine.SettleNative(c.Request.Context(), &req.Intent, payer, value)
}

func settleToken(c *gin.Context, engine *payments.Engine, req *httpapi.SettleRequest, payer common.Address, _ *big.Int) (*payments.SettlementReceipt, error) {
	return engine.SettleToken(c.Request.Context(), &req.Intent, payer)
}

func settleWrap(c *gin.Context, engine *payments.Engine, req *httpapi.SettleRequest, payer common.Address, value *big.Int) (*payments.SettlementReceipt, error) {
	return engine.WrapAndSettle(c.Request.Context(), &req.Intent, payer, value)
}

func settleUnwrap(c *gin.Context, engine *payments.Engine, req *httpapi.SettleRequest, payer common.Address, _ *big.Int) (*payments.SettlementReceipt, error) {
	return engine.UnwrapAndSettle(c.Request.Context(), &req.Intent, payer)
}

func settleHandler(engine *payments.Engine, settle settleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req httpapi.SettleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !common.IsHexAddress(req.Payer) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payer address"})
			return
		}
		payer := common.HexToAddress(req.Payer)

		value := new(big.Int)
		if req.Value != "" {
			parsed, ok := new(big.Int).SetString(req.Value, 10)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
				return
			}
			value = parsed
		}

		receipt, err := settle(c, engine, &req, payer, value)
		if err != nil {
			c.JSON(httpapi.StatusForError(err), httpapi.FailureResponse(err))
			return
		}
		c.JSON(http.StatusOK, httpapi.SettleResponse{Success: true, Receipt: receipt})
	}
}
