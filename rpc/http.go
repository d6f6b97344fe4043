package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/loomnetwork/loom-token/native/staking"
	"github.com/loomnetwork/loom-token/observability/metrics"
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

// Server exposes the staking engine over JSON-RPC. Mutating and
// administrative methods require a bearer token; read methods are open.
type Server struct {
	engine    *staking.Engine
	authToken string
	log       *slog.Logger
	metrics   *metrics.StakingMetrics

	httpSrv *http.Server
}

func NewServer(engine *staking.Engine, authToken string) *Server {
	return &Server{
		engine:    engine,
		authToken: strings.TrimSpace(authToken),
		log:       slog.Default(),
	}
}

// SetLogger overrides the default request logger.
func (s *Server) SetLogger(log *slog.Logger) {
	if log != nil {
		s.log = log
	}
}

// SetMetrics enables per-method operation counters and latency histograms.
func (s *Server) SetMetrics(m *metrics.StakingMetrics) {
	s.metrics = m
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("starting JSON-RPC server", "addr", addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
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

// handle routes a JSON-RPC envelope to the method handlers.
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

	sniffer := &statusSniffer{ResponseWriter: w}
	start := time.Now()
	s.dispatch(sniffer, r, req)
	if s.metrics != nil {
		var failure error
		if sniffer.failed() {
			failure = errors.New(http.StatusText(sniffer.status))
		}
		s.metrics.ObserveOperation(req.Method, start, failure)
	}
}

type statusSniffer struct {
	http.ResponseWriter
	status int
}

func (s *statusSniffer) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusSniffer) failed() bool {
	return s.status >= http.StatusBadRequest
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "staking_stake":
		s.authorized(w, r, req, s.handleStake)
	case "staking_restake":
		s.authorized(w, r, req, s.handleRestake)
	case "staking_amend":
		s.authorized(w, r, req, s.handleAmend)
	case "staking_withdraw":
		s.authorized(w, r, req, s.handleWithdraw)
	case "staking_claimRewards":
		s.authorized(w, r, req, s.handleClaimRewards)
	case "staking_pendingRewards":
		s.handlePendingRewards(w, r, req)
	case "staking_getAccount":
		s.handleGetAccount(w, r, req)
	case "staking_getStats":
		s.handleGetStats(w, r, req)
	case "staking_getFeatures":
		s.handleGetFeatures(w, r, req)
	case "staking_setFeatures":
		s.authorized(w, r, req, s.handleSetFeatures)
	case "staking_setRewardsRate":
		s.authorized(w, r, req, s.handleSetRewardsRate)
	case "staking_setMaxStakes":
		s.authorized(w, r, req, s.handleSetMaxStakes)
	case "staking_transferOwnership":
		s.authorized(w, r, req, s.handleTransferOwnership)
	case "staking_importAccounts":
		s.authorized(w, r, req, s.handleImportAccounts)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

type rpcHandler func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

func (s *Server) authorized(w http.ResponseWriter, r *http.Request, req *RPCRequest, next rpcHandler) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	next(w, r, req)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func parseAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	if trimmed == "all" {
		return new(big.Int).Set(staking.AllAmount), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	return value, nil
}
