// Package router dispatches JSON-RPC requests to the dapp_* helpers and
// forwards every other method to the node.
package router

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	apperrors "github.com/mowind/dapputil-go/internal/errors"
	"github.com/mowind/dapputil-go/internal/jsonrpc"
	"github.com/mowind/dapputil-go/internal/rpc"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Handler defines a JSON-RPC method handler interface.
//
// Implementations of this interface can be registered with the Router
// to handle specific JSON-RPC methods.
type Handler interface {
	// Handle processes a JSON-RPC request.
	//
	// Parameters:
	//   - ctx: Context for request (supports cancellation and timeout)
	//   - request: The JSON-RPC request to handle
	//
	// Returns:
	//   - *jsonrpc.Response: The response to return to client
	//   - error: An error if handling fails
	Handle(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error)

	// Method returns the JSON-RPC method name this handler supports.
	Method() string
}

// DefaultMaxRequestSize 默认最大请求体 10MB
const DefaultMaxRequestSize = 10 * 1024 * 1024

// DefaultBatchWorkerCount 批量请求的最大并发数
const DefaultBatchWorkerCount = 16

// Router routes JSON-RPC requests to appropriate handlers.
//
// This router supports:
//   - Method-based handler registration
//   - A default handler for unregistered methods
//   - Concurrent batch routing with bounded parallelism
//   - Request size limiting
type Router struct {
	handlers       map[string]Handler
	defaultHandler Handler
	mu             sync.RWMutex
	logger         logrus.FieldLogger
	maxRequestSize int64
	workers        int
	metrics        *Metrics
}

// NewRouter creates a new JSON-RPC router with default settings.
func NewRouter(logger logrus.FieldLogger) *Router {
	return NewRouterWithMaxSize(logger, DefaultMaxRequestSize)
}

// NewRouterWithMaxSize creates a new JSON-RPC router with custom max request size.
//
// Parameters:
//   - logger: The logger to use for request logging
//   - maxRequestSize: Maximum allowed request body size in bytes
//
// Returns:
//   - *Router: A new router instance
func NewRouterWithMaxSize(logger logrus.FieldLogger, maxRequestSize int64) *Router {
	if maxRequestSize <= 0 {
		maxRequestSize = DefaultMaxRequestSize
	}
	return &Router{
		handlers:       make(map[string]Handler),
		logger:         logger,
		maxRequestSize: maxRequestSize,
		workers:        DefaultBatchWorkerCount,
	}
}

// SetMetrics 设置 Prometheus 指标，nil 表示不采集
func (r *Router) SetMetrics(m *Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// SetDefaultHandler sets the handler for unregistered methods.
func (r *Router) SetDefaultHandler(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaultHandler = handler
	r.logger.WithField("handler", handler.Method()).Info("Default handler set")
}

// Register registers a JSON-RPC method handler.
//
// The handler's Method() return value is used as the registration key.
//
// Returns:
//   - error: An error if handler method is empty or already registered
func (r *Router) Register(handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	method := handler.Method()
	if method == "" {
		return fmt.Errorf("handler method name cannot be empty")
	}
	if _, exists := r.handlers[method]; exists {
		return fmt.Errorf("handler for method %s already registered", method)
	}

	r.handlers[method] = handler
	r.logger.WithField("method", method).Debug("Registered JSON-RPC handler")
	return nil
}

// Unregister 移除某个方法的处理器
func (r *Router) Unregister(method string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, method)
}

// Route routes a single JSON-RPC request to the appropriate handler.
//
// Handler errors are converted to error responses; Route never returns nil.
func (r *Router) Route(ctx context.Context, request *jsonrpc.Request) *jsonrpc.Response {
	if request == nil {
		return jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest(nil))
	}

	start := time.Now()
	ctx = apperrors.WithTrace(ctx, "", request.Method)
	logger := apperrors.WithContext(r.logger, ctx).WithField("id", request.ID)

	response := r.routeRequest(ctx, request, logger)
	r.observe(request.Method, response, start)
	return response
}

func (r *Router) routeRequest(ctx context.Context, request *jsonrpc.Request, logger *logrus.Entry) *jsonrpc.Response {
	handler, found := r.getHandler(request.Method)
	if !found {
		logger.WithField("method", request.Method).Warn("Method not found")
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewMethodNotFound(request.Method))
	}

	response, err := handler.Handle(ctx, request)
	if err != nil {
		logger.WithError(err).Error("Handler execution failed")
		if jsonErr, ok := err.(*jsonrpc.Error); ok {
			return jsonrpc.NewErrorResponse(request.ID, jsonErr)
		}
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewInternalError(err.Error()))
	}
	if response == nil {
		logger.Error("Handler returned nil response")
		return jsonrpc.NewErrorResponse(request.ID, jsonrpc.NewInternalError("handler returned no response"))
	}

	response.ID = request.ID
	response.JSONRPC = jsonrpc.JSONRPCVersion
	return response
}

// RouteBatch routes a batch of JSON-RPC requests.
//
// Requests for registered methods run concurrently (at most
// DefaultBatchWorkerCount at a time). When the default handler can forward
// batches, the remaining requests go to the node as a single batch.
//
// Returns:
//   - []*jsonrpc.Response: Responses in request order
func (r *Router) RouteBatch(ctx context.Context, requests []jsonrpc.Request) []*jsonrpc.Response {
	if len(requests) == 0 {
		return []*jsonrpc.Response{jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest("empty batch"))}
	}
	if len(requests) > jsonrpc.MaxBatchSize {
		r.logger.WithField("count", len(requests)).Warn("Batch size exceeds limit")
		return []*jsonrpc.Response{jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest(
			fmt.Sprintf("batch size exceeds maximum limit of %d", jsonrpc.MaxBatchSize)))}
	}

	responses := make([]*jsonrpc.Response, len(requests))

	var forwardIdx []int
	forwarder := r.batchForwarder()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range requests {
		i := i
		if forwarder != nil && !r.HasHandler(requests[i].Method) {
			forwardIdx = append(forwardIdx, i)
			continue
		}
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					r.logger.WithField("panic", p).WithField("idx", i).Error("Batch worker panic recovered")
					responses[i] = jsonrpc.NewErrorResponse(requests[i].ID, jsonrpc.NewInternalError("processing failed"))
				}
			}()
			responses[i] = r.Route(gctx, &requests[i])
			return nil
		})
	}

	if len(forwardIdx) > 0 {
		r.forwardBatch(ctx, forwarder, requests, forwardIdx, responses)
	}
	_ = g.Wait()

	r.logger.WithFields(logrus.Fields{
		"request_count":   len(requests),
		"forwarded_count": len(forwardIdx),
	}).Debug("Batch routing completed")
	return responses
}

// forwardBatch sends the unregistered requests to the node in one batch.
func (r *Router) forwardBatch(ctx context.Context, forwarder rpc.Forwarder, requests []jsonrpc.Request, idx []int, responses []*jsonrpc.Response) {
	start := time.Now()
	batch := make([]jsonrpc.Request, len(idx))
	for i, j := range idx {
		batch[i] = requests[j]
	}

	results, err := forwarder.ForwardBatchRequest(ctx, batch)
	for i, j := range idx {
		switch {
		case err != nil:
			responses[j] = jsonrpc.NewErrorResponse(requests[j].ID, jsonrpc.NewServerError(
				jsonrpc.CodeServerErrorMax, "Failed to forward batch request", err.Error()))
		case i < len(results):
			resp := results[i]
			resp.ID = requests[j].ID
			responses[j] = &resp
		default:
			responses[j] = jsonrpc.NewErrorResponse(requests[j].ID, jsonrpc.NewInternalError("missing response"))
		}
		r.observe(requests[j].Method, responses[j], start)
	}
	if err != nil {
		r.logger.WithError(err).WithField("count", len(idx)).Error("Failed to forward batch")
	}
}

func (r *Router) batchForwarder() rpc.Forwarder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fh, ok := r.defaultHandler.(*ForwardHandler); ok {
		return fh.Client()
	}
	return nil
}

func (r *Router) observe(method string, resp *jsonrpc.Response, start time.Time) {
	r.mu.RLock()
	m := r.metrics
	r.mu.RUnlock()
	if m != nil {
		m.Observe(method, resp, time.Since(start))
	}
}

// getHandler 查找处理器，未注册时返回默认处理器
func (r *Router) getHandler(method string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if handler, found := r.handlers[method]; found {
		return handler, true
	}
	if r.defaultHandler != nil {
		return r.defaultHandler, true
	}
	return nil, false
}

// GetRegisteredMethods 返回排序后的已注册方法
func (r *Router) GetRegisteredMethods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]string, 0, len(r.handlers))
	for method := range r.handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// HasHandler reports whether a handler is registered for method. The
// default handler does not count.
func (r *Router) HasHandler(method string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := r.handlers[method]
	return found
}

// HandleHTTPRequest reads a single or batch JSON-RPC body from req, routes
// it and writes the responses.
//
// Parameters:
//   - w: HTTP response writer
//   - req: HTTP request
func (r *Router) HandleHTTPRequest(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.maxRequestSize))
	if err != nil {
		r.logger.WithError(err).WithField("max_size_bytes", r.maxRequestSize).Warn("Request body too large")
		r.writeResponses(w, http.StatusRequestEntityTooLarge, []*jsonrpc.Response{
			jsonrpc.NewErrorResponse(nil, jsonrpc.NewInvalidRequest("request entity too large")),
		}, false)
		return
	}

	batch := jsonrpc.IsBatch(body)
	requests, err := jsonrpc.ParseRequest(body)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to parse JSON-RPC request")
		r.writeResponses(w, http.StatusOK, []*jsonrpc.Response{
			jsonrpc.NewErrorResponse(nil, jsonrpc.NewParseError(err.Error())),
		}, false)
		return
	}

	var responses []*jsonrpc.Response
	if batch {
		responses = r.RouteBatch(req.Context(), requests)
	} else {
		responses = []*jsonrpc.Response{r.Route(req.Context(), &requests[0])}
	}
	r.writeResponses(w, http.StatusOK, responses, batch)
}

func (r *Router) writeResponses(w http.ResponseWriter, status int, responses []*jsonrpc.Response, batch bool) {
	data, err := jsonrpc.MarshalResponses(responses, batch)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal JSON-RPC responses")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		r.logger.WithError(err).Error("Failed to write response")
	}
}
