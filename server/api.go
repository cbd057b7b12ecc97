package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/graph"
	"github.com/kbukum/flowgraph/util"
	"github.com/kbukum/flowgraph/workflow"
)

// DefaultMaxBatch bounds the number of documents in one batch request.
const DefaultMaxBatch = 100

// APIOptions tune the workflow API.
type APIOptions struct {
	// BatchWorkers bounds concurrent compilations of a batch request.
	BatchWorkers int
	// MaxBatch bounds the number of items of a batch request.
	MaxBatch int
}

// API serves the editor's validate and compile calls.
type API struct {
	svc  workflow.Service
	opts APIOptions
}

// NewAPI creates the workflow API on top of svc.
func NewAPI(svc workflow.Service, opts APIOptions) *API {
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = workflow.DefaultBatchWorkers
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	return &API{svc: svc, opts: opts}
}

// Register mounts the workflow routes on r.
func (a *API) Register(r gin.IRouter) {
	g := r.Group("/workflows")
	g.POST("/validate", a.validate)
	g.POST("/compile", a.compile)
	g.POST("/compile/batch", a.compileBatch)
}

// ValidateRequest is the body of POST /workflows/validate.
type ValidateRequest struct {
	Document json.RawMessage `json:"document" binding:"required"`
	// Saved overrides per-node detail-saved flags.
	Saved map[string]bool `json:"saved,omitempty"`
}

// CompileRequest is the body of POST /workflows/compile and one item of a batch.
type CompileRequest struct {
	Document     json.RawMessage `json:"document" binding:"required"`
	WorkflowName string          `json:"workflowName,omitempty" binding:"omitempty,max=128"`
	SystemName   string          `json:"systemName,omitempty" binding:"omitempty,max=64"`
	Saved        map[string]bool `json:"saved,omitempty"`
}

// BatchRequest is the body of POST /workflows/compile/batch.
type BatchRequest struct {
	Items []CompileRequest `json:"items" binding:"required,min=1,dive"`
}

// BatchItem is the outcome of one batch item; exactly one of Result and
// Error is set.
type BatchItem struct {
	Index  int               `json:"index"`
	Result *workflow.Result  `json:"result,omitempty"`
	Error  *errors.ErrorBody `json:"error,omitempty"`
}

// BatchResponse is the data of a batch response, in request order.
type BatchResponse struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

func (a *API) validate(c *gin.Context) {
	var body ValidateRequest
	if err := bindJSON(c, &body); err != nil {
		RespondWithError(c, err)
		return
	}
	doc, err := graph.Decode(body.Document)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	res, err := a.svc.Validate(c.Request.Context(), workflow.Request{Document: doc, Saved: graph.SaveState(body.Saved)})
	if err != nil {
		RespondWithError(c, contextError(err))
		return
	}
	RespondOK(c, res)
}

func (a *API) compile(c *gin.Context) {
	var body CompileRequest
	if err := bindJSON(c, &body); err != nil {
		RespondWithError(c, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		RespondWithError(c, err)
		return
	}

	res, err := a.svc.Compile(c.Request.Context(), req)
	if err != nil {
		RespondWithError(c, contextError(err))
		return
	}
	RespondOK(c, res)
}

func (a *API) compileBatch(c *gin.Context) {
	var body BatchRequest
	if err := bindJSON(c, &body); err != nil {
		RespondWithError(c, err)
		return
	}
	if len(body.Items) > a.opts.MaxBatch {
		RespondWithError(c, errors.InvalidInput("items", fmt.Sprintf("at most %d documents per batch", a.opts.MaxBatch)))
		return
	}

	// Items that fail to decode are answered directly; the rest go through
	// Batch and are merged back by index.
	out := BatchResponse{Items: make([]BatchItem, len(body.Items))}
	var reqs []workflow.Request
	var index []int
	for i, item := range body.Items {
		out.Items[i].Index = i
		req, err := item.toRequest()
		if err != nil {
			out.Items[i].Error = errorBody(err)
			continue
		}
		reqs = append(reqs, req)
		index = append(index, i)
	}

	results, err := workflow.Batch(c.Request.Context(), a.svc, reqs, a.opts.BatchWorkers)
	if err != nil {
		RespondWithError(c, contextError(err))
		return
	}
	for j, r := range results {
		i := index[j]
		if r.Err != nil {
			out.Items[i].Error = errorBody(r.Err)
			continue
		}
		out.Items[i].Result = r.Result
	}

	for _, item := range out.Items {
		if item.Error != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	RespondOK(c, out)
}

// toRequest decodes the document. Names typed into the editor are trimmed
// and stripped of control characters.
func (r CompileRequest) toRequest() (workflow.Request, error) {
	doc, err := graph.Decode(r.Document)
	if err != nil {
		return workflow.Request{}, err
	}
	return workflow.Request{
		Document: doc,
		Metadata: workflow.Metadata{
			WorkflowName: util.SanitizeString(r.WorkflowName),
			SystemName:   util.SanitizeString(r.SystemName),
		},
		Saved:    graph.SaveState(r.Saved),
	}, nil
}

// bindJSON decodes and checks the body. Binding failures become
// INVALID_INPUT; an oversized body keeps its *http.MaxBytesError.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return err
		}
		return errors.InvalidInput("body", err.Error())
	}
	return nil
}

// contextError maps an ended request context onto its coded error.
func contextError(err error) error {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("compile").WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return errors.New(errors.ErrCodeTimeout, "The request was canceled.", http.StatusServiceUnavailable).WithCause(err)
	}
	return err
}

func errorBody(err error) *errors.ErrorBody {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	body := appErr.ToResponse().Error
	return &body
}
