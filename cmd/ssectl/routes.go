package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/ssekit/errors"
	"github.com/kbukum/ssekit/logger"
	"github.com/kbukum/ssekit/observability"
	"github.com/kbukum/ssekit/server"
	"github.com/kbukum/ssekit/server/middleware"
	"github.com/kbukum/ssekit/sse"
	"github.com/kbukum/ssekit/validation"
)

// ClientIDHeader tells a client which identity the server assigned it.
const ClientIDHeader = "X-Client-Id"

type publishRequest struct {
	Event string `json:"event" validate:"omitempty,max=128,printascii"`
	Data  string `json:"data" validate:"required,excludesall=\r\n"`
}

type multiPublishRequest struct {
	IDs   []string `json:"ids" validate:"required,min=1,dive,required"`
	Event string   `json:"event" validate:"omitempty,max=128,printascii"`
	Data  string   `json:"data" validate:"required,excludesall=\r\n"`
}

type publishResult struct {
	Event      string `json:"event"`
	Recipients int    `json:"recipients"`
	Failed     int    `json:"failed"`
}

type api struct {
	registry *sse.Registry[string]
	log      *logger.Logger
}

// registerRoutes mounts the stream and publish endpoints under the
// registry's configured path.
func registerRoutes(r gin.IRouter, reg *sse.Registry[string], log *logger.Logger) []routeInfo {
	a := &api{registry: reg, log: log.WithComponent("api")}
	path := reg.Config().Path

	routes := []routeInfo{
		{http.MethodGet, path, "stream (assigned id)", a.streamAnonymous},
		{http.MethodGet, path + "/:id", "stream", a.stream},
		{http.MethodPost, path + "/:id", "emit", a.emit},
		{http.MethodPost, path, "emit multiple", a.emitMultiple},
		{http.MethodPost, "/broadcast", "broadcast", a.broadcast},
		{http.MethodGet, "/clients", "list clients", a.clients},
	}
	for _, rt := range routes {
		r.Handle(rt.method, rt.path, rt.handler)
	}
	return routes
}

type routeInfo struct {
	method  string
	path    string
	name    string
	handler gin.HandlerFunc
}

func (a *api) stream(c *gin.Context) {
	a.serve(c, c.Param("id"))
}

func (a *api) streamAnonymous(c *gin.Context) {
	id := uuid.New().String()
	c.Header(ClientIDHeader, id)
	a.serve(c, id)
}

// serve blocks for the life of the stream. ServeStream renders its own
// errors, so they are only logged here.
func (a *api) serve(c *gin.Context, id string) {
	if err := a.registry.ServeStream(c.Writer, c.Request, id); err != nil {
		a.log.WithContext(c.Request.Context()).Warn("Stream ended with error", map[string]interface{}{
			logger.FieldClientID: id,
			logger.FieldError:    err.Error(),
		})
	}
}

func (a *api) emit(c *gin.Context) {
	var req publishRequest
	if !bind(c, &req) {
		return
	}
	id := c.Param("id")

	err := a.traced(c, observability.SpanEmit, func(ctx context.Context) error {
		observability.SetSpanAttribute(ctx, observability.AttrClientID, id)
		observability.SetSpanAttribute(ctx, observability.AttrEvent, req.Event)
		return a.registry.Emit(id, req.Event, req.Data)
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, publishResult{Event: req.Event, Recipients: 1})
}

func (a *api) emitMultiple(c *gin.Context) {
	var req multiPublishRequest
	if !bind(c, &req) {
		return
	}

	recipients := 0
	for _, id := range req.IDs {
		if a.registry.Has(id) {
			recipients++
		}
	}
	res := publishResult{Event: req.Event, Recipients: recipients}
	err := a.traced(c, observability.SpanEmitMany, func(ctx context.Context) error {
		observability.SetSpanAttribute(ctx, observability.AttrEvent, req.Event)
		observability.SetSpanAttribute(ctx, observability.AttrRecipients, recipients)
		err := a.registry.EmitMultiple(req.IDs, req.Event, req.Data)
		res.Failed = deliveryFailures(err, &res.Recipients)
		observability.SetSpanAttribute(ctx, observability.AttrFailed, res.Failed)
		return err
	})
	a.respondFanOut(c, res, err)
}

func (a *api) broadcast(c *gin.Context) {
	var req publishRequest
	if !bind(c, &req) {
		return
	}

	res := publishResult{Event: req.Event, Recipients: a.registry.Len()}
	err := a.traced(c, observability.SpanBroadcast, func(ctx context.Context) error {
		observability.SetSpanAttribute(ctx, observability.AttrEvent, req.Event)
		observability.SetSpanAttribute(ctx, observability.AttrRecipients, res.Recipients)
		err := a.registry.Broadcast(req.Event, req.Data)
		res.Failed = deliveryFailures(err, &res.Recipients)
		observability.SetSpanAttribute(ctx, observability.AttrFailed, res.Failed)
		return err
	})
	a.respondFanOut(c, res, err)
}

func (a *api) clients(c *gin.Context) {
	server.RespondOK(c, gin.H{"clients": a.registry.IDs(), "count": a.registry.Len()})
}

// respondFanOut reports partial delivery as 202 with the failure count;
// only errors other than per-client write failures are rendered as errors.
func (a *api) respondFanOut(c *gin.Context, res publishResult, err error) {
	var de *sse.DeliveryError
	if err != nil && !errors.As(err, &de) {
		server.RespondWithError(c, err)
		return
	}
	if de != nil {
		a.log.WithContext(c.Request.Context()).Warn("Partial delivery", map[string]interface{}{
			logger.FieldEvent: res.Event,
			"failed":          res.Failed,
			"recipients":      res.Recipients,
		})
	}
	server.RespondAccepted(c, res)
}

func (a *api) traced(c *gin.Context, name string, fn func(ctx context.Context) error) error {
	ctx, op := observability.StartOperation(c.Request.Context(), name, c.GetHeader(middleware.RequestIDHeader))
	err := fn(ctx)
	op.End(err)
	return err
}

func deliveryFailures(err error, recipients *int) int {
	var de *sse.DeliveryError
	if errors.As(err, &de) {
		*recipients = de.Attempted
		return len(de.Errs)
	}
	return 0
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("body", err.Error()))
		return false
	}
	if err := validation.Validate(req); err != nil {
		server.RespondWithError(c, err)
		return false
	}
	return true
}
