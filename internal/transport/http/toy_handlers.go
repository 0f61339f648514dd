package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/toyshophq/toyshop-server/internal/service/toys"
	"github.com/toyshophq/toyshop-server/internal/store"
)

// ToyHandlers provides HTTP handlers for the toy catalog and its
// discussion threads.
type ToyHandlers struct {
	store store.ToyStore
	toys  *toys.Service
	log   *zerolog.Logger
}

// NewToyHandlers creates a new toy handlers instance.
func NewToyHandlers(st store.ToyStore, toyService *toys.Service, logger *zerolog.Logger) *ToyHandlers {
	return &ToyHandlers{
		store: st,
		toys:  toyService,
		log:   logger,
	}
}

// ToyRequest represents the create/update toy request body.
type ToyRequest struct {
	Name    string   `json:"name" binding:"required,min=1,max=128"`
	Price   float64  `json:"price" binding:"gte=0"`
	Labels  []string `json:"labels"`
	InStock bool     `json:"inStock"`
}

// MessageRequest represents the add-message request body.
type MessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// MessageResponse represents a thread message in API responses.
type MessageResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToyResponse represents a toy in API responses.
type ToyResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Price     float64           `json:"price"`
	Labels    []string          `json:"labels"`
	InStock   bool              `json:"inStock"`
	CreatedAt time.Time         `json:"createdAt"`
	Messages  []MessageResponse `json:"messages"`
}

// ToyPageResponse is one page of query results.
type ToyPageResponse struct {
	Toys  []ToyResponse `json:"toys"`
	Total int64         `json:"total"`
}

func toyToResponse(toy *store.Toy) ToyResponse {
	resp := ToyResponse{
		ID:        toy.ID,
		Name:      toy.Name,
		Price:     toy.Price,
		Labels:    toy.Labels,
		InStock:   toy.InStock,
		CreatedAt: toy.CreatedAt,
		Messages:  make([]MessageResponse, 0, len(toy.Messages)),
	}
	if resp.Labels == nil {
		resp.Labels = []string{}
	}
	for _, m := range toy.Messages {
		resp.Messages = append(resp.Messages, MessageResponse(m))
	}
	return resp
}

// storeErrorResponse maps store/service failures to HTTP status codes.
func (h *ToyHandlers) storeErrorResponse(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, store.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, toys.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not allowed"})
	default:
		h.log.Error().Err(err).Msg(action)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// ListToys handles catalog queries with filtering, sorting, and pagination.
// GET /api/toy?name=&inStock=&labels=&sortBy=&pageIdx=&pageSize=
func (h *ToyHandlers) ListToys(c *gin.Context) {
	filter := store.ToyFilter{Name: c.Query("name")}

	if raw := c.Query("inStock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "inStock must be a boolean"})
			return
		}
		filter.InStock = &inStock
	}

	if raw := c.Query("labels"); raw != "" {
		for _, label := range strings.Split(raw, ",") {
			if label = strings.TrimSpace(label); label != "" {
				filter.Labels = append(filter.Labels, label)
			}
		}
	}

	pageIdx, _ := strconv.Atoi(c.DefaultQuery("pageIdx", "0"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "5"))

	page, err := h.store.QueryToys(c.Request.Context(), filter, c.Query("sortBy"), pageIdx, pageSize)
	if err != nil {
		h.storeErrorResponse(c, err, "failed to query toys")
		return
	}

	resp := ToyPageResponse{Toys: make([]ToyResponse, 0, len(page.Toys)), Total: page.Total}
	for _, toy := range page.Toys {
		resp.Toys = append(resp.Toys, toyToResponse(toy))
	}

	c.JSON(http.StatusOK, resp)
}

// GetToy retrieves one toy with its full message list.
// GET /api/toy/:id
func (h *ToyHandlers) GetToy(c *gin.Context) {
	toy, err := h.store.GetToy(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeErrorResponse(c, err, "failed to get toy")
		return
	}

	c.JSON(http.StatusOK, toyToResponse(toy))
}

// AddToy creates a new catalog item.
// POST /api/toy (admin)
func (h *ToyHandlers) AddToy(c *gin.Context) {
	var req ToyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add toy request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	toy, err := h.store.AddToy(c.Request.Context(), &store.Toy{
		Name:    req.Name,
		Price:   req.Price,
		Labels:  req.Labels,
		InStock: req.InStock,
	})
	if err != nil {
		h.storeErrorResponse(c, err, "failed to add toy")
		return
	}

	h.log.Info().Str("toy_id", toy.ID).Str("name", toy.Name).Msg("toy added")
	c.JSON(http.StatusCreated, toyToResponse(toy))
}

// UpdateToy overwrites the catalog fields of an existing toy.
// PUT /api/toy/:id (admin)
func (h *ToyHandlers) UpdateToy(c *gin.Context) {
	var req ToyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update toy request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	toy, err := h.store.UpdateToy(c.Request.Context(), &store.Toy{
		ID:      c.Param("id"),
		Name:    req.Name,
		Price:   req.Price,
		Labels:  req.Labels,
		InStock: req.InStock,
	})
	if err != nil {
		h.storeErrorResponse(c, err, "failed to update toy")
		return
	}

	c.JSON(http.StatusOK, toyToResponse(toy))
}

// RemoveToy deletes a toy and its thread.
// DELETE /api/toy/:id (admin)
func (h *ToyHandlers) RemoveToy(c *gin.Context) {
	if err := h.store.RemoveToy(c.Request.Context(), c.Param("id")); err != nil {
		h.storeErrorResponse(c, err, "failed to remove toy")
		return
	}

	c.Status(http.StatusNoContent)
}

// AddToyMsg appends a message to the toy's discussion thread and fans it
// out to the toy's room.
// POST /api/toy/:id/msg (auth)
func (h *ToyHandlers) AddToyMsg(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.toys.AddMessage(c.Request.Context(), c.Param("id"), identity, req.Content)
	if err != nil {
		h.storeErrorResponse(c, err, "failed to add message")
		return
	}

	c.JSON(http.StatusCreated, MessageResponse(*msg))
}

// RemoveToyMsg removes a message from the toy's thread (author or admin).
// DELETE /api/toy/:id/msg/:msgId (auth)
func (h *ToyHandlers) RemoveToyMsg(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	toyID := c.Param("id")
	msgID := c.Param("msgId")

	if err := h.toys.RemoveMessage(c.Request.Context(), toyID, msgID, identity); err != nil {
		h.storeErrorResponse(c, err, "failed to remove message")
		return
	}

	c.JSON(http.StatusOK, gin.H{"messageId": msgID})
}
