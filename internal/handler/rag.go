package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pickeld/lucy/internal/errors"
	"github.com/pickeld/lucy/internal/retrieval"
	"github.com/pickeld/lucy/internal/vectorstore"
)

// RAGHandler exposes C8's retrieval engine and C4's vector store
// maintenance operations over HTTP.
type RAGHandler struct {
	engine  *retrieval.Engine
	vectors *vectorstore.Store
}

// NewRAGHandler creates a new RAGHandler.
func NewRAGHandler(engine *retrieval.Engine, vectors *vectorstore.Store) *RAGHandler {
	return &RAGHandler{engine: engine, vectors: vectors}
}

// QueryRequest is the body of a /rag/query call.
type QueryRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversation_id"`
	ChatName       string `json:"chat_name"`
	Sender         string `json:"sender"`
	FilterDays     int    `json:"filter_days"`
	K              int    `json:"k"`
}

func (r QueryRequest) toQuery() retrieval.Query {
	return retrieval.Query{
		Question:       r.Question,
		ConversationID: r.ConversationID,
		Filters: retrieval.Filters{
			ChatName:   r.ChatName,
			Sender:     r.Sender,
			FilterDays: r.FilterDays,
		},
		K: r.K,
	}
}

// Query godoc
// @Summary      Ask a grounded question
// @Description  Runs the full retrieve-rerank-synthesize pipeline and returns a cited answer
// @Tags         rag
// @Accept       json
// @Produce      json
// @Param        request  body      QueryRequest  true  "question"
// @Success      200      {object}  map[string]interface{}
// @Router       /rag/query [post]
func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	answer, err := h.engine.Answer(c.Request.Context(), req.toQuery())
	if err != nil {
		c.Error(errors.FromError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": answer})
}

// Search godoc
// @Summary      Search without synthesizing an answer
// @Description  Runs retrieval only and returns the raw scored chunks
// @Tags         rag
// @Accept       json
// @Produce      json
// @Param        request  body      QueryRequest  true  "question"
// @Success      200      {object}  map[string]interface{}
// @Router       /rag/search [post]
func (h *RAGHandler) Search(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	points, err := h.engine.Search(c.Request.Context(), req.toQuery())
	if err != nil {
		c.Error(errors.FromError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": points})
}

// Stats godoc
// @Summary      Vector store stats
// @Description  Returns point/vector counts and collection status
// @Tags         rag
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /rag/stats [get]
func (h *RAGHandler) Stats(c *gin.Context) {
	stats, err := h.vectors.CollectionStats(c.Request.Context())
	if err != nil {
		c.Error(errors.Wrap(errors.CodeExternalUnavailable, "fetching vector store stats", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// DeleteBySourceRequest names the source collection to purge.
type DeleteBySourceRequest struct {
	Source string `json:"source" binding:"required"`
}

// DeleteBySource godoc
// @Summary      Delete all chunks from a source
// @Description  Purges every vector-store point whose source field matches
// @Tags         rag
// @Accept       json
// @Produce      json
// @Param        request  body      DeleteBySourceRequest  true  "source to purge"
// @Success      200      {object}  map[string]interface{}
// @Router       /rag/delete-by-source [post]
func (h *RAGHandler) DeleteBySource(c *gin.Context) {
	var req DeleteBySourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(err.Error()))
		return
	}

	filter := vectorstore.Filter{}.Equals("source", req.Source)
	if err := h.vectors.DeleteByFilter(c.Request.Context(), filter); err != nil {
		c.Error(errors.Wrap(errors.CodeExternalUnavailable, "deleting by source", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Reset godoc
// @Summary      Reset the vector store
// @Description  Purges every point in the collection. Irreversible.
// @Tags         rag
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /rag/reset [post]
func (h *RAGHandler) Reset(c *gin.Context) {
	if err := h.vectors.DeleteByFilter(c.Request.Context(), vectorstore.Filter{}); err != nil {
		c.Error(errors.Wrap(errors.CodeExternalUnavailable, "resetting vector store", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
