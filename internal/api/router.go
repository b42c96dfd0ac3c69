package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"finance-gpt-assistant/internal/cache"
	"finance-gpt-assistant/internal/chatagent"
	"finance-gpt-assistant/internal/query"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/hertz-contrib/cors"
)

type ChatRequest struct {
	Query string `json:"query"`
}

type PriceRequest struct {
	Ticker string `json:"ticker"`
}

type MultiplePricesRequest struct {
	TickerList []string `json:"ticker_list"`
}

// RegisterRoutes wires the HTTP surface. All data endpoints read from the
// cache only; nothing here ever triggers an upstream fetch.
func RegisterRoutes(h *server.Hertz, qs *query.Service, agent *chatagent.Agent, statsTickers []string) {
	h.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		MaxAge:          12 * time.Hour,
	}))

	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.POST("/chat", func(ctx context.Context, c *app.RequestContext) {
		if agent == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"error": "chat agent not configured"})
			return
		}
		var req ChatRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json body"})
			return
		}
		if req.Query == "" {
			c.JSON(http.StatusBadRequest, map[string]any{"error": "query is required"})
			return
		}
		answer, err := agent.Answer(ctx, req.Query)
		if err != nil {
			log.Printf("chat error: %v", err)
			c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"answer": answer})
	})

	h.POST("/get_price", func(_ context.Context, c *app.RequestContext) {
		var req PriceRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json body"})
			return
		}
		if req.Ticker == "" {
			c.JSON(http.StatusBadRequest, map[string]any{"error": "ticker is required"})
			return
		}
		rec, err := qs.GetOne(req.Ticker)
		if err != nil {
			if errors.Is(err, query.ErrNotFound) {
				c.JSON(http.StatusNotFound, map[string]any{"error": fmt.Sprintf("Ticker %s not found.", req.Ticker)})
				return
			}
			c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"price": rec})
	})

	h.POST("/get_multiple_prices", func(_ context.Context, c *app.RequestContext) {
		var req MultiplePricesRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid json body"})
			return
		}
		// An empty list takes the same path as unknown tickers and
		// answers 404, matching the original surface.
		recs, err := qs.GetMany(req.TickerList)
		if err != nil {
			if errors.Is(err, query.ErrNotFound) {
				c.JSON(http.StatusNotFound, map[string]any{"error": "No valid tickers found."})
				return
			}
			c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"prices": recs})
	})

	h.GET("/get_stats", func(_ context.Context, c *app.RequestContext) {
		recs, err := qs.ListFiltered(cache.SectionStats, statsTickers)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"ticker_data": recs})
	})

	h.GET("/nasdaq-top50", listSectionHandler(qs, cache.SectionNasdaq))
	h.GET("/bse-top50", listSectionHandler(qs, cache.SectionBSE))
}

func listSectionHandler(qs *query.Service, section string) app.HandlerFunc {
	return func(_ context.Context, c *app.RequestContext) {
		recs, err := qs.ListSection(section)
		if err != nil {
			c.JSON(http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, map[string]any{"table_data": recs})
	}
}
