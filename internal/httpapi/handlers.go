package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/signalhub/internal/router"
	"github.com/rickgao/signalhub/internal/signal"
)

// Route suffixes that select an alternate input form for a channel.
const (
	suffixPlain = "_plain"
	suffixRaw   = "_raw"
)

// submitRequest is the JSON body of POST /signal/:channel. Text channels
// accept the author as either who or admin.
type submitRequest struct {
	Cmd    flexString `json:"cmd"`
	Symbol flexString `json:"symbol"`
	ID     flexString `json:"id"`
	Text   flexString `json:"text"`
	Who    flexString `json:"who"`
	Admin  flexString `json:"admin"`
	Room   flexString `json:"room"`
}

// flexString accepts a JSON string, number or boolean and keeps its text.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	switch {
	case len(b) == 0 || string(b) == "null":
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected string or number, got %s", b[:1])
	default:
		*s = flexString(b)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ok"})
}

func (s *Server) handleSubmit(c *gin.Context) {
	name, plain := resolveChannel(c.Param("channel"))

	kind, err := s.router.Kind(name)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)

	var payload signal.Payload
	if plain {
		payload, err = plainPayload(c)
	} else {
		payload, err = jsonPayload(c, kind)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	res, err := s.router.Submit(name, payload)
	if err != nil {
		s.writeError(c, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == signal.Rejected {
		status = http.StatusBadRequest
	}
	c.JSON(status, res.Ack())
}

func (s *Server) handleLast(c *gin.Context) {
	sig, ok, err := s.router.TakeNext(c.Param("channel"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"signal": nil})
		return
	}
	c.JSON(http.StatusOK, sig.ToWire())
}

// resolveChannel strips a route suffix. Channel names never carry one.
func resolveChannel(param string) (name string, plain bool) {
	if name, ok := strings.CutSuffix(param, suffixPlain); ok {
		return name, true
	}
	if name, ok := strings.CutSuffix(param, suffixRaw); ok {
		return name, false
	}
	return param, false
}

// errInvalidJSON wraps body decode failures.
var errInvalidJSON = errors.New("invalid_json")

// errInvalidBody wraps body read failures, including oversized bodies.
var errInvalidBody = errors.New("invalid_body")

func jsonPayload(c *gin.Context, kind signal.Kind) (signal.Payload, error) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return nil, fmt.Errorf("%w: %v", errInvalidJSON, err)
	}

	if kind == signal.KindStructured {
		return signal.StructuredPayload{
			Command: string(req.Cmd),
			Symbol:  string(req.Symbol),
			ID:      string(req.ID),
		}, nil
	}

	author := req.Who
	if author == "" {
		author = req.Admin
	}
	return signal.TextPayload{
		Text:   string(req.Text),
		Author: string(author),
		Room:   string(req.Room),
		Symbol: string(req.Symbol),
		ID:     string(req.ID),
	}, nil
}

func plainPayload(c *gin.Context) (signal.Payload, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return signal.TextPayload{
		Text:   string(body),
		Author: c.Query("who"),
		Room:   c.Query("room"),
		Symbol: c.Query("symbol"),
		ID:     c.Query("id"),
	}, nil
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, router.ErrUnknownChannel):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_channel", "message": err.Error()})
	case errors.Is(err, errInvalidJSON):
		s.logger.Warn("invalid json body", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_json", "message": err.Error()})
	case errors.Is(err, errInvalidBody):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": err.Error()})
	default:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
