package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/aro-lang/aro/internal/runtime/engine"
	"github.com/aro-lang/aro/internal/runtime/source"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// stepWire is the JSON shape one Step takes over the wire; Type picks
// which fields apply, matching the steps engine.Spec.Steps accepts.
type stepWire struct {
	Type       string `json:"type"`
	Field      string `json:"field,omitempty"`
	Op         string `json:"op,omitempty"`
	Value      any    `json:"value,omitempty"`
	N          int    `json:"n,omitempty"`
	Descending bool   `json:"descending,omitempty"`
	ChunkSize  int    `json:"chunk_size,omitempty"`
}

func (w stepWire) toStep() (engine.Step, error) {
	switch w.Type {
	case "filter":
		return engine.FilterStep{Field: w.Field, Op: engine.FilterOp(w.Op), Value: w.Value}, nil
	case "take":
		return engine.TakeStep{N: w.N}, nil
	case "drop":
		return engine.DropStep{N: w.N}, nil
	case "distinct":
		return engine.DistinctStep{Field: w.Field}, nil
	case "sort":
		return engine.SortStep{Field: w.Field, Descending: w.Descending, ChunkSize: w.ChunkSize}, nil
	default:
		return nil, fmt.Errorf("gateway: unknown step type %q", w.Type)
	}
}

type createPipelineRequest struct {
	Source       string             `json:"source"`
	Data         string             `json:"data"`
	CSVOptions   *source.CSVOptions `json:"csv_options,omitempty"`
	JSONLOptions source.JSONLOptions `json:"jsonl_options,omitempty"`
	ChunkSize    int                `json:"chunk_size,omitempty"`
	Steps        []stepWire         `json:"steps"`
}

type createPipelineResponse struct {
	ID     string `json:"id"`
	TeeURL string `json:"tee_url"`
}

// handleCreatePipeline builds a Spec from the request body, runs it
// through the Engine to get a lazily-pulled row stream, and registers
// that stream as a Pipeline other requests can attach a tee consumer
// to.
func (s *Server) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	var req createPipelineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	steps := make([]engine.Step, 0, len(req.Steps))
	for _, sw := range req.Steps {
		step, err := sw.toStep()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		steps = append(steps, step)
	}

	spec := engine.Spec{
		Source:       engine.SourceKind(req.Source),
		JSONLOptions: req.JSONLOptions,
		ChunkSize:    req.ChunkSize,
		Steps:        steps,
	}
	if req.CSVOptions != nil {
		spec.CSVOptions = *req.CSVOptions
	}

	rows, err := s.engine.Build(r.Context(), strings.NewReader(req.Data), spec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pipeline := s.reg.Create(rows)
	writeJSON(w, http.StatusCreated, createPipelineResponse{
		ID:     pipeline.ID,
		TeeURL: fmt.Sprintf("/v1/pipelines/%s/tee", pipeline.ID),
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handlePipelineTee attaches a new tee consumer to an already-running
// pipeline and streams its rows as NDJSON frames over a WebSocket
// until the consumer is exhausted, errors, or the client disconnects.
func (s *Server) handlePipelineTee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pipeline, ok := s.reg.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "pipeline not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("pipeline_id", id))
		return
	}
	defer conn.Close()

	consumerID, rows := pipeline.CreateConsumer()
	defer pipeline.CloseConsumer(consumerID)

	for {
		row, ok, err := rows.Next()
		if err != nil {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			return
		}
		if !ok {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		if err := conn.WriteJSON(row); err != nil {
			s.logger.Debug("tee consumer disconnected", zap.Error(err), zap.String("pipeline_id", id))
			return
		}
	}
}
