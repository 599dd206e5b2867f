package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/config"
	"github.com/hyperjump/rollcall/internal/models"
	"github.com/hyperjump/rollcall/internal/storage"
)

const defaultLookupLimit = 20

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrUpstreamExtractor):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	limit := s.cfg.Server.MaxBodyBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var input models.EnrollInput
	if !s.decode(w, r, &input) {
		return
	}
	s.logger.Debug("enroll request",
		zap.String("source_type", input.SourceType),
		zap.String("source_id", input.SourceID),
		zap.Bool("media", len(input.Media) > 0))
	res, err := s.deps.Pipeline.Enroll(r.Context(), &input)
	if err != nil {
		s.fail(w, "enroll", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareQueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.deps.Recognition.CompareQuery(r.Context(), &req)
	if err != nil {
		s.fail(w, "compare", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompareStored(w http.ResponseWriter, r *http.Request) {
	var req models.CompareStoredRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.deps.Matcher.CompareStored(r.Context(), &req)
	if err != nil {
		s.fail(w, "compare stored", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if !s.decode(w, r, &query) {
		return
	}
	s.logger.Debug("search request", zap.Int("dims", len(query.Vector)), zap.Int("top_k", query.TopK))
	res, err := s.deps.Matcher.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("resolve request",
		zap.String("source_type", req.SourceType),
		zap.Int("faces", len(req.Vectors)+len(req.Media)),
		zap.Bool("notify", req.Notify))
	res, err := s.deps.Recognition.ResolveFrame(r.Context(), &req)
	if err != nil {
		s.fail(w, "resolve", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

type recordList struct {
	Records []*models.RecordView `json:"records"`
	Total   int                  `json:"total"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sourceType := r.URL.Query().Get("source_type")
	q := r.URL.Query().Get("q")

	var records []*models.VectorRecord
	if q != "" && s.deps.Catalog != nil {
		limit := defaultLookupLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		keys, err := s.deps.Catalog.Lookup(ctx, q, sourceType, limit)
		if err != nil {
			s.fail(w, "catalog lookup", err)
			return
		}
		for _, k := range keys {
			rec, err := s.deps.Store.Get(ctx, k.SourceType, k.SourceID)
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			if err != nil {
				s.fail(w, "get record", err)
				return
			}
			records = append(records, rec)
		}
	} else {
		if q != "" {
			s.respondError(w, http.StatusNotImplemented, "catalog not enabled")
			return
		}
		var err error
		records, err = s.deps.Store.List(ctx, storage.ListFilter{SourceType: sourceType})
		if err != nil {
			s.fail(w, "list records", err)
			return
		}
	}

	out := recordList{Records: make([]*models.RecordView, 0, len(records)), Total: len(records)}
	for _, rec := range records {
		out.Records = append(out.Records, models.NewRecordView(rec))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Store.Get(r.Context(), chi.URLParam(r, "sourceType"), chi.URLParam(r, "sourceId"))
	if err != nil {
		s.fail(w, "get record", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.NewRecordView(rec))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	sourceType, sourceID := chi.URLParam(r, "sourceType"), chi.URLParam(r, "sourceId")
	s.logger.Debug("delete record request", zap.String("source_type", sourceType), zap.String("source_id", sourceID))
	if err := s.deps.Pipeline.Delete(r.Context(), sourceType, sourceID); err != nil {
		s.fail(w, "delete record", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := s.deps.Store.Count(ctx, storage.ListFilter{})
	if err != nil {
		s.fail(w, "status: count records", err)
		return
	}
	types, err := s.deps.Store.SourceTypes(ctx)
	if err != nil {
		s.fail(w, "status: source types", err)
		return
	}
	bySourceType := make(map[string]int64, len(types))
	for _, st := range types {
		n, err := s.deps.Store.Count(ctx, storage.ListFilter{SourceType: st})
		if err != nil {
			s.fail(w, "status: count records", err)
			return
		}
		bySourceType[st] = n
	}

	resp := map[string]interface{}{
		"records":                total,
		"records_by_source_type": bySourceType,
	}
	if s.deps.Catalog != nil {
		if n, err := s.deps.Catalog.Count(); err == nil {
			resp["catalog_entries"] = n
		}
	}

	st := s.cfg.Storage
	configInfo := map[string]interface{}{
		"storage_backend":           st.Backend,
		"extractor_type":            s.cfg.Extractor.Type,
		"extractor_dimensions":      s.cfg.Extractor.Dimensions,
		"match_default_threshold":   s.cfg.Match.ThresholdOrDefault(),
		"resolve_default_threshold": s.cfg.Resolve.ThresholdOrDefault(),
		"truncate_mismatched":       s.cfg.Scoring.TruncateMismatched,
	}
	if len(s.cfg.Enroll.Dimensions) > 0 {
		configInfo["enroll_dimensions"] = s.cfg.Enroll.Dimensions
	}
	resp["config"] = configInfo

	diskBytes, err := storage.DiskUsage(storage.Options{
		Backend:      st.Backend,
		DatabasePath: st.DatabasePath,
		BadgerPath:   st.BadgerPath,
	})
	if err == nil {
		if catalogBytes, err := storage.DiskUsageBytes(st.CatalogPath); err == nil {
			diskBytes += catalogBytes
		}
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInboxList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.deps.Watch.Directories()})
}

type inboxAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleInboxAdd(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	var req inboxAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("inbox add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.deps.Watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("inbox add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistInbox()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleInboxRemove(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watch == nil {
		s.respondError(w, http.StatusNotImplemented, "inbox not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("inbox remove directory request", zap.String("path", abs))
	if err := s.deps.Watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("inbox remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistInbox()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistInbox() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.cfg.Inbox.Directories = s.deps.Watch.Directories()
	if err := config.Save(s.configPath, s.cfg); err != nil {
		s.logger.Warn("failed to persist inbox config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
