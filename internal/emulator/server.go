// Package emulator serves the store's REST surface from a local SQLite
// database. It backs end-to-end tests and the CLI "emulator" command.
package emulator

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/fivetwenty-io/tablestore/internal/constants"
	"github.com/fivetwenty-io/tablestore/pkg/tables"
)

// Server handles /{version}/{baseID}/{table}[/{recordID}].
type Server struct {
	store    *Store
	apiKey   string
	baseID   string
	pageSize int
	logger   tables.Logger
	requests atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithAPIKey requires every request to carry this bearer token.
func WithAPIKey(apiKey string) Option {
	return func(s *Server) {
		s.apiKey = apiKey
	}
}

// WithBaseID serves only this base; other bases are not found.
func WithBaseID(baseID string) Option {
	return func(s *Server) {
		s.baseID = baseID
	}
}

// WithPageSize sets the page size used when a request does not ask for one.
func WithPageSize(pageSize int) Option {
	return func(s *Server) {
		if pageSize > 0 {
			s.pageSize = min(pageSize, constants.MaxPageSize)
		}
	}
}

// WithLogger logs every request.
func WithLogger(logger tables.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer serves store.
func NewServer(store *Store, opts ...Option) *Server {
	server := &Server{
		store:    store,
		pageSize: constants.DefaultPageSize,
	}

	for _, opt := range opts {
		opt(server)
	}

	return server
}

// Requests returns the number of requests served so far.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Handler returns the HTTP handler of the emulator.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)
	r.Use(s.authenticate)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": constants.CategoryNotFound})
	})

	r.Route("/{version}/{baseID}/{table}", func(r chi.Router) {
		r.Use(s.checkBase)

		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Patch("/", s.updateMany(false))
		r.Put("/", s.updateMany(true))
		r.Delete("/", s.destroyMany)

		r.Get("/{recordID}", s.get)
		r.Patch("/{recordID}", s.updateOne(false))
		r.Put("/{recordID}", s.updateOne(true))
		r.Delete("/{recordID}", s.destroy)
	})

	return r
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)

		if s.logger != nil {
			s.logger.Debug("Emulator Request", map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
				"query":  r.URL.RawQuery,
			})
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey {
			writeError(w, http.StatusUnauthorized, constants.CategoryAuthenticationNeeded,
				"Authentication required")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBase(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.baseID != "" && chi.URLParam(r, "baseID") != s.baseID {
			writeError(w, http.StatusNotFound, constants.CategoryNotFound,
				fmt.Sprintf("Could not find base %s", chi.URLParam(r, "baseID")))

			return
		}

		next.ServeHTTP(w, r)
	})
}

type listParams struct {
	offset     int
	pageSize   int
	maxRecords int
	fields     []string
	sort       *tables.SortParam
}

func (s *Server) parseListParams(query url.Values) (*listParams, error) {
	params := &listParams{pageSize: s.pageSize}

	var offset string
	if err := decodeQueryValue(query, "offset", &offset); err != nil {
		return nil, err
	}

	if offset != "" {
		position, err := strconv.Atoi(strings.TrimPrefix(offset, "itr"))
		if err != nil || position < 0 {
			return nil, fmt.Errorf("%w: invalid offset %q", errInvalidRequest, offset)
		}

		params.offset = position
	}

	if err := decodeQueryValue(query, "pageSize", &params.pageSize); err != nil {
		return nil, err
	}

	if params.pageSize <= 0 || params.pageSize > constants.MaxPageSize {
		return nil, fmt.Errorf("%w: pageSize must be between 1 and %d", errInvalidRequest, constants.MaxPageSize)
	}

	if err := decodeQueryValue(query, "maxRecords", &params.maxRecords); err != nil {
		return nil, err
	}

	if err := decodeQueryValue(query, "fields", &params.fields); err != nil {
		return nil, err
	}

	if err := decodeQueryValue(query, "sort", &params.sort); err != nil {
		return nil, err
	}

	return params, nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	params, err := s.parseListParams(r.URL.Query())
	if err != nil {
		writeStoreError(w, err)

		return
	}

	records, err := s.store.List(r.Context(), tableName(r))
	if err != nil {
		writeStoreError(w, err)

		return
	}

	if params.sort != nil {
		sortRecords(records, params.sort)
	}

	if params.maxRecords > 0 && len(records) > params.maxRecords {
		records = records[:params.maxRecords]
	}

	start := min(params.offset, len(records))
	end := min(start+params.pageSize, len(records))

	response := map[string]any{"records": project(records[start:end], params.fields)}
	if end < len(records) {
		response["offset"] = "itr" + strconv.Itoa(end)
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.Get(r.Context(), tableName(r), recordID(r))
	if errors.Is(err, ErrRecordNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": constants.CategoryNotFound})

		return
	}

	if err != nil {
		writeStoreError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, record)
}

type writeBody struct {
	Fields  map[string]any `json:"fields"`
	Records []struct {
		ID     string         `json:"id"`
		Fields map[string]any `json:"fields"`
	} `json:"records"`
}

func decodeWriteBody(r *http.Request) (*writeBody, error) {
	body := &writeBody{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		return nil, fmt.Errorf("%w: could not parse request body: %w", errInvalidRequest, err)
	}

	if len(body.Records) > constants.MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d records per request", errInvalidRecords, constants.MaxBatchSize)
	}

	return body, nil
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeWriteBody(r)
	if err != nil {
		writeStoreError(w, err)

		return
	}

	if body.Records == nil {
		if body.Fields == nil {
			writeStoreError(w, fmt.Errorf("%w: missing fields", errInvalidRequest))

			return
		}

		created, err := s.store.Create(r.Context(), tableName(r), []map[string]any{body.Fields})
		if err != nil {
			writeStoreError(w, err)

			return
		}

		writeJSON(w, http.StatusOK, created[0])

		return
	}

	fields := make([]map[string]any, len(body.Records))
	for index, record := range body.Records {
		fields[index] = record.Fields
	}

	created, err := s.store.Create(r.Context(), tableName(r), fields)
	if err != nil {
		writeStoreError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": created})
}

func (s *Server) updateOne(replace bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeWriteBody(r)
		if err != nil {
			writeStoreError(w, err)

			return
		}

		updated, err := s.store.Update(r.Context(), tableName(r),
			[]Update{{ID: recordID(r), Fields: body.Fields}}, replace)
		if err != nil {
			writeStoreError(w, err)

			return
		}

		writeJSON(w, http.StatusOK, updated[0])
	}
}

func (s *Server) updateMany(replace bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeWriteBody(r)
		if err != nil {
			writeStoreError(w, err)

			return
		}

		updates := make([]Update, len(body.Records))
		for index, record := range body.Records {
			updates[index] = Update{ID: record.ID, Fields: record.Fields}
		}

		updated, err := s.store.Update(r.Context(), tableName(r), updates, replace)
		if err != nil {
			writeStoreError(w, err)

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"records": updated})
	}
}

func (s *Server) destroy(w http.ResponseWriter, r *http.Request) {
	id := recordID(r)

	if err := s.store.Delete(r.Context(), tableName(r), []string{id}); err != nil {
		writeStoreError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, tables.DeletedRecord{ID: id, Deleted: true})
}

func (s *Server) destroyMany(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := decodeQueryValue(r.URL.Query(), "records", &ids); err != nil {
		writeStoreError(w, err)

		return
	}

	if len(ids) > constants.MaxBatchSize {
		writeStoreError(w, fmt.Errorf("%w: at most %d records per request", errInvalidRecords, constants.MaxBatchSize))

		return
	}

	if err := s.store.Delete(r.Context(), tableName(r), ids); err != nil {
		writeStoreError(w, err)

		return
	}

	deleted := make([]tables.DeletedRecord, len(ids))
	for index, id := range ids {
		deleted[index] = tables.DeletedRecord{ID: id, Deleted: true}
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": deleted})
}

var (
	errInvalidRequest = errors.New(constants.CategoryInvalidRequest)
	errInvalidRecords = errors.New(constants.CategoryInvalidRecords)
)

// decodeQueryValue decodes a JSON-encoded query parameter. A value that is
// not valid JSON is taken as a plain string.
func decodeQueryValue(query url.Values, key string, target any) error {
	raw := query.Get(key)
	if raw == "" {
		return nil
	}

	if err := json.Unmarshal([]byte(raw), target); err == nil {
		return nil
	}

	if text, ok := target.(*string); ok {
		*text = raw

		return nil
	}

	if number, ok := target.(*int); ok {
		value, err := strconv.Atoi(raw)
		if err == nil {
			*number = value

			return nil
		}
	}

	return fmt.Errorf("%w: invalid value for %s", errInvalidRequest, key)
}

func sortRecords(records []*StoredRecord, param *tables.SortParam) {
	sort.SliceStable(records, func(i, j int) bool {
		order := compareValues(records[i].Fields[param.Field], records[j].Fields[param.Field])
		if param.Direction == tables.SortDesc {
			return order > 0
		}

		return order < 0
	})
}

// compareValues orders numbers numerically and everything else by its text.
// Missing values sort first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	left, leftIsNumber := a.(float64)
	right, rightIsNumber := b.(float64)

	if leftIsNumber && rightIsNumber {
		switch {
		case left < right:
			return -1
		case left > right:
			return 1
		}

		return 0
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func project(records []*StoredRecord, fields []string) []*StoredRecord {
	if len(fields) == 0 {
		return records
	}

	projected := make([]*StoredRecord, len(records))

	for index, record := range records {
		subset := map[string]any{}

		for _, name := range fields {
			if value, ok := record.Fields[name]; ok {
				subset[name] = value
			}
		}

		projected[index] = &StoredRecord{ID: record.ID, Fields: subset}
	}

	return projected
}

func tableName(r *http.Request) string {
	return unescape(chi.URLParam(r, "table"))
}

func recordID(r *http.Request) string {
	return unescape(chi.URLParam(r, "recordID"))
}

func unescape(value string) string {
	unescaped, err := url.PathUnescape(value)
	if err != nil {
		return value
	}

	return unescaped
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		writeError(w, http.StatusNotFound, constants.CategoryModelIDNotFound, err.Error())
	case errors.Is(err, errInvalidRecords):
		writeError(w, http.StatusUnprocessableEntity, constants.CategoryInvalidRecords, err.Error())
	case errors.Is(err, errInvalidRequest):
		writeError(w, http.StatusUnprocessableEntity, constants.CategoryInvalidRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, constants.CategoryServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"type": category, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
