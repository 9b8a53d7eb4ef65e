package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"zlibsearch/internal/api"
	"zlibsearch/internal/logger"
	"zlibsearch/internal/search"
)

var (
	errMissingQuery = errors.New("query parameter is required")
	errDuplicate    = errors.New("parameter given more than once")
)

type Handler struct {
	state *State
}

func NewHandler(st *State) *Handler {
	return &Handler{state: st}
}

// Health answers liveness probes: 200 with an empty body.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Search handles GET /search?query=...&limit=N.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := bindQuery(r.URL.RawQuery, h.state.DefaultLimit)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error(), nil)
		return
	}

	res, err := h.state.Search.Search(r.Context(), q)
	if err != nil {
		logger.For(r.Context()).WithError(err).WithField("query", q.Query).Error("search.failed")
		api.WriteError(w, http.StatusInternalServerError, api.CodeEngineError, "search failed", nil)
		return
	}

	api.WriteJSON(w, http.StatusOK, res)
}

// bindQuery decodes the raw query string into a search.Query. query must be
// present (an empty value is allowed); limit is optional and must be an
// unsigned decimal integer, optionally signed with a single '+'. Neither
// may repeat.
func bindQuery(raw string, defaultLimit uint) (search.Query, error) {
	values := parseQueryString(raw)

	qs, ok := values["query"]
	if !ok {
		return search.Query{}, errMissingQuery
	}
	if len(qs) > 1 {
		return search.Query{}, fmt.Errorf("query: %w", errDuplicate)
	}

	q := search.Query{Query: qs[0], Limit: defaultLimit}

	if ls, ok := values["limit"]; ok {
		if len(ls) > 1 {
			return search.Query{}, fmt.Errorf("limit: %w", errDuplicate)
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(ls[0], "+"), 10, strconv.IntSize)
		if err != nil {
			return search.Query{}, fmt.Errorf("limit must be a non-negative integer, got %q", ls[0])
		}
		q.Limit = uint(n)
	}

	return q, nil
}

// parseQueryString splits raw on '&' only and form-decodes every key and
// value. Unlike url.ParseQuery it never fails: ';' is ordinary text and a
// malformed escape is kept literally.
func parseQueryString(raw string) map[string][]string {
	values := make(map[string][]string)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key := formUnescape(k)
		values[key] = append(values[key], formUnescape(v))
	}
	return values
}

// formUnescape turns '+' into a space and decodes %XX escapes. Anything
// else, including a stray '%', is copied through. Invalid UTF-8 left by
// the decoding becomes U+FFFD.
func formUnescape(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(n))
					i += 2
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return strings.ToValidUTF8(b.String(), "\uFFFD")
}
