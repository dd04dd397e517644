package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"shopfront/internal/auth"
	"shopfront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies read by decodeJSON.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already sent; nothing useful can reach the client.
		return
	}
}

// writeData wraps data in a success envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, model.Envelope{Status: model.StatusSuccess, Data: data})
}

// writeList wraps a slice in a success envelope carrying its length.
func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	writeJSON(w, http.StatusOK, model.Envelope{Status: model.StatusSuccess, Results: &n, Data: items})
}

// WriteError maps err to a status and writes a fail (4xx) or error (5xx) envelope.
// Internal errors are logged and hidden from the client.
func WriteError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	status := http.StatusInternalServerError
	body := model.Envelope{Status: model.StatusError, Code: model.ErrCodeInternalError, Message: "something went wrong"}

	var de *model.DomainError
	if errors.As(err, &de) {
		status = de.StatusCode()
		body.Code = de.Code
		body.Message = de.Message
	}

	if status >= http.StatusInternalServerError {
		body.Status = model.StatusError
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		body.Status = model.StatusFail
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}

	writeJSON(w, status, body)
}

// decodeJSON reads the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		return model.NewDomainError(model.KindValidation, model.ErrCodeInvalidJSON, msg)
	}
	return nil
}

// pathUUID parses the named chi URL parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, model.NewValidationError("invalid " + name + " format")
	}
	return id, nil
}

// parseListQuery reads page, limit, sort, search and searchCol.
func parseListQuery(r *http.Request) (model.ListQuery, error) {
	values := r.URL.Query()
	q := model.ListQuery{
		Sort:      values.Get("sort"),
		Search:    values.Get("search"),
		SearchCol: values.Get("searchCol"),
	}

	var err error
	if s := values.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil {
			return q, model.NewValidationError("invalid page parameter")
		}
		if q.Page > model.MaxPage {
			return q, model.NewValidationError(fmt.Sprintf("page must not exceed %d", model.MaxPage))
		}
	}
	if s := values.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, model.NewValidationError("invalid limit parameter")
		}
	}

	return q.Normalise(), nil
}

// caller returns the authenticated identity set by the auth middleware.
func caller(r *http.Request) (auth.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.Identity{}, model.ErrUnauthorised
	}
	return id, nil
}
