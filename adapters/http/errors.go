package http

import (
	"errors"
	"net/http"

	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/pkg/jsonapi"
)

// StatusOf maps the kind of err to an HTTP status.
func StatusOf(err error) int {
	if errors.Is(err, edge.ErrNotContainer) {
		return http.StatusBadRequest
	}
	switch errs.KindOf(err) {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Forbidden:
		return http.StatusForbidden
	case errs.Invalid, errs.Unknown:
		return http.StatusBadRequest
	case errs.AlreadyExists:
		return http.StatusConflict
	case errs.Unavailable:
		return http.StatusServiceUnavailable
	case errs.Unimplemented:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// ErrorFor converts err to a JSON:API error. The code is the error kind.
func ErrorFor(err error) jsonapi.Error {
	if err == nil {
		return jsonapi.ErrInternal("")
	}
	status := StatusOf(err)
	code := errs.KindOf(err).String()
	if errors.Is(err, edge.ErrNotContainer) {
		code = "not_container"
	}
	return jsonapi.NewError(status, code, http.StatusText(status)).Detail(err.Error()).Build()
}

func writeError(w http.ResponseWriter, err error) {
	jsonapi.WriteError(w, ErrorFor(err))
}
