package jsonapi

import (
	"encoding/json"
	"net/http"
)

// WriteDocument writes doc with the JSON:API content type.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteResource writes a single resource.
func WriteResource(w http.ResponseWriter, status int, r Resource) {
	WriteDocument(w, status, NewSingleResourceDocument(r))
}

// WriteCollection writes a collection.
func WriteCollection(w http.ResponseWriter, status int, resources []Resource) {
	WriteDocument(w, status, NewCollectionDocument(resources))
}

// WriteError writes errors with the status of the first one.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{ErrInternal("")}
	}
	status := errs[0].StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteDocument(w, status, NewErrorDocument(errs...))
}

// WriteMeta writes a document carrying only metadata.
func WriteMeta(w http.ResponseWriter, status int, meta Meta) {
	WriteDocument(w, status, Document{Meta: meta})
}
