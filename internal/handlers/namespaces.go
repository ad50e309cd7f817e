package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"docstore-handles/internal/common/errors"
	"docstore-handles/internal/driver"
)

type namespaceResponse struct {
	Namespace string `json:"namespace"`
	Epoch     uint64 `json:"epoch"`
}

type collectionResponse struct {
	Namespace  string `json:"namespace"`
	Collection string `json:"collection"`
	FullName   string `json:"full_name"`
	Epoch      uint64 `json:"epoch"`
	Count      *int64 `json:"count,omitempty"`
}

// GetDefaultNamespace resolves the default namespace handle.
func (h *Handlers) GetDefaultNamespace(w http.ResponseWriter, r *http.Request) {
	ns, err := h.cache.Namespace(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, namespaceResponse{Namespace: ns.Name(), Epoch: h.cache.Epoch()})
}

// GetNamespace resolves the handle of the namespace named in the path.
func (h *Handlers) GetNamespace(w http.ResponseWriter, r *http.Request) {
	ns, err := h.cache.Namespace(r.Context(), mux.Vars(r)["namespace"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, namespaceResponse{Namespace: ns.Name(), Epoch: h.cache.Epoch()})
}

// GetCollection resolves a collection handle. Without a namespace in the
// path the default namespace is used. Counting drivers also report the
// number of documents.
func (h *Handlers) GetCollection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	names := []string{vars["collection"]}
	if ns, ok := vars["namespace"]; ok {
		names = []string{ns, vars["collection"]}
	}

	coll, err := h.cache.Collection(r.Context(), names...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := collectionResponse{
		Namespace:  coll.Namespace(),
		Collection: coll.Name(),
		FullName:   coll.FullName(),
		Epoch:      h.cache.Epoch(),
	}

	if counter, ok := coll.(driver.Counter); ok {
		n, err := counter.Count(r.Context())
		if err != nil {
			h.writeError(w, r, errors.ConnectionError("failed to count collection", err).
				WithContext("collection", coll.FullName()))
			return
		}
		resp.Count = &n
	}

	writeJSON(w, http.StatusOK, resp)
}
