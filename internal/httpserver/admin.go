package httpserver

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/larkmail/keepd/internal/housekeeper"
)

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	select {
	case s.intake <- housekeeper.ReloadSettingsEvent{}:
		Respond(w, http.StatusAccepted, map[string]string{"status": "reload queued"})
	case <-r.Context().Done():
		RespondError(w, http.StatusRequestTimeout, "canceled", "request canceled before reload could be queued")
	}
}

// PurgeRequest is the JSON body accepted by POST /admin/purge.
type PurgeRequest struct {
	Kind       string  `json:"kind" validate:"required,oneof=data blobs lookup account"`
	StoreIndex *uint32 `json:"storeIndex,omitempty"`
	Prefix     string  `json:"prefix,omitempty"` // base64-encoded, lookup only
	AccountID  *uint32 `json:"accountId,omitempty"`
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	purge, err := s.resolvePurge(req)
	if err != nil {
		RespondError(w, http.StatusUnprocessableEntity, "invalid_purge_request", err.Error())
		return
	}

	select {
	case s.intake <- housekeeper.PurgeEvent{Purge: purge}:
		Respond(w, http.StatusAccepted, map[string]string{"status": "purge queued"})
	case <-r.Context().Done():
		RespondError(w, http.StatusRequestTimeout, "canceled", "request canceled before purge could be queued")
	}
}

func (s *Server) resolvePurge(req PurgeRequest) (housekeeper.PurgeType, error) {
	switch req.Kind {
	case "account":
		return housekeeper.AccountPurge{Service: s.targets.Accounts, AccountID: req.AccountID}, nil

	case "data":
		h, err := s.storeHandle(req.StoreIndex)
		if err != nil {
			return nil, err
		}
		return housekeeper.DataPurge{Store: h.Data, StoreName: h.Name, StoreIndex: h.Index}, nil

	case "blobs":
		h, err := s.storeHandle(req.StoreIndex)
		if err != nil {
			return nil, err
		}
		return housekeeper.BlobsPurge{Store: h.Data, BlobStore: h.Blob, StoreName: h.Name, StoreIndex: h.Index}, nil

	case "lookup":
		h, err := s.storeHandle(req.StoreIndex)
		if err != nil {
			return nil, err
		}
		var prefix []byte
		if req.Prefix != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.Prefix)
			if err != nil {
				return nil, err
			}
			prefix = decoded
		}
		return housekeeper.LookupPurge{Store: h.Mem, Prefix: prefix, StoreName: h.Name, StoreIndex: h.Index}, nil

	default:
		return nil, fmt.Errorf("unknown purge kind %q", req.Kind)
	}
}

func (s *Server) storeHandle(index *uint32) (StoreHandle, error) {
	if index == nil {
		return StoreHandle{}, fmt.Errorf("storeIndex is required for this purge kind")
	}
	h, ok := s.targets.Stores[*index]
	if !ok {
		return StoreHandle{}, fmt.Errorf("unknown store index %d", *index)
	}
	return h, nil
}
