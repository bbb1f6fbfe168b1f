package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/vpn/internal/api/response"
	"github.com/edvin/vpn/internal/model"
)

// RegionLister returns the regions served by this deployment. Implemented by
// core.RegionService.
type RegionLister interface {
	List(ctx context.Context) ([]model.Region, error)
}

type Region struct {
	svc RegionLister
}

func NewRegion(svc RegionLister) *Region {
	return &Region{svc: svc}
}

func (h *Region) List(w http.ResponseWriter, r *http.Request) {
	regions, err := h.svc.List(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list regions failed")
		response.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]map[string]string, 0, len(regions))
	for _, region := range regions {
		out = append(out, map[string]string{"code": region.Code, "name": region.Name})
	}
	response.WriteJSON(w, http.StatusOK, out)
}
