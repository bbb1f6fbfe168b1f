package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/vpn/internal/model"
)

type stubLister struct {
	regions []model.Region
	err     error
}

func (s *stubLister) List(ctx context.Context) ([]model.Region, error) {
	return s.regions, s.err
}

func TestRegionList(t *testing.T) {
	svc := &stubLister{regions: []model.Region{{ID: 1, Code: "sg", Name: "Singapore"}}}
	h := NewRegion(svc)

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/v1/regions", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "sg", resp[0]["code"])
	assert.Equal(t, "Singapore", resp[0]["name"])
}

func TestRegionList_Empty(t *testing.T) {
	h := NewRegion(&stubLister{})

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/v1/regions", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestRegionList_Error(t *testing.T) {
	h := NewRegion(&stubLister{err: errors.New("connection reset")})

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/v1/regions", ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}
