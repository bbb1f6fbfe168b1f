package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegionService_List(t *testing.T) {
	db := &mockDB{}
	rows := newMockRows(func(dest ...any) error {
		*(dest[0].(*int64)) = 1
		*(dest[1].(*string)) = "sg"
		*(dest[2].(*string)) = "Singapore"
		return nil
	})
	db.On("Query", mock.Anything, sqlContains("FROM regions WHERE code"), []any{"sg"}).
		Return(rows, nil)

	service := NewRegionService(db, "sg")
	regions, err := service.List(context.Background())

	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "sg", regions[0].Code)
	assert.Equal(t, "Singapore", regions[0].Name)
	db.AssertExpectations(t)
}

func TestRegionService_List_QueryError(t *testing.T) {
	db := &mockDB{}
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	service := NewRegionService(db, "sg")
	_, err := service.List(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list regions")
}

func TestRegionService_List_ScanError(t *testing.T) {
	db := &mockDB{}
	rows := newMockRows(func(dest ...any) error {
		return errors.New("type mismatch")
	})
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return(rows, nil)

	service := NewRegionService(db, "sg")
	_, err := service.List(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan region")
}
