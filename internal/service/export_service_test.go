package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/models"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/export"
)

type pagedListerStub struct {
	total int
	pages []int
}

func (p *pagedListerStub) List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequest, int, error) {
	p.pages = append(p.pages, filter.Page)
	start := (filter.Page - 1) * filter.PageSize
	end := start + filter.PageSize
	if end > p.total {
		end = p.total
	}
	var items []models.TrainingRequest
	for i := start; i < end; i++ {
		items = append(items, models.TrainingRequest{ID: fmt.Sprintf("req-%d", i), Status: models.StatusCompleted})
	}
	return items, p.total, nil
}

func TestExportRendersCSV(t *testing.T) {
	lister := &pagedListerStub{total: 3}
	svc := NewExportService(lister, nil, ExportConfig{}, zap.NewNop())

	result, err := svc.Export(context.Background(), actor("admin-1", models.RoleAdmin), dto.ExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))
	assert.Contains(t, string(result.Body), "req-2")
	assert.Equal(t, []int{1}, lister.pages)
}

func TestExportPagesAndCapsRows(t *testing.T) {
	lister := &pagedListerStub{total: 1200}
	svc := NewExportService(lister, export.NewRegistry(), ExportConfig{MaxRows: 700}, zap.NewNop())

	result, err := svc.Export(context.Background(), actor("pm-1", models.RoleProjectManager), dto.ExportQuery{Format: "xlsx"})
	require.NoError(t, err)
	assert.Equal(t, 700, result.Rows)
	assert.Equal(t, []int{1, 2}, lister.pages)
	assert.True(t, strings.HasSuffix(result.Filename, ".xlsx"))
}

func TestExportRejectsRoleAndFormat(t *testing.T) {
	svc := NewExportService(&pagedListerStub{}, nil, ExportConfig{}, zap.NewNop())

	_, err := svc.Export(context.Background(), actor("tr-1", models.RoleTrainer), dto.ExportQuery{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	_, err = svc.Export(context.Background(), actor("admin-1", models.RoleAdmin), dto.ExportQuery{Format: "docx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}
