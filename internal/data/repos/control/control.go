// Package control implements the control gateway (spec §4.1 GLOSSARY,
// §4.3): read/write/delete of the single control row a runner owns.
package control

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/platform/dbctx"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

type ControlGateway interface {
	// Get returns joberr.ErrControlNotFound if no row exists for name.
	Get(dbc dbctx.Context, name string) (*domain.Control, error)

	// Upsert inserts or replaces the control row. Grounded on
	// original_source/asdb_jobs/models/control.py's Control.commit,
	// which tries an update and falls back to insert.
	Upsert(dbc dbctx.Context, ctrl *domain.Control) error

	Delete(dbc dbctx.Context, name string) error
}

type controlGateway struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewControlGateway(db *gorm.DB, baseLog *logger.Logger) ControlGateway {
	return &controlGateway{db: db, log: baseLog.With("gateway", "ControlGateway")}
}

func (g *controlGateway) Get(dbc dbctx.Context, name string) (*domain.Control, error) {
	tx := dbc.Resolve(g.db)
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	var row domain.Control
	err := tx.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, joberr.ErrControlNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get control %s: %w", name, err)
	}
	return &row, nil
}

func (g *controlGateway) Upsert(dbc dbctx.Context, ctrl *domain.Control) error {
	tx := dbc.Resolve(g.db)
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// Save decides Create-vs-Update purely on whether the PK field is the
	// zero value, not on whether a row actually exists; since Name is
	// always set, Save would always take the Update-only path and the
	// first-ever upsert for a runner name would silently affect zero
	// rows. Use an explicit ON CONFLICT upsert instead.
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(ctrl).Error
	if err != nil {
		return fmt.Errorf("upsert control %s: %w", ctrl.Name, err)
	}
	return nil
}

func (g *controlGateway) Delete(dbc dbctx.Context, name string) error {
	tx := dbc.Resolve(g.db)
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := tx.WithContext(ctx).Where("name = ?", name).Delete(&domain.Control{}).Error; err != nil {
		return fmt.Errorf("delete control %s: %w", name, err)
	}
	return nil
}
