package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPartyBalanceRepository implements finance.Repository using GORM
type GormPartyBalanceRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormPartyBalanceRepository creates a new GormPartyBalanceRepository
func NewGormPartyBalanceRepository(db *gorm.DB) *GormPartyBalanceRepository {
	return &GormPartyBalanceRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event
// publishing
func (r *GormPartyBalanceRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// conn returns the transaction carried by the context when a unit of work
// is open, the plain connection otherwise
func (r *GormPartyBalanceRepository) conn(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// FindByParty loads the balance for a party and side
func (r *GormPartyBalanceRepository) FindByParty(ctx context.Context, partyID uuid.UUID, side finance.Side) (*finance.PartyBalance, error) {
	var balance finance.PartyBalance
	if err := r.conn(ctx).
		Where("party_id = ? AND side = ?", partyID, side).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// FindByPartyForUpdate loads the balance with a row lock, creating an empty
// one if the party has no balance yet. The unique index on (party_id, side)
// resolves the race when two requests create the same balance concurrently.
func (r *GormPartyBalanceRepository) FindByPartyForUpdate(ctx context.Context, partyID uuid.UUID, side finance.Side) (*finance.PartyBalance, error) {
	var balance finance.PartyBalance
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("party_id = ? AND side = ?", partyID, side).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh, err := finance.NewPartyBalance(partyID, side)
	if err != nil {
		return nil, err
	}
	if err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "party_id"}, {Name: "side"}},
			DoNothing: true,
		}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	// Re-read under the lock; the insert may have lost the race
	if err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("party_id = ? AND side = ?", partyID, side).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

// Save persists the balance and appends its transactions atomically, with
// an optimistic version check on the balance row
func (r *GormPartyBalanceRepository) Save(ctx context.Context, balance *finance.PartyBalance, txs ...*finance.BalanceTransaction) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		result := tx.Model(&finance.PartyBalance{}).
			Where("id = ?", balance.ID).
			Select("version").
			Scan(&currentVersion)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			if err := tx.Create(balance).Error; err != nil {
				return err
			}
		} else {
			if currentVersion != balance.GetVersion() {
				return shared.ErrStaleState
			}

			balance.IncrementVersion()
			balance.UpdatedAt = time.Now()

			updates := tx.Model(&finance.PartyBalance{}).
				Where("id = ? AND version = ?", balance.ID, currentVersion).
				Updates(map[string]interface{}{
					"total_invoiced": balance.TotalInvoiced,
					"total_paid":     balance.TotalPaid,
					"total_credited": balance.TotalCredited,
					"version":        balance.GetVersion(),
					"updated_at":     balance.UpdatedAt,
				})
			if updates.Error != nil {
				return updates.Error
			}
			if updates.RowsAffected == 0 {
				return shared.ErrStaleState
			}
		}

		if len(txs) > 0 {
			if err := tx.Create(txs).Error; err != nil {
				return err
			}
		}

		return r.saveEvents(ctx, tx, balance)
	})
}

// saveEvents writes the balance's pending events to the outbox within the
// transaction, so audit lines for balance movements cannot be lost
func (r *GormPartyBalanceRepository) saveEvents(ctx context.Context, tx *gorm.DB, balance *finance.PartyBalance) error {
	events := balance.GetDomainEvents()
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return err
	}
	balance.ClearDomainEvents()
	return nil
}

// FindTransactions lists a party's movements, newest first
func (r *GormPartyBalanceRepository) FindTransactions(ctx context.Context, partyID uuid.UUID, side finance.Side, limit int) ([]*finance.BalanceTransaction, error) {
	if limit < 1 {
		limit = 50
	}
	var txs []*finance.BalanceTransaction
	err := r.conn(ctx).
		Where("party_id = ? AND side = ?", partyID, side).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

// FindAllTransactions streams every movement for one party and side in
// chronological order, used by reconciliation
func (r *GormPartyBalanceRepository) FindAllTransactions(ctx context.Context, partyID uuid.UUID, side finance.Side) ([]*finance.BalanceTransaction, error) {
	var txs []*finance.BalanceTransaction
	err := r.conn(ctx).
		Where("party_id = ? AND side = ?", partyID, side).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}

// Ensure GormPartyBalanceRepository implements finance.Repository
var _ finance.Repository = (*GormPartyBalanceRepository)(nil)
