package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/domain/supplier"
)

func TestGormCatalogScope_Execute(t *testing.T) {
	db := newTestDB(t)
	scope := NewGormCatalogScope(db)
	ctx := context.Background()

	t.Run("commits every write", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos catalog.TransactionalRepositories) error {
			p, err := catalog.NewProduct("Widget A", "", "ACME")
			if err != nil {
				return err
			}
			if err := repos.Products().Create(ctx, p); err != nil {
				return err
			}
			v, err := catalog.NewVariant(p.ID, "A-001", decimal.RequireFromString("19.99"), catalog.CurrencyUSD)
			if err != nil {
				return err
			}
			if err := repos.Variants().Create(ctx, v); err != nil {
				return err
			}
			inv := catalog.NewInventory(v.ID)
			inv.SetQuantity(20)
			return repos.Inventories().Save(ctx, inv)
		})
		require.NoError(t, err)

		_, err = NewGormVariantRepository(db).FindBySKU(ctx, "A-001")
		assert.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos catalog.TransactionalRepositories) error {
			if _, err := repos.Categories().GetOrCreateCategory(ctx, "Lost"); err != nil {
				return err
			}
			p, err := catalog.NewProduct("Ghost", "", "")
			if err != nil {
				return err
			}
			if err := repos.Products().Create(ctx, p); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = NewGormProductRepository(db).FindByTitle(ctx, "Ghost")
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)

		var categories int64
		require.NoError(t, db.Table("categories").Count(&categories).Error)
		assert.Zero(t, categories)
	})
}

func TestGormSyncScope_Execute(t *testing.T) {
	db := newTestDB(t)
	scope := NewGormSyncScope(db)
	ctx := context.Background()
	acct := createAccount(t, db, "cj", 1)

	err := scope.Execute(ctx, func(repos supplier.SyncRepositories) error {
		p, err := catalog.NewProduct("Mug", "", "")
		if err != nil {
			return err
		}
		if err := repos.Products().Create(ctx, p); err != nil {
			return err
		}
		v, err := catalog.NewVariant(p.ID, "MUG-1", decimal.NewFromInt(5), catalog.CurrencyUSD)
		if err != nil {
			return err
		}
		if err := repos.Variants().Create(ctx, v); err != nil {
			return err
		}
		link := &supplier.SupplierProduct{ProviderAccountID: acct.ID, ExternalID: "V1", VariantID: v.ID, IsActive: true}
		if err := repos.SupplierProducts().Upsert(ctx, link); err != nil {
			return err
		}
		return errors.New("mapping failed")
	})
	require.Error(t, err)

	// the item's product, variant and link all roll back together
	count, err := NewGormProductRepository(db).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = NewGormSupplierProductRepository(db).FindByExternalID(ctx, acct.ID, "V1")
	assert.ErrorIs(t, err, supplier.ErrSupplierProductNotFound)
}
