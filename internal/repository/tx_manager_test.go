package repository

import (
	"context"
	"errors"
	"testing"

	"oneflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTx_CommitsDocumentAndMirror(t *testing.T) {
	db := newTestDB(t)
	user, project := seedProject(t, db)
	billing, expenses := NewBillingRepository(db), NewExpenseRepository(db)

	err := NewTransactionManager(db).RunInTx(context.Background(), func(txCtx context.Context) error {
		so := newSalesOrder("SO-1", &project.ID)
		if err := billing.Create(txCtx, so); err != nil {
			return err
		}
		return expenses.Create(txCtx, mirrorOf(so, user.ID))
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countRows(t, db, &model.SalesOrder{}))
	assert.Equal(t, int64(1), countRows(t, db, &model.Expense{}))
}

func TestRunInTx_RollsBackDocumentWhenMirrorFails(t *testing.T) {
	db := newTestDB(t)
	user, project := seedProject(t, db)
	billing, expenses := NewBillingRepository(db), NewExpenseRepository(db)
	errMirror := errors.New("mirror insert failed")

	err := NewTransactionManager(db).RunInTx(context.Background(), func(txCtx context.Context) error {
		so := newSalesOrder("SO-1", &project.ID)
		if err := billing.Create(txCtx, so); err != nil {
			return err
		}
		if err := expenses.Create(txCtx, mirrorOf(so, user.ID)); err != nil {
			return err
		}
		return errMirror
	})
	require.ErrorIs(t, err, errMirror)

	assert.Zero(t, countRows(t, db, &model.SalesOrder{}))
	assert.Zero(t, countRows(t, db, &model.Expense{}))
}

func TestRunInTx_NestedCallsJoinOuterTransaction(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db := newTestDB(t)
		txm, billing := NewTransactionManager(db), NewBillingRepository(db)

		err := txm.RunInTx(context.Background(), func(txCtx context.Context) error {
			if err := billing.Create(txCtx, newSalesOrder("SO-1", nil)); err != nil {
				return err
			}
			return txm.RunInTx(txCtx, func(inner context.Context) error {
				return billing.Create(inner, newPurchaseOrder("PO-1", nil))
			})
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), countRows(t, db, &model.SalesOrder{}))
		assert.Equal(t, int64(1), countRows(t, db, &model.PurchaseOrder{}))
	})

	t.Run("inner failure undoes outer writes", func(t *testing.T) {
		db := newTestDB(t)
		txm, billing := NewTransactionManager(db), NewBillingRepository(db)
		errInner := errors.New("inner failed")

		err := txm.RunInTx(context.Background(), func(txCtx context.Context) error {
			if err := billing.Create(txCtx, newSalesOrder("SO-1", nil)); err != nil {
				return err
			}
			return txm.RunInTx(txCtx, func(inner context.Context) error {
				if err := billing.Create(inner, newPurchaseOrder("PO-1", nil)); err != nil {
					return err
				}
				return errInner
			})
		})
		require.ErrorIs(t, err, errInner)
		assert.Zero(t, countRows(t, db, &model.SalesOrder{}))
		assert.Zero(t, countRows(t, db, &model.PurchaseOrder{}))
	})
}
