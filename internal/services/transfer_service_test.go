package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"famledger/internal/models"
	"famledger/internal/period"
	"famledger/internal/testutil"
)

// svcDeps bundles the per-subtest database and IDs the transfer tests share.
type svcDeps struct {
	db     *gorm.DB
	family uint
	budget uint
}

func TestTransfer(t *testing.T) {
	anchor := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	// Source line: limit 500000, banked rollover 80000 (effective 580000).
	setup := func(t *testing.T) (svcDeps, uint, uint, uint) {
		db := testutil.SetupTestDB(t)
		t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

		user := testutil.CreateTestUser(t, db)
		family := testutil.CreateTestFamily(t, db, user.ID)
		from := testutil.CreateTestCategory(t, db, family.ID, models.CategoryTypeExpense)
		to := testutil.CreateTestCategory(t, db, family.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, family.ID, nil, period.UnitMonthly, anchor,
			testutil.BudgetLine{CategoryID: from.ID, MonthlyLimit: 500000, EnableRollover: true, RolloverAmount: 80000},
			testutil.BudgetLine{CategoryID: to.ID, MonthlyLimit: 200000, EnableRollover: true, RolloverAmount: 10000},
		)

		return svcDeps{db: db, family: family.ID, budget: budget.ID}, from.ID, to.ID, budget.ID
	}

	newSvc := func(db *gorm.DB) TransferServicer {
		return NewTransferService(db, NewSpendService(db))
	}

	t.Run("moves_rollover_and_conserves_total", func(t *testing.T) {
		deps, fromID, toID, budgetID := setup(t)
		svc := newSvc(deps.db)

		// 470000 spent leaves 110000 available of the 580000 effective limit.
		testutil.CreateTestExpense(t, deps.db, deps.family, fromID, 470000,
			time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))

		result, err := svc.Transfer(deps.family, budgetID, fromID, toID, 50000, "dining out this month")
		testutil.AssertNoError(t, err)

		if result.FromRollover != 30000 {
			t.Errorf("expected source rollover 30000, got %d", result.FromRollover)
		}
		if result.ToRollover != 60000 {
			t.Errorf("expected destination rollover 60000, got %d", result.ToRollover)
		}

		var total int64
		deps.db.Model(&models.BudgetCategory{}).
			Where("budget_id = ?", budgetID).
			Select("COALESCE(SUM(rollover_amount), 0)").Scan(&total)
		if total != 90000 {
			t.Errorf("expected combined rollover conserved at 90000, got %d", total)
		}

		// Base limits never move.
		var from models.BudgetCategory
		deps.db.Where("budget_id = ? AND category_id = ?", budgetID, fromID).First(&from)
		if from.MonthlyLimit != 500000 {
			t.Errorf("expected source limit untouched at 500000, got %d", from.MonthlyLimit)
		}
	})

	t.Run("unspent_base_allowance_backs_transfer", func(t *testing.T) {
		deps, fromID, toID, budgetID := setup(t)
		svc := newSvc(deps.db)

		// No spend: 580000 available, so moving more than the banked 80000
		// is allowed and drives the source rollover negative.
		result, err := svc.Transfer(deps.family, budgetID, fromID, toID, 200000, "front-load the move")
		testutil.AssertNoError(t, err)

		if result.FromRollover != -120000 {
			t.Errorf("expected source rollover -120000, got %d", result.FromRollover)
		}
		if result.ToRollover != 210000 {
			t.Errorf("expected destination rollover 210000, got %d", result.ToRollover)
		}
	})

	t.Run("insufficient_funds_mutates_nothing", func(t *testing.T) {
		deps, fromID, toID, budgetID := setup(t)
		svc := newSvc(deps.db)

		testutil.CreateTestExpense(t, deps.db, deps.family, fromID, 470000,
			time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))

		_, err := svc.Transfer(deps.family, budgetID, fromID, toID, 110001, "too much")
		testutil.AssertAppErrorContains(t, err, "INSUFFICIENT_FUNDS", "110000 available")

		var from, to models.BudgetCategory
		deps.db.Where("budget_id = ? AND category_id = ?", budgetID, fromID).First(&from)
		deps.db.Where("budget_id = ? AND category_id = ?", budgetID, toID).First(&to)
		if from.RolloverAmount != 80000 || to.RolloverAmount != 10000 {
			t.Errorf("expected rollovers unchanged (80000, 10000), got (%d, %d)",
				from.RolloverAmount, to.RolloverAmount)
		}
	})

	t.Run("exact_available_transfers_fully", func(t *testing.T) {
		deps, fromID, toID, budgetID := setup(t)
		svc := newSvc(deps.db)

		testutil.CreateTestExpense(t, deps.db, deps.family, fromID, 470000,
			time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC))

		result, err := svc.Transfer(deps.family, budgetID, fromID, toID, 110000, "")
		testutil.AssertNoError(t, err)

		if result.FromRollover != -30000 {
			t.Errorf("expected source rollover -30000, got %d", result.FromRollover)
		}
		if result.ToRollover != 120000 {
			t.Errorf("expected destination rollover 120000, got %d", result.ToRollover)
		}
	})

	t.Run("spend_outside_window_ignored", func(t *testing.T) {
		deps, fromID, toID, budgetID := setup(t)
		svc := newSvc(deps.db)

		// February spend does not count against March's availability.
		testutil.CreateTestExpense(t, deps.db, deps.family, fromID, 999999,
			time.Date(2025, 2, 20, 10, 0, 0, 0, time.UTC))

		_, err := svc.Transfer(deps.family, budgetID, fromID, toID, 580000, "everything")
		testutil.AssertNoError(t, err)
	})

	t.Run("same_category_rejected", func(t *testing.T) {
		deps, fromID, _, budgetID := setup(t)
		svc := newSvc(deps.db)

		_, err := svc.Transfer(deps.family, budgetID, fromID, fromID, 10000, "")
		testutil.AssertAppError(t, err, "SAME_CATEGORY_TRANSFER")
	})

	t.Run("non_positive_amount_rejected", func(t *testing.T) {
		deps, fromID, toID, budgetID := setup(t)
		svc := newSvc(deps.db)

		_, err := svc.Transfer(deps.family, budgetID, fromID, toID, 0, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.Transfer(deps.family, budgetID, fromID, toID, -500, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("category_outside_budget_rejected", func(t *testing.T) {
		deps, fromID, _, budgetID := setup(t)
		svc := newSvc(deps.db)
		stranger := testutil.CreateTestCategory(t, deps.db, deps.family, models.CategoryTypeExpense)

		_, err := svc.Transfer(deps.family, budgetID, fromID, stranger.ID, 10000, "")
		testutil.AssertAppError(t, err, "BUDGET_CATEGORY_NOT_FOUND")
	})

	t.Run("wrong_family_budget_not_found", func(t *testing.T) {
		deps, fromID, toID, budgetID := setup(t)
		svc := newSvc(deps.db)

		_, err := svc.Transfer(deps.family+1, budgetID, fromID, toID, 10000, "")
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}
