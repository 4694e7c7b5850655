package subscription

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Manager, *ledger.Ledger, *mockCanceller) {
	t.Helper()
	l := ledger.New(ledger.NewMemoryRepository(), nil, logger.Discard())
	c := &mockCanceller{}
	return NewManager(l, c, logger.Discard()), l, c
}

func createDonation(t *testing.T, l *ledger.Ledger, buyer string, recurring bool, status domain.Status) string {
	t.Helper()
	ctx := context.Background()
	rec := domain.Record{
		Kind: domain.KindDonation, BuyerID: buyer, Currency: "usd", Amount: 1500,
		Recurring: recurring, PaymentMethod: domain.PaymentMethodHostedRedirect,
	}
	if recurring {
		rec.Interval = domain.IntervalMonth
	}
	id, err := l.Create(ctx, rec)
	require.NoError(t, err)

	switch status {
	case domain.StatusActive, domain.StatusPaid, domain.StatusFailed:
		_, err = l.UpdateStatus(ctx, id, status, "sub_"+id)
		require.NoError(t, err)
	case domain.StatusCancelled:
		_, err = l.UpdateStatus(ctx, id, domain.StatusActive, "sub_"+id)
		require.NoError(t, err)
		_, err = l.UpdateStatus(ctx, id, domain.StatusCancelled, "")
		require.NoError(t, err)
	}
	return id
}

func TestList_OnlyRecurringDonations(t *testing.T) {
	m, l, _ := setup(t)
	ctx := context.Background()
	monthly := createDonation(t, l, "u1", true, domain.StatusActive)
	createDonation(t, l, "u1", false, domain.StatusPaid)
	createDonation(t, l, "u2", true, domain.StatusActive)
	_, err := l.Create(ctx, domain.Record{
		Kind: domain.KindOrder, BuyerID: "u1", Currency: "usd", PaymentMethod: domain.PaymentMethodInlineCard,
		Items: []domain.LineItem{{Key: "tee", ProductID: "tee", UnitPrice: 2000, Quantity: 1}},
	})
	require.NoError(t, err)

	recs, err := m.List(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, monthly, recs[0].ID)
}

func TestCancel_Active(t *testing.T) {
	m, l, c := setup(t)
	id := createDonation(t, l, "u1", true, domain.StatusActive)

	rec, err := m.Cancel(context.Background(), "u1", id)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelled, rec.Status)
	assert.NotNil(t, rec.CancelledAt)
	require.Len(t, c.requests, 1)
	assert.Equal(t, "sub_"+id, c.requests[0].ProcessorRef)
}

func TestCancel_NotActiveRejected(t *testing.T) {
	for _, st := range []domain.Status{domain.StatusPending, domain.StatusCancelled, domain.StatusFailed} {
		t.Run(string(st), func(t *testing.T) {
			m, l, c := setup(t)
			id := createDonation(t, l, "u1", true, st)

			_, err := m.Cancel(context.Background(), "u1", id)

			var ise *InvalidStateError
			require.ErrorAs(t, err, &ise)
			assert.Equal(t, st, ise.Status)
			assert.Empty(t, c.requests)

			rec, err := l.Fetch(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, st, rec.Status)
		})
	}
}

func TestCancel_OtherBuyerIsNotFound(t *testing.T) {
	m, l, c := setup(t)
	id := createDonation(t, l, "u2", true, domain.StatusActive)

	_, err := m.Cancel(context.Background(), "u1", id)

	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Empty(t, c.requests)
}

func TestCancel_OneTimeDonationIsNotFound(t *testing.T) {
	m, l, _ := setup(t)
	id := createDonation(t, l, "u1", false, domain.StatusPaid)

	_, err := m.Cancel(context.Background(), "u1", id)

	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCancel_ProcessorFailureLeavesActive(t *testing.T) {
	m, l, c := setup(t)
	id := createDonation(t, l, "u1", true, domain.StatusActive)
	c.err = errBillingDown

	_, err := m.Cancel(context.Background(), "u1", id)

	var ce *CancellationError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, errBillingDown)

	rec, err := l.Fetch(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, rec.Status)
	assert.Nil(t, rec.CancelledAt)
}

func TestCancel_Missing(t *testing.T) {
	m, _, _ := setup(t)

	_, err := m.Cancel(context.Background(), "u1", "nope")

	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
