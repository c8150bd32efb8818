package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
	"github.com/vervana-io/fastfast-common/internal/service/notification"
)

type sentNotification struct {
	User domain.User
	Data map[string]any
	Meta domain.Metadata
}

type broadcast struct {
	Users []domain.User
	Data  map[string]any
	Title string
	Body  string
	Event string
}

type waveCall struct {
	Order   domain.Order
	Exclude []int64
}

type fakeSender struct {
	created    []domain.Notification
	sent       []sentNotification
	broadcasts []broadcast
	waves      []waveCall
	sendErr    error
	waveErr    error
}

func (f *fakeSender) CreateNotification(_ context.Context, n domain.Notification) (domain.Notification, error) {
	n.ID = uint64(len(f.created) + 1)
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeSender) SendNotification(_ context.Context, user domain.User, data map[string]any, meta domain.Metadata) (map[string][]domain.DispatchResult, error) {
	f.sent = append(f.sent, sentNotification{User: user, Data: data, Meta: meta})
	return nil, f.sendErr
}

func (f *fakeSender) SendAllMessages(_ context.Context, users []domain.User, data map[string]any, title, body, event string) error {
	f.broadcasts = append(f.broadcasts, broadcast{Users: users, Data: data, Title: title, Body: body, Event: event})
	return nil
}

func (f *fakeSender) SendOrderApprovedNotification(_ context.Context, order domain.Order, exclude []int64) (*notification.RiderWaveResult, error) {
	f.waves = append(f.waves, waveCall{Order: order, Exclude: exclude})
	if f.waveErr != nil {
		return nil, f.waveErr
	}
	return &notification.RiderWaveResult{}, nil
}

func (f *fakeSender) NotifyRiders(context.Context, domain.Order, map[string]any, domain.Address, float64, []int64) (*notification.RiderWaveResult, error) {
	return &notification.RiderWaveResult{}, nil
}

func (f *fakeSender) GetNearestRiders(context.Context, int64, float64, float64, float64, []int64) ([]domain.Rider, error) {
	return nil, nil
}

func testOrder() domain.Order {
	return domain.Order{
		ID:        77,
		Reference: "REF-77",
		Status:    2,
		Seller: domain.Seller{
			ID: 5, UserID: 50, Name: "Mama Cass", TradingName: "Mama Cass Ltd",
			User: domain.User{ID: 50, Type: 2},
			PrimaryAddress: &domain.Address{
				City: "Lagos", HouseNumber: "12", Street: "Allen Ave",
			},
		},
		Customer: domain.Customer{ID: 9, UserID: 90, User: domain.User{ID: 90, Type: 1}},
		Rider:    &domain.Rider{ID: 3, UserID: 30, FullName: "Tunde Ade"},
		Products: []domain.OrderProduct{{Quantity: 2, Name: "Jollof Rice"}},
	}
}

func TestServices_ForRole(t *testing.T) {
	t.Parallel()
	services := NewServices(&fakeSender{})

	for _, role := range []string{"customer", "seller", "rider"} {
		svc, err := services.ForRole(role)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	}
	_, err := services.ForRole("admin")
	assert.ErrorIs(t, err, errs.ErrUnknownRole)
}

func TestCustomer_Created(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewCustomerService(sender)

	err := svc.Created(context.Background(), testOrder(), "txn-1")
	require.NoError(t, err)

	// 先落通知记录，再推给商家
	require.Len(t, sender.created, 1)
	assert.Equal(t, int64(50), sender.created[0].UserID)
	assert.Equal(t, "New Order", sender.created[0].Title)
	assert.Equal(t, "You have a new order: REF-77", sender.created[0].Body)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, int64(50), sent.User.ID)
	assert.Equal(t, "seller_new_order", sent.Meta.Event)
	assert.Equal(t, "created", sent.Meta.Status)
	assert.Equal(t, "txn-1", sent.Data["transaction_id"])
	assert.Equal(t, "order_details", sent.Data["screen"])
	assert.Equal(t, int64(5), sent.Data["seller_id"])
}

func TestCustomer_Canceled(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewCustomerService(sender)

	err := svc.Canceled(context.Background(), testOrder(), "txn-1", "out of stock")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "order_canceled", sender.sent[0].Meta.Event)
	assert.Equal(t, "Order REF-77 has been cancelled, reason: out of stock", sender.sent[0].Meta.Body)
}

func TestCustomer_NotPermitted(t *testing.T) {
	t.Parallel()
	svc := NewCustomerService(&fakeSender{})

	assert.ErrorIs(t, svc.Accepted(context.Background(), testOrder()), errs.ErrRoleNotPermitted)
	assert.ErrorIs(t, svc.Delayed(context.Background(), testOrder(), 10), errs.ErrRoleNotPermitted)
	// 顾客侧的接单和送达只是无动作，不报错
	assert.NoError(t, svc.Approved(context.Background(), testOrder(), nil))
	assert.NoError(t, svc.Delivered(context.Background(), testOrder()))
}

func TestSeller_Verified(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewSellerService(sender)

	err := svc.Verified(context.Background(), testOrder(), "txn-1")
	require.NoError(t, err)
	require.Len(t, sender.created, 1)
	assert.Equal(t, int64(90), sender.created[0].UserID)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, int64(90), sent.User.ID)
	assert.Equal(t, "Order Verification", sent.Meta.Title)
	assert.Equal(t, "Your Order REF-77 needs your verification", sent.Meta.Body)
	assert.Equal(t, "verify_order", sent.Meta.Event)
	assert.Equal(t, "Mama Cass", sent.Data["seller_name"])
}

func TestSeller_Approved_TriggersWave(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewSellerService(sender)

	err := svc.Approved(context.Background(), testOrder(), []int64{11})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(90), sender.sent[0].User.ID)
	assert.Equal(t, "order_approved", sender.sent[0].Meta.Event)
	assert.Equal(t, "Mama Cass has accepted your order and is now preparing it", sender.sent[0].Meta.Body)

	require.Len(t, sender.waves, 1)
	assert.Equal(t, []int64{11}, sender.waves[0].Exclude)
}

func TestSeller_Approved_WaveErrorPropagates(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{waveErr: errs.ErrNoAvailableRider}
	svc := NewSellerService(sender)

	err := svc.Approved(context.Background(), testOrder(), nil)
	assert.ErrorIs(t, err, errs.ErrNoAvailableRider)
}

func TestSeller_Ready_WithRider(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewSellerService(sender)

	err := svc.Ready(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Empty(t, sender.waves)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, int64(30), sent.User.ID)
	assert.Equal(t, "Order Pick Up", sent.Meta.Title)
	assert.Equal(t, "Order REF-77 for Mama Cass at 12 Allen Ave  is ready for pick up", sent.Meta.Body)

	var orderInfo map[string]any
	require.NoError(t, json.Unmarshal([]byte(sent.Data["data"].(string)), &orderInfo))
	assert.Equal(t, "order_pickup", orderInfo["notification_name"])
	assert.Equal(t, "Mama Cass Ltd", orderInfo["trading_name"])
}

func TestSeller_Ready_NoRiderFallsBackToWave(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewSellerService(sender)

	order := testOrder()
	order.Rider = nil
	err := svc.Ready(context.Background(), order)
	require.NoError(t, err)
	// 没有骑手时按刚接单处理，重新派单
	require.Len(t, sender.waves, 1)
}

func TestSeller_Delayed(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewSellerService(sender)

	err := svc.Delayed(context.Background(), testOrder(), 15)
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Preparation of order REF-77 by Mama Cass would be delayed by 15 minutes.",
		sender.sent[0].Meta.Body)
}

func TestSeller_NotPermitted(t *testing.T) {
	t.Parallel()
	svc := NewSellerService(&fakeSender{})

	assert.ErrorIs(t, svc.Created(context.Background(), testOrder(), ""), errs.ErrRoleNotPermitted)
	assert.ErrorIs(t, svc.Delivered(context.Background(), testOrder()), errs.ErrRoleNotPermitted)
	assert.ErrorIs(t, svc.Pickup(context.Background(), testOrder()), errs.ErrRoleNotPermitted)
}

func TestRider_Accepted(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewRiderService(sender)

	err := svc.Accepted(context.Background(), testOrder())
	require.NoError(t, err)

	// 顾客和商家各一条，再加一条广播
	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(90), sender.sent[0].User.ID)
	assert.Equal(t, int64(50), sender.sent[1].User.ID)
	assert.Equal(t, "customer_pick_up_order", sender.sent[0].Meta.Event)
	assert.Equal(t, "Tunde Ade has accepted the request to deliver the order REF-77 and is on the way.",
		sender.sent[0].Meta.Body)

	require.Len(t, sender.broadcasts, 1)
	assert.Equal(t, "rider_delivery_accept", sender.broadcasts[0].Event)
	require.Len(t, sender.broadcasts[0].Users, 2)
}

func TestRider_Accepted_NoRider(t *testing.T) {
	t.Parallel()
	svc := NewRiderService(&fakeSender{})
	order := testOrder()
	order.Rider = nil
	assert.ErrorIs(t, svc.Accepted(context.Background(), order), errs.ErrInvalidParameter)
}

func TestRider_Rejected_ExcludesRiderAndRedispatches(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewRiderService(sender)

	err := svc.Rejected(context.Background(), testOrder(), domain.Rider{ID: 3, FullName: "Tunde Ade"})
	require.NoError(t, err)

	require.Len(t, sender.broadcasts, 1)
	assert.Equal(t, "rider_delivery_rejected", sender.broadcasts[0].Event)
	assert.Equal(t, "Tunde Ade has rejected the request to deliver the order REF-77",
		sender.broadcasts[0].Body)

	require.Len(t, sender.waves, 1)
	assert.Equal(t, []int64{3}, sender.waves[0].Exclude)
}

func TestRider_Delivered(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewRiderService(sender)

	err := svc.Delivered(context.Background(), testOrder())
	require.NoError(t, err)
	require.Len(t, sender.broadcasts, 1)
	b := sender.broadcasts[0]
	assert.Equal(t, "rider_order_delivered", b.Event)
	assert.Equal(t, "Order REF-77 has been delivered successfully.", b.Body)
	assert.Equal(t, int64(3), b.Data["rider_id"])
	assert.Equal(t, int64(5), b.Data["seller_id"])
}

func TestRider_Pickup(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewRiderService(sender)

	err := svc.Pickup(context.Background(), testOrder())
	require.NoError(t, err)
	require.Len(t, sender.created, 1)
	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, "Your Order REF-77 has been picked up by Tunde Ade will is on the way", sent.Meta.Body)
	assert.Equal(t, "customer_pick_up_order", sent.Meta.Event)
	assert.Equal(t, int64(9), sent.Data["customer_id"])
}

func TestRider_Arrived(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name   string
		place  string
		toUser int64
		body   string
	}{
		{
			name: "到店", place: "seller", toUser: 50,
			body: "Tunde Ade has arrived to pick up Order: REF-77",
		},
		{
			name: "到达顾客", place: "customer", toUser: 90,
			body: "Tunde Ade has arrived with your Order: REF-77",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sender := &fakeSender{}
			svc := NewRiderService(sender)

			err := svc.Arrived(context.Background(), testOrder(), tc.place)
			require.NoError(t, err)
			require.Len(t, sender.sent, 1)
			assert.Equal(t, tc.toUser, sender.sent[0].User.ID)
			assert.Equal(t, tc.body, sender.sent[0].Meta.Body)
			assert.Equal(t, "river_arrived", sender.sent[0].Meta.Event)
		})
	}
}

func TestRider_Arrived_UnknownPlaceIgnored(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewRiderService(sender)

	err := svc.Arrived(context.Background(), testOrder(), "warehouse")
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestRider_DelayedIsNoop(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	svc := NewRiderService(sender)

	require.NoError(t, svc.Delayed(context.Background(), testOrder(), 10))
	assert.Empty(t, sender.sent)
}

func TestRider_NotPermitted(t *testing.T) {
	t.Parallel()
	svc := NewRiderService(&fakeSender{})

	assert.ErrorIs(t, svc.Created(context.Background(), testOrder(), ""), errs.ErrRoleNotPermitted)
	assert.ErrorIs(t, svc.Verified(context.Background(), testOrder(), ""), errs.ErrRoleNotPermitted)
	assert.ErrorIs(t, svc.Canceled(context.Background(), testOrder(), "", "x"), errs.ErrRoleNotPermitted)
	assert.ErrorIs(t, svc.Ready(context.Background(), testOrder()), errs.ErrRoleNotPermitted)
}

func TestSendErrorPropagates(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{sendErr: errors.New("push down")}
	svc := NewCustomerService(sender)

	err := svc.Created(context.Background(), testOrder(), "txn-1")
	assert.Error(t, err)
}
