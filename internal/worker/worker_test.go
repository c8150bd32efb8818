package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vervana-io/fastfast-common/internal/consumer"
	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
	ordersvc "github.com/vervana-io/fastfast-common/internal/service/order"
)

type call struct {
	Method        string
	Order         domain.Order
	TransactionID string
	Reason        string
	Minutes       int
	Place         string
	Exclude       []int64
	Rider         domain.Rider
}

type fakeOrderService struct {
	calls []call
	err   error
}

func (f *fakeOrderService) Created(_ context.Context, order domain.Order, transactionID string) error {
	f.calls = append(f.calls, call{Method: "created", Order: order, TransactionID: transactionID})
	return f.err
}

func (f *fakeOrderService) Verified(_ context.Context, order domain.Order, transactionID string) error {
	f.calls = append(f.calls, call{Method: "verified", Order: order, TransactionID: transactionID})
	return f.err
}

func (f *fakeOrderService) Approved(_ context.Context, order domain.Order, exclude []int64) error {
	f.calls = append(f.calls, call{Method: "approved", Order: order, Exclude: exclude})
	return f.err
}

func (f *fakeOrderService) Canceled(_ context.Context, order domain.Order, transactionID, reason string) error {
	f.calls = append(f.calls, call{Method: "canceled", Order: order, TransactionID: transactionID, Reason: reason})
	return f.err
}

func (f *fakeOrderService) Rejected(_ context.Context, order domain.Order, rider domain.Rider) error {
	f.calls = append(f.calls, call{Method: "rejected", Order: order, Rider: rider})
	return f.err
}

func (f *fakeOrderService) Delivered(_ context.Context, order domain.Order) error {
	f.calls = append(f.calls, call{Method: "delivered", Order: order})
	return f.err
}

func (f *fakeOrderService) Ready(_ context.Context, order domain.Order) error {
	f.calls = append(f.calls, call{Method: "ready", Order: order})
	return f.err
}

func (f *fakeOrderService) Delayed(_ context.Context, order domain.Order, minutes int) error {
	f.calls = append(f.calls, call{Method: "delayed", Order: order, Minutes: minutes})
	return f.err
}

func (f *fakeOrderService) Accepted(_ context.Context, order domain.Order) error {
	f.calls = append(f.calls, call{Method: "accepted", Order: order})
	return f.err
}

func (f *fakeOrderService) Pickup(_ context.Context, order domain.Order) error {
	f.calls = append(f.calls, call{Method: "pickup", Order: order})
	return f.err
}

func (f *fakeOrderService) Arrived(_ context.Context, order domain.Order, place string) error {
	f.calls = append(f.calls, call{Method: "arrived", Order: order, Place: place})
	return f.err
}

type fakeIdempotent struct {
	seen map[string]bool
	err  error
}

// Exists 和真实实现一样是 check-and-mark 语义
func (f *fakeIdempotent) Exists(_ context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	seen := f.seen[key]
	f.seen[key] = true
	return seen, nil
}

func (f *fakeIdempotent) MExists(_ context.Context, keys ...string) ([]bool, error) {
	results := make([]bool, 0, len(keys))
	for _, key := range keys {
		results = append(results, f.seen[key])
		f.seen[key] = true
	}
	return results, nil
}

func (f *fakeIdempotent) Remove(_ context.Context, key string) error {
	delete(f.seen, key)
	return nil
}

type workerFixture struct {
	seller *fakeOrderService
	rider  *fakeOrderService
	idem   *fakeIdempotent
	worker *OrderEventWorker
}

func newWorkerFixture() *workerFixture {
	f := &workerFixture{
		seller: &fakeOrderService{},
		rider:  &fakeOrderService{},
		idem:   &fakeIdempotent{seen: map[string]bool{}},
	}
	f.worker = NewOrderEventWorker(nil, ordersvc.Services{
		Customer: &fakeOrderService{},
		Seller:   f.seller,
		Rider:    f.rider,
	}, f.idem)
	return f
}

func message(id, body string) *consumer.QueueMessage {
	msg := consumer.NewQueueMessage(body)
	msg.SetMessageID(id)
	return msg
}

func TestHandleMessage_RoutesApproved(t *testing.T) {
	t.Parallel()
	f := newWorkerFixture()

	body := `{
		"event": "approved",
		"role": "seller",
		"exclude": [11, 12],
		"order": {
			"id": 77,
			"reference": "REF-77",
			"status": 2,
			"total_amount": "5400.00",
			"is_gift": 1,
			"seller": {"id": 5, "user_id": 50, "name": "Mama Cass", "user": {"id": 50, "type": 2}},
			"customer": {"id": 9, "user_id": 90, "user": {"id": 90, "type": 1}},
			"order_products": [{"quantity": 2, "name": "Jollof Rice", "prep_time": "20"}]
		}
	}`
	done, err := f.worker.handleMessage(context.Background(), message("m-1", body))
	require.NoError(t, err)
	assert.True(t, done)

	require.Len(t, f.seller.calls, 1)
	got := f.seller.calls[0]
	assert.Equal(t, "approved", got.Method)
	assert.Equal(t, []int64{11, 12}, got.Exclude)
	assert.Equal(t, int64(77), got.Order.ID)
	// PHP 过来的数字字符串和 0/1 布尔要能解
	assert.Equal(t, 5400.0, got.Order.TotalAmount)
	assert.True(t, got.Order.IsGift)
	require.Len(t, got.Order.Products, 1)
	assert.Equal(t, 20, got.Order.Products[0].PrepTime)
}

func TestHandleMessage_RoutesRiderEvents(t *testing.T) {
	t.Parallel()
	f := newWorkerFixture()

	body := `{
		"event": "arrived",
		"role": "rider",
		"place": "customer",
		"order": {"id": 1, "reference": "R1", "rider": {"id": 3, "user_id": 30, "full_name": "Tunde"}}
	}`
	done, err := f.worker.handleMessage(context.Background(), message("m-2", body))
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, f.rider.calls, 1)
	assert.Equal(t, "arrived", f.rider.calls[0].Method)
	assert.Equal(t, "customer", f.rider.calls[0].Place)
	require.NotNil(t, f.rider.calls[0].Order.Rider)
	assert.Equal(t, "Tunde", f.rider.calls[0].Order.Rider.FullName)
}

func TestHandleMessage_DelayedMinutes(t *testing.T) {
	t.Parallel()
	f := newWorkerFixture()

	body := `{"event": "delayed", "role": "seller", "time": "15", "order": {"id": 1}}`
	done, err := f.worker.handleMessage(context.Background(), message("m-3", body))
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, f.seller.calls, 1)
	assert.Equal(t, 15, f.seller.calls[0].Minutes)
}

func TestHandleMessage_DuplicateAcked(t *testing.T) {
	t.Parallel()
	f := newWorkerFixture()
	f.idem.seen["dup-1"] = true

	done, err := f.worker.handleMessage(context.Background(),
		message("dup-1", `{"event": "approved", "role": "seller", "order": {"id": 1}}`))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, f.seller.calls)
}

func TestHandleMessage_IdempotencyErrorStillProcesses(t *testing.T) {
	t.Parallel()
	f := newWorkerFixture()
	f.idem.err = errors.New("redis down")

	done, err := f.worker.handleMessage(context.Background(),
		message("m-4", `{"event": "approved", "role": "seller", "order": {"id": 1}}`))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, f.seller.calls, 1)
}

func TestHandleMessage_PoisonMessagesAcked(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		body string
	}{
		{name: "解析不了", body: `{not json`},
		{name: "未知角色", body: `{"event": "approved", "role": "admin", "order": {"id": 1}}`},
		{name: "未知事件", body: `{"event": "exploded", "role": "seller", "order": {"id": 1}}`},
		{name: "角色无权限", body: `{"event": "created", "role": "seller", "order": {"id": 1}}`},
		{name: "缺少骑手", body: `{"event": "rejected", "role": "rider", "order": {"id": 1}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newWorkerFixture()
			f.seller.err = errs.ErrRoleNotPermitted

			done, err := f.worker.handleMessage(context.Background(), message("p-1", tc.body))
			require.NoError(t, err)
			assert.True(t, done)
		})
	}
}

func TestHandleMessage_ProcessingFailureNacks(t *testing.T) {
	t.Parallel()
	f := newWorkerFixture()
	f.seller.err = errors.New("db down")

	done, err := f.worker.handleMessage(context.Background(),
		message("m-5", `{"event": "approved", "role": "seller", "order": {"id": 1}}`))
	assert.Error(t, err)
	assert.False(t, done)
}

func TestHandleMessage_FailureUnmarksForRedelivery(t *testing.T) {
	t.Parallel()
	f := newWorkerFixture()
	f.seller.err = errors.New("db down")

	body := `{"event": "approved", "role": "seller", "order": {"id": 1}}`
	done, err := f.worker.handleMessage(context.Background(), message("retry-1", body))
	require.Error(t, err)
	assert.False(t, done)

	// nack 之后重投的同一条消息不能被幂等标记挡掉
	f.seller.err = nil
	done, err = f.worker.handleMessage(context.Background(), message("retry-1", body))
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, f.seller.calls, 2)

	// 处理成功后标记留下，再投递才算重复
	done, err = f.worker.handleMessage(context.Background(), message("retry-1", body))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, f.seller.calls, 2)
}

type stubWorker struct {
	err     error
	started chan struct{}
}

func (s *stubWorker) Handle(ctx context.Context) error {
	close(s.started)
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestQueueWorker_RequiresWorkers(t *testing.T) {
	t.Parallel()
	err := NewQueueWorker().Start(context.Background())
	assert.ErrorIs(t, err, errs.ErrNoWorkers)
}

func TestQueueWorker_FailingWorkerStopsAll(t *testing.T) {
	t.Parallel()
	failing := &stubWorker{err: errors.New("poll failed"), started: make(chan struct{})}
	blocking := &stubWorker{started: make(chan struct{})}

	err := NewQueueWorker(failing, blocking).Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, "poll failed", err.Error())
	<-failing.started
	<-blocking.started
}
