package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/gotomicro/ego/core/elog"
	"github.com/hashicorp/go-multierror"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
	"github.com/vervana-io/fastfast-common/internal/firestore"
	"github.com/vervana-io/fastfast-common/internal/repository"
	"github.com/vervana-io/fastfast-common/internal/service/channel"
	devicesvc "github.com/vervana-io/fastfast-common/internal/service/device"
)

// Config 分发配置
type Config struct {
	// RealtimeChannel 实时通道的基础频道名，个人频道为 {channel}.{userID}
	RealtimeChannel string
	// RiderWaveEvent 派单波次的事件名
	RiderWaveEvent string
	// RiderChannelPrefix 骑手波次频道前缀，完整频道为 {prefix}{userID}
	RiderChannelPrefix string
	// FeedCollection 派单镜像文档的集合名
	FeedCollection string
	// InitialRadiusKm 首轮搜索半径
	InitialRadiusKm float64
	// RadiusStepKm 每轮扩大的半径
	RadiusStepKm float64
	// MaxRadiusKm 扩半径的硬上限，超过即放弃派单
	MaxRadiusKm float64
	// TestSellers 灰度商家固定派给指定骑手，绕过距离搜索
	TestSellers map[int64]int64
}

func (c *Config) setDefaults() {
	if c.RealtimeChannel == "" {
		c.RealtimeChannel = "FastFast"
	}
	if c.RiderWaveEvent == "" {
		c.RiderWaveEvent = "rider_new_order"
	}
	if c.RiderChannelPrefix == "" {
		c.RiderChannelPrefix = "orders.approved."
	}
	if c.FeedCollection == "" {
		c.FeedCollection = "rider_orders"
	}
	if c.InitialRadiusKm <= 0 {
		c.InitialRadiusKm = 5
	}
	if c.RadiusStepKm <= 0 {
		c.RadiusStepKm = 2
	}
	if c.MaxRadiusKm <= 0 {
		c.MaxRadiusKm = 50
	}
}

// documentFeed 镜像文档写入端，firestore.Client 实现
type documentFeed interface {
	AddMultipleDocuments(ctx context.Context, collection string, docs []firestore.BulkDocument) []domain.DispatchResult
}

// RiderWaveResult 一轮派单波次的结果
type RiderWaveResult struct {
	// RadiusKm 实际命中骑手的半径
	RadiusKm float64
	Riders   []domain.Rider
	Requests []domain.RiderOrderRequest
	Feed     []domain.DispatchResult
	Realtime []domain.DispatchResult
	FCM      []domain.DispatchResult
	APNs     []domain.DispatchResult
	// ChannelErr 各通道错误的聚合。通道之间互不影响，这里只记录不中断
	ChannelErr error
}

// Sender 通知分发入口
type Sender interface {
	// CreateNotification 落一条通知记录
	CreateNotification(ctx context.Context, notification domain.Notification) (domain.Notification, error)
	// SendNotification 给单个用户按设备全渠道推送
	SendNotification(ctx context.Context, user domain.User, data map[string]any, meta domain.Metadata) (map[string][]domain.DispatchResult, error)
	// SendAllMessages 给一批用户推送同一条消息，并广播实时事件
	SendAllMessages(ctx context.Context, users []domain.User, data map[string]any, title, body, event string) error
	// SendOrderApprovedNotification 订单确认后发起派单波次
	SendOrderApprovedNotification(ctx context.Context, order domain.Order, exclude []int64) (*RiderWaveResult, error)
	// NotifyRiders 按半径搜索骑手并下发波次，空轮次扩大半径重搜
	NotifyRiders(ctx context.Context, order domain.Order, orderInfo map[string]any, address domain.Address, radiusKm float64, exclude []int64) (*RiderWaveResult, error)
	// GetNearestRiders 半径内可接单骑手，按距离升序
	GetNearestRiders(ctx context.Context, sellerID int64, latitude, longitude, radiusKm float64, excludes []int64) ([]domain.Rider, error)
}

type sender struct {
	devices       devicesvc.Service
	fcm           channel.PushChannel
	apns          channel.APNsSender
	realtime      channel.RealtimeSender
	feed          documentFeed
	riders        repository.RiderRepository
	requests      repository.RiderOrderRequestRepository
	notifications repository.NotificationRepository
	cfg           Config
	logger        *elog.Component
}

func NewSender(
	devices devicesvc.Service,
	fcm channel.PushChannel,
	apns channel.APNsSender,
	realtime channel.RealtimeSender,
	feed documentFeed,
	riders repository.RiderRepository,
	requests repository.RiderOrderRequestRepository,
	notifications repository.NotificationRepository,
	cfg Config,
) Sender {
	cfg.setDefaults()
	return &sender{
		devices:       devices,
		fcm:           fcm,
		apns:          apns,
		realtime:      realtime,
		feed:          feed,
		riders:        riders,
		requests:      requests,
		notifications: notifications,
		cfg:           cfg,
		logger:        elog.DefaultLogger,
	}
}

func (s *sender) CreateNotification(ctx context.Context, notification domain.Notification) (domain.Notification, error) {
	return s.notifications.Create(ctx, notification)
}

func (s *sender) SendNotification(ctx context.Context, user domain.User, data map[string]any, meta domain.Metadata) (map[string][]domain.DispatchResult, error) {
	tokens, err := s.devices.GetTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	results := make(map[string][]domain.DispatchResult, 3)
	payload := stringifyData(data)

	if android := tokens.Tokens.Android; len(android) > 0 {
		messages := tokenMessages(android, meta.Title, meta.Body, payload)
		res, err := s.fcm.Send(ctx, messages)
		if err != nil {
			s.logger.Warn("fcm 推送失败", elog.FieldErr(err), elog.Int64("userID", user.ID))
			res = failAll(android, err)
		}
		results["fcm"] = res
	}
	if ios := tokens.Tokens.IOS; len(ios) > 0 {
		messages := tokenMessages(ios, meta.Title, meta.Body, payload)
		res, err := s.apns.Send(ctx, tokens.UserType, messages)
		if err != nil {
			s.logger.Warn("apns 推送失败", elog.FieldErr(err), elog.Int64("userID", user.ID))
			res = failAll(ios, err)
		}
		results["apns"] = res
	}

	realtimeChannel := meta.Channel
	if realtimeChannel == "" {
		realtimeChannel = s.cfg.RealtimeChannel
	}
	userChannel := fmt.Sprintf("%s.%d", realtimeChannel, user.ID)
	if err := s.realtime.Trigger(ctx, userChannel, meta.Event, data); err != nil {
		s.logger.Warn("实时事件触发失败", elog.FieldErr(err), elog.String("channel", userChannel))
		results["pusher"] = []domain.DispatchResult{domain.FailedResult(userChannel, err)}
	} else {
		results["pusher"] = []domain.DispatchResult{domain.SucceededResult(userChannel, meta.Event)}
	}
	return results, nil
}

func (s *sender) SendAllMessages(ctx context.Context, users []domain.User, data map[string]any, title, body, event string) error {
	allTokens, err := s.devices.GetUsersTokens(ctx, users)
	if err != nil {
		return err
	}
	payload := stringifyData(data)
	var combined error

	android := make([]string, 0, len(allTokens))
	for _, tokens := range allTokens {
		android = append(android, tokens.Tokens.Android...)
	}
	if len(android) > 0 {
		if _, err := s.fcm.Send(ctx, tokenMessages(android, title, body, payload)); err != nil {
			combined = multierror.Append(combined, err)
		}
	}
	for _, tokens := range allTokens {
		if len(tokens.Tokens.IOS) == 0 {
			continue
		}
		messages := tokenMessages(tokens.Tokens.IOS, title, body, payload)
		if _, err := s.apns.Send(ctx, tokens.UserType, messages); err != nil {
			combined = multierror.Append(combined, err)
		}
	}
	if err := s.realtime.Trigger(ctx, s.cfg.RealtimeChannel, event, data); err != nil {
		combined = multierror.Append(combined, err)
	}
	return combined
}

func (s *sender) SendOrderApprovedNotification(ctx context.Context, order domain.Order, exclude []int64) (*RiderWaveResult, error) {
	if order.Seller.PrimaryAddress == nil {
		return nil, fmt.Errorf("%w: 商家 %d 缺少主地址", errs.ErrInvalidParameter, order.Seller.ID)
	}
	orderInfo := s.buildOrderInfo(order)
	return s.NotifyRiders(ctx, order, orderInfo, *order.Seller.PrimaryAddress, s.cfg.InitialRadiusKm, exclude)
}

// buildOrderInfo 派单波次里透传给骑手端的订单摘要
func (s *sender) buildOrderInfo(order domain.Order) map[string]any {
	products := make([]any, 0, len(order.Products))
	totalPrep := 0
	for _, product := range order.Products {
		products = append(products, map[string]any{
			"Quantity": product.Quantity,
			"name":     product.Name,
		})
		totalPrep += product.PrepTime
	}
	averagePrep := 0
	if len(order.Products) > 0 {
		averagePrep = int(math.Round(float64(totalPrep) / float64(len(order.Products))))
	}

	customerAddress := map[string]any{
		"latitude":  order.DeliveryLatitude,
		"longitude": order.DeliveryLongitude,
		"street":    order.DeliveryStreet,
	}
	if order.IsGift {
		customerAddress["city"] = order.ReceiverCity
		customerAddress["house_number"] = order.ReceiverHouseNumber
	} else if order.Address != nil {
		customerAddress["city"] = order.Address.City
		customerAddress["house_number"] = order.Address.HouseNumber
	}

	sellerAddress := map[string]any{}
	if addr := order.Seller.PrimaryAddress; addr != nil {
		sellerAddress = map[string]any{
			"city":             addr.City,
			"house_number":     addr.HouseNumber,
			"latitude":         addr.Latitude,
			"longitude":        addr.Longitude,
			"street":           addr.Street,
			"nearest_bus_stop": addr.NearestBusStop,
		}
	}

	return map[string]any{
		"notification_name": "order_request",
		"status":            order.Status,
		"address":           sellerAddress,
		"customer_address":  customerAddress,
		"amount":            order.TotalAmount,
		"sub_total":         order.SubTotal,
		"delivery_fee":      order.DeliveryFee,
		"order_id":          order.ID,
		"orders":            products,
		"time":              fmt.Sprintf("%d minutes", averagePrep),
		"title":             order.Seller.Name + " has an order",
		"trading_name":      order.Seller.TradingName,
		"reference":         order.Reference,
	}
}

func (s *sender) NotifyRiders(ctx context.Context, order domain.Order, orderInfo map[string]any, address domain.Address, radiusKm float64, exclude []int64) (*RiderWaveResult, error) {
	if radiusKm <= 0 {
		radiusKm = s.cfg.InitialRadiusKm
	}
	for radius := radiusKm; radius <= s.cfg.MaxRadiusKm; radius += s.cfg.RadiusStepKm {
		riders, err := s.GetNearestRiders(ctx, order.Seller.ID, address.Latitude, address.Longitude, radius, exclude)
		if err != nil {
			return nil, err
		}
		if len(riders) == 0 {
			continue
		}
		result, err := s.sendRidersNotifications(ctx, order, riders, orderInfo)
		if err != nil {
			return nil, err
		}
		result.RadiusKm = radius
		return result, nil
	}
	return nil, fmt.Errorf("%w: 订单 %d 半径 %.0fkm 内无人可派",
		errs.ErrNoAvailableRider, order.ID, s.cfg.MaxRadiusKm)
}

func (s *sender) GetNearestRiders(ctx context.Context, sellerID int64, latitude, longitude, radiusKm float64, excludes []int64) ([]domain.Rider, error) {
	if riderID, ok := s.cfg.TestSellers[sellerID]; ok {
		pinned, err := s.riders.GetByIDs(ctx, []int64{riderID})
		if err != nil {
			return nil, err
		}
		if len(pinned) > 0 {
			return pinned, nil
		}
	}
	return s.riders.FindNearest(ctx, latitude, longitude, radiusKm, excludes)
}

func (s *sender) sendRidersNotifications(ctx context.Context, order domain.Order, riders []domain.Rider, orderInfo map[string]any) (*RiderWaveResult, error) {
	title := "New Order"
	sellerAddress := ""
	if order.Seller.PrimaryAddress != nil {
		sellerAddress = order.Seller.PrimaryAddress.Line()
	}
	body := fmt.Sprintf("New Order %s for %s at %s", order.Reference, order.Seller.Name, sellerAddress)

	// 先落派单请求再回读，拿数据库生成的请求 ID
	requests := slice.Map(riders, func(_ int, rider domain.Rider) domain.RiderOrderRequest {
		return domain.RiderOrderRequest{
			OrderID: order.ID,
			RiderID: rider.ID,
			Status:  domain.RiderOrderRequestPending,
		}
	})
	if err := s.requests.BatchCreate(ctx, requests); err != nil {
		return nil, err
	}
	stored, err := s.requests.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	requestIDs := make(map[int64]int64, len(stored))
	for _, request := range stored {
		requestIDs[request.RiderID] = request.ID
	}

	riderUsers := slice.Map(riders, func(_ int, rider domain.Rider) domain.User {
		return domain.User{ID: rider.UserID, Type: 3}
	})
	allTokens, err := s.devices.GetUsersTokens(ctx, riderUsers)
	if err != nil {
		return nil, err
	}
	tokensByUser := make(map[int64]domain.TokenGroup, len(allTokens))
	for _, tokens := range allTokens {
		tokensByUser[tokens.UserID] = tokens.Tokens
	}

	rawInfo, err := json.Marshal(orderInfo)
	if err != nil {
		return nil, fmt.Errorf("%w: 订单摘要序列化失败: %w", errs.ErrInvalidParameter, err)
	}

	// 每个骑手一份带请求 ID 的负载
	payloads := make(map[int64]map[string]string, len(riders))
	for _, rider := range riders {
		payloads[rider.ID] = map[string]string{
			"user_id":    strconv.FormatInt(rider.UserID, 10),
			"order_id":   strconv.FormatInt(order.ID, 10),
			"rider_id":   strconv.FormatInt(rider.ID, 10),
			"request_id": strconv.FormatInt(requestIDs[rider.ID], 10),
			"title":      title,
			"body":       body,
			"data":       string(rawInfo),
		}
	}

	result := &RiderWaveResult{Riders: riders, Requests: stored}

	// 四个通道独立下发，单个通道挂掉不影响其余通道
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	appendErr := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		result.ChannelErr = multierror.Append(result.ChannelErr, err)
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		docs := make([]firestore.BulkDocument, 0, len(riders))
		for _, rider := range riders {
			data := make(map[string]any, len(payloads[rider.ID])+1)
			for k, v := range payloads[rider.ID] {
				data[k] = v
			}
			data["created_at"] = time.Now().UTC()
			docs = append(docs, firestore.BulkDocument{Data: data})
		}
		result.Feed = s.feed.AddMultipleDocuments(ctx, s.cfg.FeedCollection, docs)
	}()
	go func() {
		defer wg.Done()
		events := make([]channel.BatchEvent, 0, len(riders))
		for _, rider := range riders {
			events = append(events, channel.BatchEvent{
				Channel: fmt.Sprintf("%s%d", s.cfg.RiderChannelPrefix, rider.UserID),
				Name:    s.cfg.RiderWaveEvent,
				Data:    map[string]any{"order": payloads[rider.ID]},
			})
		}
		res, err := s.realtime.TriggerBatch(ctx, events)
		result.Realtime = res
		appendErr(err)
	}()
	go func() {
		defer wg.Done()
		messages := make([]channel.TokenMessage, 0, len(riders))
		for _, rider := range riders {
			for _, token := range tokensByUser[rider.UserID].Android {
				messages = append(messages, channel.TokenMessage{
					Token: token,
					Title: title,
					Body:  body,
					Data:  payloads[rider.ID],
				})
			}
		}
		if len(messages) == 0 {
			return
		}
		res, err := s.fcm.Send(ctx, messages)
		result.FCM = res
		appendErr(err)
	}()
	go func() {
		defer wg.Done()
		messages := make([]channel.TokenMessage, 0, len(riders))
		for _, rider := range riders {
			for _, token := range tokensByUser[rider.UserID].IOS {
				messages = append(messages, channel.TokenMessage{
					Token: token,
					Title: title,
					Body:  body,
					Data:  payloads[rider.ID],
				})
			}
		}
		if len(messages) == 0 {
			return
		}
		res, err := s.apns.Send(ctx, domain.UserTypeRider, messages)
		result.APNs = res
		appendErr(err)
	}()
	wg.Wait()

	if result.ChannelErr != nil {
		s.logger.Warn("派单波次部分通道失败",
			elog.FieldErr(result.ChannelErr),
			elog.Int64("orderID", order.ID),
			elog.Int("riders", len(riders)))
	}
	return result, nil
}

func tokenMessages(tokens []string, title, body string, data map[string]string) []channel.TokenMessage {
	return slice.Map(tokens, func(_ int, token string) channel.TokenMessage {
		return channel.TokenMessage{Token: token, Title: title, Body: body, Data: data}
	})
}

func failAll(tokens []string, err error) []domain.DispatchResult {
	return slice.Map(tokens, func(_ int, token string) domain.DispatchResult {
		return domain.FailedResult(token, err)
	})
}

// stringifyData 推送数据只接受字符串值，其余类型兜底序列化
func stringifyData(data map[string]any) map[string]string {
	payload := make(map[string]string, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			payload[k] = val
		case int:
			payload[k] = strconv.Itoa(val)
		case int64:
			payload[k] = strconv.FormatInt(val, 10)
		case float64:
			payload[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			payload[k] = strconv.FormatBool(val)
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				continue
			}
			payload[k] = string(raw)
		}
	}
	return payload
}
