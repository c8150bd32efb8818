package channel

import (
	"context"
	"fmt"

	"github.com/gotomicro/ego/core/elog"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
)

// APNsConfig 苹果推送配置，token 鉴权
type APNsConfig struct {
	// AuthKeyPath .p8 私钥路径
	AuthKeyPath string
	KeyID       string
	TeamID      string
	// Production 顾客端和骑手端走哪套环境
	Production bool

	CustomerBundleID string
	RiderBundleID    string
	SellerBundleID   string
}

func (c *APNsConfig) Validate() error {
	if c.AuthKeyPath == "" || c.KeyID == "" || c.TeamID == "" {
		return fmt.Errorf("%w: APNs 鉴权配置不完整", errs.ErrInvalidParameter)
	}
	return nil
}

// apnsPusher apns2.Client 里用到的子集
type apnsPusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNsChannel iOS 推送渠道。
// 商家端固定走生产环境，其余角色按配置切环境。
type APNsChannel struct {
	production apnsPusher
	dev        apnsPusher
	cfg        APNsConfig
	logger     *elog.Component
}

func NewAPNsChannel(cfg APNsConfig) (*APNsChannel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	authKey, err := token.AuthKeyFromFile(cfg.AuthKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取 APNs 私钥失败: %w", errs.ErrSendNotificationFailed, err)
	}
	tok := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}
	return newAPNsChannel(
		apns2.NewTokenClient(tok).Production(),
		apns2.NewTokenClient(tok).Development(),
		cfg,
	), nil
}

func newAPNsChannel(production, dev apnsPusher, cfg APNsConfig) *APNsChannel {
	return &APNsChannel{
		production: production,
		dev:        dev,
		cfg:        cfg,
		logger:     elog.DefaultLogger,
	}
}

func (c *APNsChannel) Send(ctx context.Context, userType domain.UserType, messages []TokenMessage) ([]domain.DispatchResult, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	client := c.clientFor(userType)
	topic := c.bundleFor(userType)
	results := make([]domain.DispatchResult, 0, len(messages))
	for _, msg := range messages {
		p := payload.NewPayload().
			AlertTitle(msg.Title).
			AlertBody(msg.Body).
			Sound("default")
		for k, v := range msg.Data {
			p = p.Custom(k, v)
		}
		resp, err := client.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: msg.Token,
			Topic:       topic,
			Payload:     p,
		})
		if err != nil {
			c.logger.Warn("apns 推送失败", elog.FieldErr(err), elog.String("token", msg.Token))
			results = append(results, domain.FailedResult(msg.Token, err))
			continue
		}
		if !resp.Sent() {
			c.logger.Warn("apns 推送被拒",
				elog.String("reason", resp.Reason),
				elog.String("token", msg.Token))
			results = append(results, domain.FailedResult(msg.Token,
				fmt.Errorf("%w: %s", errs.ErrSendNotificationFailed, resp.Reason)))
			continue
		}
		results = append(results, domain.SucceededResult(msg.Token, resp.ApnsID))
	}
	return results, nil
}

func (c *APNsChannel) bundleFor(userType domain.UserType) string {
	switch userType {
	case domain.UserTypeCustomer:
		return c.cfg.CustomerBundleID
	case domain.UserTypeRider:
		return c.cfg.RiderBundleID
	default:
		return c.cfg.SellerBundleID
	}
}

func (c *APNsChannel) clientFor(userType domain.UserType) apnsPusher {
	// 商家端只发生产环境
	if userType == domain.UserTypeSeller {
		return c.production
	}
	if c.cfg.Production {
		return c.production
	}
	return c.dev
}
