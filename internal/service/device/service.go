package device

import (
	"context"

	"github.com/gotomicro/ego/core/elog"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/repository"
)

// RegisterRequest 设备注册入参
type RegisterRequest struct {
	Token    string
	Platform string
	DeviceID string
	// Authorized 客户端是否授权了系统通知，nil 时默认授权
	Authorized *bool
}

// Service 用户设备服务
type Service interface {
	// GetTokens 单个用户的可推送 token，合并旧版单设备字段并去重
	GetTokens(ctx context.Context, user domain.User) (domain.UserDeviceTokens, error)
	// GetUsersTokens 批量版本，返回顺序与入参一致
	GetUsersTokens(ctx context.Context, users []domain.User) ([]domain.UserDeviceTokens, error)
	// RegisterDevice 注册设备。token 或平台非法时静默忽略，返回 (nil, nil)
	RegisterDevice(ctx context.Context, userID int64, req RegisterRequest) (*domain.Device, error)
	// DisableUserDevice 停用设备，返回受影响行数
	DisableUserDevice(ctx context.Context, userID int64, deviceID, token string) (int64, error)
}

type service struct {
	repo   repository.UserDeviceRepository
	logger *elog.Component
}

func NewService(repo repository.UserDeviceRepository) Service {
	return &service{
		repo:   repo,
		logger: elog.DefaultLogger,
	}
}

func (s *service) GetTokens(ctx context.Context, user domain.User) (domain.UserDeviceTokens, error) {
	devices, err := s.repo.GetUserDevices(ctx, user.ID)
	if err != nil {
		return domain.UserDeviceTokens{}, err
	}
	return s.mergeTokens(user, devices), nil
}

func (s *service) GetUsersTokens(ctx context.Context, users []domain.User) ([]domain.UserDeviceTokens, error) {
	userIDs := make([]int64, 0, len(users))
	for _, user := range users {
		userIDs = append(userIDs, user.ID)
	}
	devicesByUser, err := s.repo.GetUsersDevices(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	tokens := make([]domain.UserDeviceTokens, 0, len(users))
	for _, user := range users {
		tokens = append(tokens, s.mergeTokens(user, devicesByUser[user.ID]))
	}
	return tokens, nil
}

// mergeTokens 设备表 token 加旧版单设备字段，按平台分桶并保序去重
func (s *service) mergeTokens(user domain.User, devices []domain.Device) domain.UserDeviceTokens {
	tokens := domain.UserDeviceTokens{
		UserID:   user.ID,
		UserType: user.UserType(),
	}
	seen := make(map[string]struct{}, len(devices)+1)
	add := func(platform, token string) {
		if token == "" || !domain.ValidPlatform(platform) {
			return
		}
		if _, ok := seen[token]; ok {
			return
		}
		seen[token] = struct{}{}
		switch platform {
		case domain.PlatformIOS:
			tokens.Tokens.IOS = append(tokens.Tokens.IOS, token)
		case domain.PlatformAndroid:
			tokens.Tokens.Android = append(tokens.Tokens.Android, token)
		}
	}
	for _, device := range devices {
		add(device.Platform, device.Token)
	}
	add(user.DeviceType, user.DeviceToken)
	return tokens
}

func (s *service) RegisterDevice(ctx context.Context, userID int64, req RegisterRequest) (*domain.Device, error) {
	if req.Token == "" || !domain.ValidPlatform(req.Platform) {
		s.logger.Info("忽略非法的设备注册",
			elog.Int64("userID", userID),
			elog.String("platform", req.Platform))
		return nil, nil
	}
	authorized := true
	if req.Authorized != nil {
		authorized = *req.Authorized
	}
	device, err := s.repo.Register(ctx, domain.Device{
		UserID:     userID,
		Token:      req.Token,
		Platform:   req.Platform,
		DeviceID:   req.DeviceID,
		Enabled:    true,
		Authorized: authorized,
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *service) DisableUserDevice(ctx context.Context, userID int64, deviceID, token string) (int64, error) {
	return s.repo.Disable(ctx, userID, deviceID, token)
}
