package domain

// 设备平台
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// ValidPlatform 只认 ios 和 android，其余平台一律忽略
func ValidPlatform(p string) bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// Device 用户注册的推送设备
type Device struct {
	ID         int64
	UserID     int64
	Token      string
	Platform   string
	DeviceID   string
	Enabled    bool
	Authorized bool
}

// TokenGroup 按平台分桶的推送 token
type TokenGroup struct {
	IOS     []string
	Android []string
}

// Platform 取指定平台的 token 桶
func (g TokenGroup) Platform(p string) []string {
	switch p {
	case PlatformIOS:
		return g.IOS
	case PlatformAndroid:
		return g.Android
	default:
		return nil
	}
}

// Empty 两个桶都为空
func (g TokenGroup) Empty() bool {
	return len(g.IOS) == 0 && len(g.Android) == 0
}

// UserDeviceTokens 单个用户的可推送 token 集合
type UserDeviceTokens struct {
	UserID   int64
	UserType UserType
	Tokens   TokenGroup
}
