package domain

// UserType 用户角色
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeRider    UserType = "rider"
	UserTypeSeller   UserType = "seller"
)

// UserTypeOf 按数值编码解析角色：1 为顾客，3 为骑手，其余一律按商家处理
func UserTypeOf(code int) UserType {
	switch code {
	case 1:
		return UserTypeCustomer
	case 3:
		return UserTypeRider
	default:
		return UserTypeSeller
	}
}

func (t UserType) String() string {
	return string(t)
}

// User 用户信息
type User struct {
	ID   int64
	Type int
	Name string

	// 旧版单设备字段，参与 token 合并去重
	DeviceToken string
	DeviceType  string
}

func (u User) UserType() UserType {
	return UserTypeOf(u.Type)
}
