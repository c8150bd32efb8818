package channel

import (
	"context"
	"net/http"
	"testing"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vervana-io/fastfast-common/internal/domain"
)

type fakeAPNs struct {
	name   string
	pushed []*apns2.Notification
	reject map[string]string
}

func (f *fakeAPNs) PushWithContext(_ apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	f.pushed = append(f.pushed, n)
	if reason, ok := f.reject[n.DeviceToken]; ok {
		return &apns2.Response{StatusCode: http.StatusBadRequest, Reason: reason}, nil
	}
	return &apns2.Response{StatusCode: http.StatusOK, ApnsID: "apns-" + n.DeviceToken}, nil
}

func testAPNsConfig(production bool) APNsConfig {
	return APNsConfig{
		AuthKeyPath:      "key.p8",
		KeyID:            "K1",
		TeamID:           "T1",
		Production:       production,
		CustomerBundleID: "io.vervana.customer",
		RiderBundleID:    "io.vervana.rider",
		SellerBundleID:   "io.vervana.seller",
	}
}

func TestAPNsChannel_Send_BundlePerUserType(t *testing.T) {
	t.Parallel()
	prod := &fakeAPNs{name: "prod"}
	ch := newAPNsChannel(prod, &fakeAPNs{name: "dev"}, testAPNsConfig(true))

	testCases := []struct {
		userType domain.UserType
		bundle   string
	}{
		{userType: domain.UserTypeCustomer, bundle: "io.vervana.customer"},
		{userType: domain.UserTypeRider, bundle: "io.vervana.rider"},
		{userType: domain.UserTypeSeller, bundle: "io.vervana.seller"},
	}
	for _, tc := range testCases {
		prod.pushed = nil
		_, err := ch.Send(context.Background(), tc.userType, []TokenMessage{{Token: "t1"}})
		require.NoError(t, err)
		require.Len(t, prod.pushed, 1)
		assert.Equal(t, tc.bundle, prod.pushed[0].Topic)
	}
}

func TestAPNsChannel_SellerAlwaysProduction(t *testing.T) {
	t.Parallel()
	prod := &fakeAPNs{name: "prod"}
	dev := &fakeAPNs{name: "dev"}
	// 非生产环境配置下商家端依旧要走生产通道
	ch := newAPNsChannel(prod, dev, testAPNsConfig(false))

	_, err := ch.Send(context.Background(), domain.UserTypeSeller, []TokenMessage{{Token: "s1"}})
	require.NoError(t, err)
	assert.Len(t, prod.pushed, 1)
	assert.Empty(t, dev.pushed)

	_, err = ch.Send(context.Background(), domain.UserTypeRider, []TokenMessage{{Token: "r1"}})
	require.NoError(t, err)
	assert.Len(t, dev.pushed, 1)
}

func TestAPNsChannel_Send_RejectedToken(t *testing.T) {
	t.Parallel()
	prod := &fakeAPNs{reject: map[string]string{"bad": apns2.ReasonBadDeviceToken}}
	ch := newAPNsChannel(prod, &fakeAPNs{}, testAPNsConfig(true))

	results, err := ch.Send(context.Background(), domain.UserTypeCustomer, []TokenMessage{
		{Token: "good"}, {Token: "bad"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.DispatchSucceeded, results[0].Status)
	assert.Equal(t, "apns-good", results[0].Response)
	assert.Equal(t, domain.DispatchFailed, results[1].Status)
	assert.Contains(t, results[1].Error, apns2.ReasonBadDeviceToken)
}
