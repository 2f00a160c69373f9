package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlc_store/internal/gateway"
	"dlc_store/internal/gateway/mocks"
	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
	"dlc_store/internal/tokenstore"
)

var demoUser = models.User{ID: "user-123", Email: "gamer@example.com", Username: "ProGamer2024"}

func TestInit(t *testing.T) {
	testCases := []struct {
		name          string
		setupMock     func(gw *mocks.MockGateway)
		expectedState State
	}{
		{
			name: "Restored session",
			setupMock: func(gw *mocks.MockGateway) {
				gw.EXPECT().CurrentUser(gomock.Any()).Return(models.OK(demoUser), nil)
			},
			expectedState: Authenticated,
		},
		{
			name: "No credential",
			setupMock: func(gw *mocks.MockGateway) {
				gw.EXPECT().CurrentUser(gomock.Any()).Return(models.Fail[models.User](gateway.MsgNotAuthorized), nil)
			},
			expectedState: Anonymous,
		},
		{
			name: "Transport failure is swallowed",
			setupMock: func(gw *mocks.MockGateway) {
				gw.EXPECT().CurrentUser(gomock.Any()).Return(models.Response[models.User]{}, errors.New("connection refused"))
			},
			expectedState: Anonymous,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			gw := mocks.NewMockGateway(ctrl)
			tc.setupMock(gw)

			m := NewManager(gw, logger.Discard())
			assert.Equal(t, Resolving, m.State())
			assert.True(t, m.Loading())

			m.Init(context.Background())
			assert.Equal(t, tc.expectedState, m.State())
			assert.False(t, m.Loading())
			assert.Empty(t, m.Error(), "session check never surfaces an error")
		})
	}
}

func TestLogin(t *testing.T) {
	credentials := models.LoginRequest{Email: "admin@booster.com", Password: "123456"}

	testCases := []struct {
		name          string
		setupMock     func(gw *mocks.MockGateway)
		expectedOK    bool
		expectedError string
		expectedState State
	}{
		{
			name: "Success",
			setupMock: func(gw *mocks.MockGateway) {
				gw.EXPECT().Authenticate(gomock.Any(), credentials).
					Return(models.OK(models.AuthPayload{User: demoUser, Token: "t"}), nil)
			},
			expectedOK:    true,
			expectedState: Authenticated,
		},
		{
			name: "Rejected with server message",
			setupMock: func(gw *mocks.MockGateway) {
				gw.EXPECT().Authenticate(gomock.Any(), credentials).
					Return(models.Fail[models.AuthPayload](gateway.MsgInvalidCredentials), nil)
			},
			expectedError: gateway.MsgInvalidCredentials,
			expectedState: Anonymous,
		},
		{
			name: "Rejected without message",
			setupMock: func(gw *mocks.MockGateway) {
				gw.EXPECT().Authenticate(gomock.Any(), credentials).Return(models.Response[models.AuthPayload]{}, nil)
			},
			expectedError: MsgLoginFailed,
			expectedState: Anonymous,
		},
		{
			name: "Transport failure",
			setupMock: func(gw *mocks.MockGateway) {
				gw.EXPECT().Authenticate(gomock.Any(), credentials).
					Return(models.Response[models.AuthPayload]{}, errors.New("dial tcp: timeout"))
			},
			expectedError: MsgNetworkError,
			expectedState: Anonymous,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			gw := mocks.NewMockGateway(ctrl)
			gw.EXPECT().CurrentUser(gomock.Any()).Return(models.Fail[models.User](gateway.MsgNotAuthorized), nil)
			tc.setupMock(gw)

			m := NewManager(gw, logger.Discard())
			m.Init(context.Background())

			ok := m.Login(context.Background(), credentials)
			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedError, m.Error())
			assert.Equal(t, tc.expectedState, m.State())
			assert.Equal(t, tc.expectedOK, m.IsAuthenticated())
			assert.False(t, m.Loading(), "loading is cleared on every path")
		})
	}
}

func TestLoginClearsPreviousError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gw := mocks.NewMockGateway(ctrl)

	gomock.InOrder(
		gw.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(models.Fail[models.AuthPayload](gateway.MsgInvalidCredentials), nil),
		gw.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(models.OK(models.AuthPayload{User: demoUser}), nil),
	)

	m := NewManager(gw, logger.Discard())
	assert.False(t, m.Login(context.Background(), models.LoginRequest{}))
	assert.NotEmpty(t, m.Error())

	assert.True(t, m.Login(context.Background(), models.LoginRequest{}))
	assert.Empty(t, m.Error())
	assert.Equal(t, "ProGamer2024", m.User().Username)
}

func TestRegister(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gw := mocks.NewMockGateway(ctrl)

	data := models.RegisterRequest{Email: "new@example.com", Username: "Newbie", Password: "pw"}
	gomock.InOrder(
		gw.EXPECT().Register(gomock.Any(), data).Return(models.Response[models.AuthPayload]{}, nil),
		gw.EXPECT().Register(gomock.Any(), data).
			Return(models.OK(models.AuthPayload{User: models.User{ID: "user-9", Username: "Newbie"}, Token: "t"}), nil),
	)

	m := NewManager(gw, logger.Discard())
	assert.False(t, m.Register(context.Background(), data))
	assert.Equal(t, MsgRegisterFailed, m.Error())

	assert.True(t, m.Register(context.Background(), data))
	assert.Equal(t, "user-9", m.User().ID)
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gw := mocks.NewMockGateway(ctrl)
	gw.EXPECT().CurrentUser(gomock.Any()).Return(models.OK(demoUser), nil)
	gw.EXPECT().EndSession(gomock.Any()).Return(nil)
	gw.EXPECT().EndSession(gomock.Any()).Return(errors.New("storage unavailable"))

	m := NewManager(gw, logger.Discard())
	m.Init(context.Background())
	require.True(t, m.IsAuthenticated())

	m.Logout(context.Background())
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())

	m.Logout(context.Background())
	assert.Equal(t, Anonymous, m.State())
}

func TestOverlappingLoginIsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gw := mocks.NewMockGateway(ctrl)

	release := make(chan struct{})
	started := make(chan struct{})
	gw.EXPECT().Authenticate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req models.LoginRequest) (models.Response[models.AuthPayload], error) {
			close(started)
			<-release
			return models.OK(models.AuthPayload{User: demoUser}), nil
		}).Times(1)

	m := NewManager(gw, logger.Discard())

	done := make(chan bool)
	go func() { done <- m.Login(context.Background(), models.LoginRequest{Email: "first"}) }()
	<-started

	assert.Equal(t, Authenticating, m.State())
	assert.True(t, m.Loading())
	assert.False(t, m.Register(context.Background(), models.RegisterRequest{Email: "second"}))
	assert.Empty(t, m.Error(), "rejected call does not touch state")

	close(release)
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("first login did not finish")
	}
	assert.Equal(t, Authenticated, m.State())
	assert.False(t, m.Loading())
}

func TestLoginWhileResolving(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockGateway(ctrl)

	stale := models.User{ID: "user-old", Username: "Stale"}
	release := make(chan struct{})
	started := make(chan struct{})
	gw.EXPECT().CurrentUser(gomock.Any()).
		DoAndReturn(func(ctx context.Context) (models.Response[models.User], error) {
			close(started)
			<-release
			return models.OK(stale), nil
		})
	gw.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(models.OK(models.AuthPayload{User: demoUser}), nil)

	m := NewManager(gw, logger.Discard())
	initDone := make(chan struct{})
	go func() {
		m.Init(context.Background())
		close(initDone)
	}()
	<-started

	require.True(t, m.Login(context.Background(), models.LoginRequest{Email: gateway.DemoEmail, Password: gateway.DemoPassword}))
	assert.Equal(t, Authenticated, m.State())
	assert.False(t, m.Loading())

	close(release)
	select {
	case <-initDone:
	case <-time.After(time.Second):
		t.Fatal("init did not finish")
	}
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, "ProGamer2024", m.User().Username, "late session check does not replace the signed-in user")
}

func TestDemoCredentialAgainstInMemoryBackend(t *testing.T) {
	store := tokenstore.NewMemory()
	gw := gateway.NewMock(gateway.NewCredential(store, logger.Discard()), logger.Discard(), gateway.WithLatency(gateway.Latency{}))
	defer gw.Close()

	m := NewManager(gw, logger.Discard())
	m.Init(context.Background())
	require.Equal(t, Anonymous, m.State())

	assert.False(t, m.Login(context.Background(), models.LoginRequest{Email: gateway.DemoEmail, Password: "nope"}))
	assert.Equal(t, Anonymous, m.State())
	assert.NotEmpty(t, m.Error())

	assert.True(t, m.Login(context.Background(), models.LoginRequest{Email: gateway.DemoEmail, Password: gateway.DemoPassword}))
	assert.Equal(t, Authenticated, m.State())

	restarted := NewManager(gw, logger.Discard())
	restarted.Init(context.Background())
	assert.True(t, restarted.IsAuthenticated(), "session is restored from the persisted credential")
}
