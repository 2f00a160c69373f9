package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlc_store/internal/cart"
	"dlc_store/internal/gateway"
	"dlc_store/internal/models"
	"dlc_store/internal/pkg/logger"
	"dlc_store/internal/session"
	"dlc_store/internal/storefront"
	"dlc_store/internal/tokenstore"
)

func TestShellPurchase(t *testing.T) {
	ctx := context.Background()
	cred := gateway.NewCredential(tokenstore.NewMemory(), logger.Discard())
	gw := gateway.NewMock(cred, logger.Discard(), gateway.WithLatency(gateway.Latency{}), gateway.WithSettleDelay(time.Millisecond))
	defer gw.Close()

	sess := session.NewManager(gw, logger.Discard())
	sess.Init(ctx)
	sf := storefront.New(gw, sess, cart.New(), logger.Discard())
	require.NoError(t, sf.Refresh(ctx))

	input := strings.Join([]string{
		"category RPG",
		"add 2",
		"qty 2 2",
		"checkout",
		"login admin@booster.com 123456",
		"checkout",
		"bogus",
		"quit",
		"cart",
	}, "\n")

	var out bytes.Buffer
	newShell(sf, &out).run(ctx, strings.NewReader(input))
	output := out.String()

	assert.Contains(t, output, "Cyberpunk 2077: Phantom Liberty")
	assert.Contains(t, output, "sign in to complete your purchase")
	assert.Contains(t, output, "ProGamer2024 <gamer@example.com>")
	assert.Contains(t, output, storefront.MsgOrderPlaced)
	assert.Contains(t, output, "total 2598")
	assert.Regexp(t, `CYBERPUNK-2077-[A-Z0-9]{9}`, output)
	assert.Contains(t, output, `unknown command "bogus"`)
	assert.NotContains(t, output, "cart is empty", "input after quit is ignored")
	assert.True(t, sf.Cart().IsEmpty())
}

func TestIntArg(t *testing.T) {
	n, err := intArg([]string{"7"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = intArg(nil, 0)
	assert.Error(t, err)

	_, err = intArg([]string{"x"}, 0)
	assert.ErrorContains(t, err, `invalid number "x"`)
}

func TestShellReportsRejectedAuthentication(t *testing.T) {
	cred := gateway.NewCredential(tokenstore.NewMemory(), logger.Discard())
	gw := gateway.NewMock(cred, logger.Discard(), gateway.WithLatency(gateway.Latency{}))
	defer gw.Close()
	sf := storefront.New(gw, session.NewManager(gw, logger.Discard()), cart.New(), logger.Discard())

	var out bytes.Buffer
	newShell(sf, &out).authResult(false)
	assert.Equal(t, session.MsgAuthInProgress+"\n", out.String())

	out.Reset()
	require.False(t, sf.Login(context.Background(), models.LoginRequest{Email: gateway.DemoEmail, Password: "nope"}))
	newShell(sf, &out).authResult(false)
	assert.Equal(t, gateway.MsgInvalidCredentials+"\n", out.String())
}
