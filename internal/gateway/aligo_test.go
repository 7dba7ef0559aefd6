package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artloop/notify-backend/internal/config"
	"github.com/artloop/notify-backend/internal/gateway"
)

func aligoConfig(baseURL string) config.AligoConfig {
	return config.AligoConfig{
		APIKey:  "test-key",
		UserID:  "artloop",
		Sender:  "0212345678",
		BaseURL: baseURL,
	}
}

func TestAligoSendSuccess(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"key":      r.PostFormValue("key"),
			"receiver": r.PostFormValue("receiver"),
			"msg":      r.PostFormValue("msg"),
			"msg_type": r.PostFormValue("msg_type"),
		}
		w.Write([]byte(`{"result_code":"1","message":"success","msg_id":"9981"}`))
	}))
	defer srv.Close()

	g, err := gateway.NewAligoGateway(aligoConfig(srv.URL), "", zerolog.Nop())
	require.NoError(t, err)

	out, err := g.Send(context.Background(), "01012345678", "Doors open at 7pm.")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "9981", out.ProviderMessageID)
	assert.Equal(t, "01012345678", gotForm["receiver"])
	assert.Equal(t, "SMS", gotForm["msg_type"])
}

func TestAligoLongBodyFramedAsLMS(t *testing.T) {
	var msgType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		msgType = r.PostFormValue("msg_type")
		w.Write([]byte(`{"result_code":"1","message":"success","msg_id":"1"}`))
	}))
	defer srv.Close()

	g, err := gateway.NewAligoGateway(aligoConfig(srv.URL), "", zerolog.Nop())
	require.NoError(t, err)

	_, err = g.Send(context.Background(), "01012345678", strings.Repeat("a", 91))
	require.NoError(t, err)
	assert.Equal(t, "LMS", msgType)
}

func TestAligoRejectionBecomesFailedOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result_code":"-101","message":"invalid receiver"}`))
	}))
	defer srv.Close()

	g, err := gateway.NewAligoGateway(aligoConfig(srv.URL), "", zerolog.Nop())
	require.NoError(t, err)

	out, err := g.Send(context.Background(), "01000000000", "hello")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "invalid receiver")
}

func TestAligoTransportErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	g, err := gateway.NewAligoGateway(aligoConfig(srv.URL), "", zerolog.Nop())
	require.NoError(t, err)

	_, err = g.Send(context.Background(), "01012345678", "hello")
	assert.Error(t, err)
}

func TestAligoMissingCredentials(t *testing.T) {
	_, err := gateway.NewAligoGateway(config.AligoConfig{UserID: "artloop"}, "", zerolog.Nop())
	assert.Error(t, err)

	_, err = gateway.NewAligoGateway(config.AligoConfig{APIKey: "k", UserID: "u"}, "", zerolog.Nop())
	assert.Error(t, err, "sender is required")
}

func TestAligoSenderOverride(t *testing.T) {
	var sender string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		sender = r.PostFormValue("sender")
		w.Write([]byte(`{"result_code":"1","message":"success","msg_id":"1"}`))
	}))
	defer srv.Close()

	g, err := gateway.NewAligoGateway(aligoConfig(srv.URL), "0299998888", zerolog.Nop())
	require.NoError(t, err)

	_, err = g.Send(context.Background(), "01012345678", "hi")
	require.NoError(t, err)
	assert.Equal(t, "0299998888", sender)
}
