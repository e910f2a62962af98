package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	Token:      "tok-1",
	UserID:     "CRN-7",
	MACAddress: "00:1a:2b:3c:4d:5e",
	IPAddress:  "192.168.1.20",
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := io.WriteString(w, body)
	assert.NoError(t, err)
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []string{"", "ftp://example.com", "http://", "://bad"}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := New(raw)
			assert.Error(t, err)
		})
	}
}

func TestSignIn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/signin", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("x-token"), "sign-in is not authenticated")

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"username": "op1", "password": "secret"}, body)

		writeJSON(t, w, http.StatusOK,
			`{"success":true,"message":"ok","data":{"token":"tok-1","username":"op1","crn_id":4471}}`)
	})

	res, err := c.SignIn(context.Background(), "op1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, "op1", res.Username)
	assert.Equal(t, Text("4471"), res.UserID, "numeric crn_id decodes as text")
}

func TestSignIn_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, `{"success":false,"message":"Invalid username or password"}`)
	})

	_, err := c.SignIn(context.Background(), "op1", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid username or password", err.Error())
}

func TestVerify_SendsAuthorization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/verify", r.URL.Path)
		assert.Equal(t, "tok-pending", r.Header.Get("Authorization"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "123456", body["otp"])

		writeJSON(t, w, http.StatusOK,
			`{"success":true,"data":{"token":"tok-final","username":"op1","crn_id":"CRN-7"}}`)
	})

	res, err := c.Verify(context.Background(), "tok-pending", "123456")
	require.NoError(t, err)
	assert.Equal(t, "tok-final", res.Token)
}

func TestSticker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/win/QR/sticker/356938035643809", r.URL.Path)
		writeJSON(t, w, http.StatusOK, `{"success":true,"data":[{
			"name":"Soundbox","model":"SB-4G","input":{"voltage":5,"current":"1A"},
			"pnCode":"PN-1","serialNo":"00049769791","madeBy":"Acme","txn":"TXN001"}]}`)
	})

	p, err := c.Sticker(context.Background(), "356938035643809")
	require.NoError(t, err)
	assert.Equal(t, Text("Soundbox"), p.Name)
	assert.Equal(t, Text("5"), p.Input.Voltage)
	assert.Equal(t, Text("1A"), p.Input.Current)
	assert.Equal(t, Text("00049769791"), p.SerialNo)
	assert.Equal(t, Text("TXN001"), p.Txn)
}

func TestSticker_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"success":true,"data":[]}`)
	})

	_, err := c.Sticker(context.Background(), "123")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, apiErr.Message, "No product found")
}

func TestBIS(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/win/QR/bis/356938035643809", r.URL.Path)
		writeJSON(t, w, http.StatusOK,
			`{"success":true,"data":{"lineFirst":"R-41000001","lineSecond":"IS 13252","lineThird":"www.bis.gov.in","txn":"TXN9"}}`)
	})

	lbl, err := c.BIS(context.Background(), "356938035643809")
	require.NoError(t, err)
	assert.Equal(t, Text("R-41000001"), lbl.LineFirst)
	assert.Equal(t, Text("www.bis.gov.in"), lbl.LineThird)
}

func TestSubmitMaster(t *testing.T) {
	req := MasterRequest{
		Device:     "SB-4G",
		Operator:   "Airtel",
		Serials:    []string{"00049769791", "00049769792"},
		NFCEnabled: true,
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/win/QR/master", r.URL.Path)
		assert.Equal(t, "tok-1", r.Header.Get("x-token"))
		assert.Equal(t, "CRN-7", r.Header.Get("x-user-id"))
		assert.Equal(t, "00:1a:2b:3c:4d:5e", r.Header.Get("x-mac-address"))
		assert.Equal(t, "192.168.1.20", r.Header.Get("x-ip-address"))

		var got MasterRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, req, got)

		writeJSON(t, w, http.StatusOK, `{"success":true,"data":{
			"isOK":true,"boxNumber":"BOX-0042","txn":"TXN42","txnDt":"2024-05-01",
			"lotLength":2,"serials":["00049769791","00049769792"],"deviceModel":"SB-4G",
			"operator":"Airtel","nfcEnabled":true,"adaptorIncluded":false,
			"simCardIncluded":"Yes","qrEnabled":false}}`)
	}, WithCredentials(testCreds))

	carton, err := c.SubmitMaster(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, Text("BOX-0042"), carton.BoxNumber)
	assert.Equal(t, Text("2"), carton.LotLength)
	assert.Equal(t, Text("true"), carton.NFCEnabled)
	assert.Equal(t, Text("Yes"), carton.SIMCardIncluded)
	assert.Len(t, carton.Serials, 2)
}

func TestSubmitMaster_NotOK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"success":true,"data":{"isOK":false}}`)
	}, WithCredentials(testCreds))

	_, err := c.SubmitMaster(context.Background(), MasterRequest{
		Device: "SB-4G", Operator: "Jio", Serials: []string{"00049769791"},
	})
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestSubmitMaster_RequiresCredentials(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.SubmitMaster(context.Background(), MasterRequest{
		Device: "SB-4G", Operator: "Jio", Serials: []string{"00049769791"},
	})
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.False(t, called)
}

func TestSubmitMono(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/win/QR/mono/00049769791", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "8991000900000000001", body["sim"])
		assert.Equal(t, "https://pay.example/q/1", body["qrurl"])

		writeJSON(t, w, http.StatusOK, `{"success":true,"data":{
			"isOK":true,"serialNo":"00049769791","iccid":"8991000900000000001",
			"qrUrl":"https://pay.example/q/1","operator":"Jio","txn":"TXN7"}}`)
	}, WithCredentials(testCreds))

	res, err := c.SubmitMono(context.Background(), MonoRequest{
		Serial:   "00049769791",
		ICCID:    "8991000900000000001",
		QRURL:    "https://pay.example/q/1",
		Operator: "Jio",
	})
	require.NoError(t, err)
	assert.Equal(t, Text("TXN7"), res.Txn)
	assert.Equal(t, Text("8991000900000000001"), res.ICCID)
}

func TestDo_MalformedResponse(t *testing.T) {
	t.Run("html error page", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		})
		_, err := c.BIS(context.Background(), "1")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	})

	t.Run("garbage with 200", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "not json")
		})
		_, err := c.BIS(context.Background(), "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed response")
	})
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, c.Ping(context.Background()), "any HTTP answer means online")

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	offline, err := New(url, WithTimeout(time.Second))
	require.NoError(t, err)
	err = offline.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
}

func TestText_UnmarshalJSON(t *testing.T) {
	var v struct {
		A, B, C, D Text
	}
	require.NoError(t, json.Unmarshal([]byte(`{"A":"x","B":1.5,"C":false,"D":null}`), &v))
	assert.Equal(t, Text("x"), v.A)
	assert.Equal(t, Text("1.5"), v.B)
	assert.Equal(t, Text("false"), v.C)
	assert.Equal(t, Text(""), v.D)

	assert.Error(t, json.Unmarshal([]byte(`{"A":{"nested":1}}`), &v))
}

func TestMonoRequest_Validate(t *testing.T) {
	valid := MonoRequest{
		Serial:   "00049769791",
		ICCID:    "8991000900000000001",
		QRURL:    "https://pay.example/q/1",
		Operator: "Jio",
	}
	require.NoError(t, valid.Validate())

	err := MonoRequest{Serial: "123", ICCID: "short"}.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "Invalid SR No. (must be 11 digits).")
	assert.Contains(t, msg, "Invalid SIM ICCID")
	assert.Contains(t, msg, "QR URL is required.")
	assert.Contains(t, msg, "Please select a SIM operator.")
	assert.Equal(t, 4, len(strings.Split(msg, "\n")), "every problem is reported")
}

func TestMasterRequest_Validate(t *testing.T) {
	err := MasterRequest{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please select a Device Model.")
	assert.Contains(t, err.Error(), "No Serials scanned.")

	assert.NoError(t, MasterRequest{Device: "d", Operator: "o", Serials: []string{"1"}}.Validate())
}
