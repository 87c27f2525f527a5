package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/homedash/internal/adapters/auth"
	"github.com/okian/homedash/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestRelayClient(t *testing.T) {
	convey.Convey("Given a relay server", t, func() {
		var calls atomic.Int32
		var failFirst, status atomic.Int32
		status.Store(http.StatusOK)
		var mu sync.Mutex
		var gotBody map[string]string
		var gotPath string
		last := func() (string, map[string]string) {
			mu.Lock()
			defer mu.Unlock()
			return gotPath, gotBody
		}

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			mu.Lock()
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			mu.Unlock()
			if n <= failFirst.Load() {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			code := int(status.Load())
			w.WriteHeader(code)
			if code == http.StatusOK {
				_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"r1","expiry_date":1714567200000,"id_token":"x"}`))
				return
			}
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		defer srv.Close()

		client, err := auth.NewRelayClient(srv.URL,
			auth.WithRelayRetry(3, time.Millisecond),
			auth.WithRelayLogger(logger.Nop()),
		)
		convey.So(err, convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("When a code is exchanged", func() {
			resp, err := client.Exchange(ctx, "abc")

			convey.Convey("Then the code is posted and tokens decoded", func() {
				convey.So(err, convey.ShouldBeNil)
				path, body := last()
				convey.So(path, convey.ShouldEqual, "/auth/google")
				convey.So(body["code"], convey.ShouldEqual, "abc")
				convey.So(resp.AccessToken, convey.ShouldEqual, "a1")
				convey.So(resp.ExpiryDate, convey.ShouldEqual, int64(1714567200000))
			})
		})

		convey.Convey("When a refresh hits two gateway errors", func() {
			failFirst.Store(2)
			resp, err := client.Refresh(ctx, "r1")

			convey.Convey("Then it is retried and succeeds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(calls.Load(), convey.ShouldEqual, int32(3))
				path, body := last()
				convey.So(path, convey.ShouldEqual, "/auth/google/refresh-token")
				convey.So(body["refreshToken"], convey.ShouldEqual, "r1")
				convey.So(resp.RefreshToken, convey.ShouldEqual, "r1")
			})
		})

		convey.Convey("When the relay keeps failing", func() {
			failFirst.Store(10)
			_, err := client.Refresh(ctx, "r1")

			convey.Convey("Then it gives up after three attempts with a network error", func() {
				convey.So(errors.Is(err, auth.ErrNetwork), convey.ShouldBeTrue)
				convey.So(calls.Load(), convey.ShouldEqual, int32(3))
			})
		})

		convey.Convey("When the relay rejects the refresh token", func() {
			status.Store(http.StatusBadRequest)
			_, err := client.Refresh(ctx, "revoked")

			convey.Convey("Then it fails once with an auth failure", func() {
				convey.So(errors.Is(err, auth.ErrAuthFailure), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "invalid_grant")
				convey.So(calls.Load(), convey.ShouldEqual, int32(1))
			})
		})
	})
}
