package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	service "github.com/okian/homedash/internal/app"
	"github.com/okian/homedash/internal/config"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type fakeLogin struct {
	cred  model.Credential
	ok    bool
	codes []string
}

func (f *fakeLogin) BeginLogin() (string, string) {
	return "st", "https://accounts.google.com/o/oauth2/auth?state=st"
}

func (f *fakeLogin) CompleteLogin(_ context.Context, code string) (model.Credential, error) {
	if code == "bad" {
		return model.Credential{}, errors.New("exchange code: invalid_grant")
	}
	f.codes = append(f.codes, code)
	f.cred = model.Credential{Subject: "ann@example.com", ExpiryEpochMs: time.Now().Add(time.Hour).UnixMilli()}
	f.ok = true
	return f.cred, nil
}

func (f *fakeLogin) Credential() (model.Credential, bool) { return f.cred, f.ok }

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given the required settings in the environment", t, func() {
		t.Setenv("HOMEDASH_ADDR", ":8088")
		t.Setenv("HOMEDASH_AUTH__CLIENT_ID", "client")
		t.Setenv("HOMEDASH_TRANSIT__API_KEY", "golemio-key")
		t.Setenv("HOMEDASH_WEATHER__API_KEY", "owm-key")

		convey.Convey("Then configuration loads with defaults for the rest", func() {
			cfg, err := loadConfig(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8088")
			convey.So(cfg.Transit.APIKey, convey.ShouldEqual, "golemio-key")
			convey.So(cfg.Transit.Boards, convey.ShouldNotBeEmpty)
		})
	})
}

func TestRouter(t *testing.T) {
	convey.Convey("Given the router over a service that is not started", t, func() {
		svc := service.New(config.New(context.Background()), service.WithLogger(logger.Nop()))
		r := newRouter(context.Background(), svc)
		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then read endpoints answer with empty state", func() {
			convey.So(get("/api/auth").Body.String(), convey.ShouldContainSubstring, `"ready":false`)
			convey.So(strings.TrimSpace(get("/api/tasks").Body.String()), convey.ShouldEqual, "[]")
			convey.So(get("/api/boards").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats").Body.String(), convey.ShouldContainSubstring, `"started":false`)
		})

		convey.Convey("Then login reports the service is not running", func() {
			convey.So(get("/auth/login").Code, convey.ShouldEqual, http.StatusServiceUnavailable)
		})

		convey.Convey("Then the docs are mounted next to the API", func() {
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the HTTP server carries timeouts", func() {
			srv := newHTTPServer(":0", r)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			convey.So(srv.Handler, convey.ShouldEqual, r)
		})
	})
}

func TestLoginCommand(t *testing.T) {
	convey.Convey("Given a login manager", t, func() {
		m := &fakeLogin{}
		var out bytes.Buffer

		convey.Convey("When no code is given", func() {
			err := runLogin(context.Background(), &out, m, "")

			convey.Convey("Then the consent URL is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "https://accounts.google.com/")
				convey.So(m.codes, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a code is given", func() {
			err := runLogin(context.Background(), &out, m, "good")

			convey.Convey("Then it is exchanged and the status shows the subject", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "ann@example.com")
				out.Reset()
				printStatus(&out, m, time.Now())
				convey.So(out.String(), convey.ShouldContainSubstring, "Authentication: valid")
			})
		})

		convey.Convey("When the exchange fails", func() {
			err := runLogin(context.Background(), &out, m, "bad")

			convey.Convey("Then the error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				printStatus(&out, m, time.Now())
				convey.So(out.String(), convey.ShouldContainSubstring, "Authentication: required")
			})
		})
	})
}

func TestRadarCommand(t *testing.T) {
	convey.Convey("Given the radar command at a fixed instant", t, func() {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"radar", "--at", "2024-05-01T12:04:00Z", "--frames", "2"})

		convey.Convey("Then two grid-aligned frames are printed oldest first", func() {
			convey.So(cmd.Execute(), convey.ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			convey.So(lines, convey.ShouldHaveLength, 2)
			convey.So(lines[0], convey.ShouldContainSubstring, "20240501.1150")
			convey.So(lines[1], convey.ShouldStartWith, "2024-05-01T12:00:00Z")
		})
	})

	convey.Convey("Given the command tree", t, func() {
		root := newRootCmd()
		names := []string{}
		for _, c := range root.Commands() {
			names = append(names, c.Name())
		}

		convey.Convey("Then every subcommand is registered", func() {
			convey.So(names, convey.ShouldContain, "serve")
			convey.So(names, convey.ShouldContain, "login")
			convey.So(names, convey.ShouldContain, "status")
			convey.So(names, convey.ShouldContain, "radar")
		})
	})
}
