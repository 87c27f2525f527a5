package golemio_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/homedash/internal/adapters/providers/golemio"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	routeCalls atomic.Int32
	alertCalls atomic.Int32
	failAlerts atomic.Bool
}

func (s *fakeSource) Routes(context.Context) ([]model.Route, error) {
	s.routeCalls.Add(1)
	return []model.Route{{ID: "L22", ShortName: "22", Type: model.RouteTram}}, nil
}

func (s *fakeSource) Alerts(context.Context) ([]model.Alert, error) {
	s.alertCalls.Add(1)
	if s.failAlerts.Load() {
		return nil, errors.New("upstream down")
	}
	return []model.Alert{{ID: "a1", AffectedRouteIDs: []string{"L22"}}}, nil
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestReference(t *testing.T) {
	convey.Convey("Given a cold reference cache", t, func() {
		src := &fakeSource{}
		ref := golemio.NewReference(src, golemio.WithTTL(time.Hour), golemio.WithReferenceLogger(logger.Nop()))

		convey.Convey("When it is read before any load", func() {
			routes := ref.Routes()
			alerts := ref.Alerts()

			convey.Convey("Then reads return empty without blocking", func() {
				convey.So(routes, convey.ShouldBeEmpty)
				convey.So(alerts, convey.ShouldBeEmpty)
			})

			convey.Convey("Then a background load fills the cache", func() {
				convey.So(eventually(func() bool { return len(ref.Routes()) == 1 }), convey.ShouldBeTrue)
				convey.So(eventually(func() bool { return len(ref.Alerts()) == 1 }), convey.ShouldBeTrue)
				convey.So(ref.Routes()["22"].ID, convey.ShouldEqual, "L22")
			})
		})

		convey.Convey("When it is warmed", func() {
			err := ref.Warm(context.Background())

			convey.Convey("Then both datasets are present without further loads", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ref.Loaded(), convey.ShouldResemble, map[string]bool{"routes": true, "alerts": true})
				_ = ref.Routes()
				_ = ref.Alerts()
				convey.So(src.routeCalls.Load(), convey.ShouldEqual, int32(1))
				convey.So(src.alertCalls.Load(), convey.ShouldEqual, int32(1))
			})
		})

		convey.Convey("When one dataset fails to warm", func() {
			src.failAlerts.Store(true)
			err := ref.Warm(context.Background())

			convey.Convey("Then the error is reported and the other dataset is kept", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(len(ref.Routes()), convey.ShouldEqual, 1)
				convey.So(ref.Loaded()["alerts"], convey.ShouldBeFalse)
			})
		})
	})
}
