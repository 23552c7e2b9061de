package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/JonMunkholm/gradebook/internal/core"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it owns a private registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
			})
		})

		Convey("When creating two managers", func() {
			Convey("Then registration does not collide", func() {
				So(func() {
					NewManager()
					NewManager()
				}, ShouldNotPanic)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRegistry(registry),
				WithRuntimeCollectors(),
			)

			Convey("Then it uses the given registry", func() {
				So(manager.Registry(), ShouldEqual, registry)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestLoaderObserver(t *testing.T) {
	Convey("Given a manager used as a loader observer", t, func() {
		manager := NewManager()
		var observer core.Observer = manager

		Convey("When loads are observed on different paths", func() {
			observer.LoadObserved(core.PathCold, 120*time.Millisecond, 3)
			observer.LoadObserved(core.PathHot, time.Millisecond, 5)
			observer.LoadObserved(core.PathHot, time.Millisecond, 5)

			Convey("Then each path is counted", func() {
				So(testutil.ToFloat64(manager.loads.WithLabelValues(core.PathCold)), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.loads.WithLabelValues(core.PathHot)), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.rowsLoaded), ShouldEqual, 5)
			})
		})

		Convey("When the filter drops rows and validation fails", func() {
			observer.RowsDropped(4)
			observer.RowsDropped(0)
			observer.ValidationFailed()

			Convey("Then the counters reflect it", func() {
				So(testutil.ToFloat64(manager.rowsDropped), ShouldEqual, 4)
				So(testutil.ToFloat64(manager.validationFailures), ShouldEqual, 1)
			})
		})
	})
}

func TestImportAndHTTPMetrics(t *testing.T) {
	Convey("Given a manager", t, func() {
		manager := NewManager()

		Convey("When imports start and finish", func() {
			manager.ImportStarted()
			manager.ImportStarted()
			manager.ImportFinished("accepted")

			Convey("Then the active gauge and outcome counter track them", func() {
				So(testutil.ToFloat64(manager.importsActive), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.imports.WithLabelValues("accepted")), ShouldEqual, 1)
			})
		})

		Convey("When requests are recorded", func() {
			manager.RecordHTTPRequest("/api/students", "GET", 200, 10*time.Millisecond)

			Convey("Then the handler exposes them", func() {
				rec := httptest.NewRecorder()
				manager.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
				body, _ := io.ReadAll(rec.Body)

				So(rec.Code, ShouldEqual, 200)
				So(strings.Contains(string(body),
					`gradebook_http_requests_total{method="GET",route="/api/students",status_code="200"} 1`), ShouldBeTrue)
			})
		})
	})
}
