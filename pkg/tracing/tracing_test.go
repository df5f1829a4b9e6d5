package tracing

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit(t *testing.T) {
	Convey("Given tracing initialisation", t, func() {
		ctx := context.Background()

		Convey("When no endpoint is configured", func() {
			shutdown, err := Init(ctx, WithServiceName("test"))

			Convey("Then a no-op shutdown is returned", func() {
				So(err, ShouldBeNil)
				So(shutdown(ctx), ShouldBeNil)
			})

			Convey("And the no-op shutdown ignores a cancelled context", func() {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				So(shutdown(cctx), ShouldBeNil)
			})
		})

		Convey("When an unreachable endpoint is configured", func() {
			shutdown, err := Init(ctx, WithEndpoint("http://192.0.2.1:4318"), WithSampler(sdktrace.NeverSample()))

			Convey("Then the provider is installed and shuts down cleanly", func() {
				So(err, ShouldBeNil)
				So(shutdown(ctx), ShouldBeNil)
			})
		})
	})
}

func TestTracer(t *testing.T) {
	Convey("Given a recording provider", t, func() {
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

		Convey("When a span is started from it", func() {
			_, span := tp.Tracer("pipeline").Start(context.Background(), "fetch")
			span.End()

			Convey("Then the span is recorded", func() {
				So(len(recorder.Ended()), ShouldEqual, 1)
				So(recorder.Ended()[0].Name(), ShouldEqual, "fetch")
			})
		})

		Convey("When asking the package for a tracer", func() {
			So(Tracer("standings"), ShouldNotBeNil)
		})
	})
}
