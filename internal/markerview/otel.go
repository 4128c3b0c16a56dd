package markerview

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/markerview/internal/markerview"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
