package dispatcher

import (
	intOtel "github.com/OCAP2/position-tracker/internal/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/position-tracker/internal/dispatcher"

func meter() metric.Meter {
	return intOtel.Meter(instrumentationName)
}
