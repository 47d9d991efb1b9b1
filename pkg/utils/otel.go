package utils

import (
	"fmt"
	"strconv"
)

const (
	defaultOTelServiceName = "raine-waitlist"
	defaultOTLPEndpoint    = "http://localhost:4318"
)

// TracingSettings is the OTEL_* environment the server reads at startup.
type TracingSettings struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	// SampleRatio is the head-sampling fraction for root spans, in (0, 1].
	SampleRatio float64
}

func LoadTracingSettings() TracingSettings {
	s := TracingSettings{
		Enabled:     GetEnvBool("OTEL_TRACES_ENABLED", false),
		ServiceName: GetEnvTrimmedOrDefault("OTEL_SERVICE_NAME", defaultOTelServiceName),
		Endpoint:    GetEnvTrimmedOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", defaultOTLPEndpoint),
		SampleRatio: 1,
	}

	if ratio, err := parseRatio(GetEnvTrimmed("OTEL_TRACES_SAMPLER_ARG")); err == nil {
		s.SampleRatio = ratio
	}
	return s
}

func parseRatio(raw string) (float64, error) {
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if ratio <= 0 || ratio > 1 {
		return 0, fmt.Errorf("sampler ratio %v outside (0, 1]", ratio)
	}
	return ratio, nil
}
