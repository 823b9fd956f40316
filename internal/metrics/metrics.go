// Package metrics holds the Prometheus instrumentation shared by the
// parser and builder. It mirrors the teacher's use of
// prometheus/client_golang for repository-level counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ArchivesParsed counts completed calls to Parse, by outcome.
	ArchivesParsed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "packfile",
		Name:      "archives_parsed_total",
		Help:      "Number of PackFile archives parsed, by outcome.",
	}, []string{"outcome"})

	// EntriesIterated counts packed-file entries yielded by iteration.
	EntriesIterated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "packfile",
		Name:      "entries_iterated_total",
		Help:      "Number of packed-file entries yielded across all archives.",
	})

	// ArchivesBuilt counts completed calls to Build, by outcome.
	ArchivesBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "packfile",
		Name:      "archives_built_total",
		Help:      "Number of PackFile archives built, by outcome.",
	}, []string{"outcome"})

	// ParseDuration observes wall-clock time spent in Parse.
	ParseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "packfile",
		Name:      "parse_duration_seconds",
		Help:      "Time spent parsing a PackFile archive.",
		Buckets:   prometheus.DefBuckets,
	})

	// BuildDuration observes wall-clock time spent in Build.
	BuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "packfile",
		Name:      "build_duration_seconds",
		Help:      "Time spent building a PackFile archive.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ArchivesParsed, EntriesIterated, ArchivesBuilt, ParseDuration, BuildDuration)
}
