package main

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ===== parameter clamping =====

// clampLimit bounds a requested result count to [1, maxAllowed]. Arguments
// arrive as untyped JSON values, so any non-numeric input coerces to 1 with
// a warning. Never fails.
func clampLimit(requested any, maxAllowed int, service string) int {
	return clampParam(requested, maxAllowed, service, "limit")
}

// clampDaysBack is clampLimit for day-range parameters.
func clampDaysBack(requested any, maxAllowed int, service string) int {
	return clampParam(requested, maxAllowed, service, "days_back")
}

func clampParam(requested any, maxAllowed int, service, param string) int {
	if maxAllowed < 1 {
		maxAllowed = 1
	}
	value, ok := coerceInt(requested)
	if !ok {
		log.Printf("<governor> %s: non-numeric %s %v, using 1", service, param, requested)
		return 1
	}
	if value > maxAllowed {
		log.Printf("<governor> %s: %s %d exceeds maximum %d, using %d", service, param, value, maxAllowed, maxAllowed)
		return maxAllowed
	}
	if value < 1 {
		return 1
	}
	return value
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// ===== usage ledger =====

const ledgerCapacity = 200

type usageRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Service        string    `json:"service"`
	Endpoint       string    `json:"endpoint"`
	RequestedLimit int       `json:"requested_limit"`
	ActualResults  *int      `json:"actual_results"`
	CostEstimate   *float64  `json:"cost_estimate"`
}

// usageLedger is a mutex-guarded ring buffer of the most recent API calls.
// Oldest entries are evicted first once capacity is reached.
type usageLedger struct {
	mu       sync.Mutex
	records  []usageRecord
	capacity int
}

func newUsageLedger(capacity int) *usageLedger {
	if capacity < 1 {
		capacity = ledgerCapacity
	}
	return &usageLedger{capacity: capacity}
}

func (l *usageLedger) record(service, endpoint string, requestedLimit int, actualResults *int, costEstimate *float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, usageRecord{
		Timestamp:      time.Now().UTC(),
		Service:        service,
		Endpoint:       endpoint,
		RequestedLimit: requestedLimit,
		ActualResults:  actualResults,
		CostEstimate:   costEstimate,
	})
	if len(l.records) > l.capacity {
		l.records = l.records[len(l.records)-l.capacity:]
	}
}

func (l *usageLedger) snapshot() []usageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]usageRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *usageLedger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// serviceUsage aggregates ledger records for one service.
type serviceUsage struct {
	Calls     int
	Requested int
	Received  int
	Cost      float64
	Endpoints map[string]struct{}
}

func (s *serviceUsage) efficiency() float64 {
	if s.Requested == 0 {
		return 0
	}
	return float64(s.Received) / float64(s.Requested) * 100
}

func (s *serviceUsage) endpointList() []string {
	list := make([]string, 0, len(s.Endpoints))
	for e := range s.Endpoints {
		list = append(list, e)
	}
	sort.Strings(list)
	return list
}

func aggregateUsage(records []usageRecord) map[string]*serviceUsage {
	services := make(map[string]*serviceUsage)
	for _, rec := range records {
		usage := services[rec.Service]
		if usage == nil {
			usage = &serviceUsage{Endpoints: make(map[string]struct{})}
			services[rec.Service] = usage
		}
		usage.Calls++
		usage.Requested += rec.RequestedLimit
		if rec.ActualResults != nil {
			usage.Received += *rec.ActualResults
		}
		if rec.CostEstimate != nil {
			usage.Cost += *rec.CostEstimate
		}
		usage.Endpoints[rec.Endpoint] = struct{}{}
	}
	return services
}

// usageReport renders the ledger as the human-readable analytics text served
// by the get_api_usage_stats tool and the usage://stats resource.
func (l *usageLedger) usageReport() string {
	records := l.snapshot()
	if len(records) == 0 {
		return "No API usage recorded yet. Start using the tools to see statistics."
	}

	services := aggregateUsage(records)
	totalCost := 0.0
	for _, usage := range services {
		totalCost += usage.Cost
	}

	var b strings.Builder
	fmt.Fprintf(&b, "API Usage Analytics (last %d calls)\n\n", len(records))
	fmt.Fprintf(&b, "Total estimated cost: $%.3f\n", totalCost)
	fmt.Fprintf(&b, "Tracking period: %s to %s\n\n",
		records[0].Timestamp.Format(time.RFC3339),
		records[len(records)-1].Timestamp.Format(time.RFC3339))

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		usage := services[name]
		avgCost := usage.Cost / float64(usage.Calls)
		fmt.Fprintf(&b, "%s: %d calls ($%.3f)\n", name, usage.Calls, usage.Cost)
		fmt.Fprintf(&b, "  Results: %d requested -> %d received (%.1f%% efficiency)\n",
			usage.Requested, usage.Received, usage.efficiency())
		fmt.Fprintf(&b, "  Avg cost/call: $%.3f\n", avgCost)
		fmt.Fprintf(&b, "  Endpoints: %s\n\n", strings.Join(usage.endpointList(), ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }
