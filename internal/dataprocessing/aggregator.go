package dataprocessing

import (
	"log/slog"
	"sort"
	"strings"

	"bedpulse/pkg/contracts/domain"
)

// Filter selects rows for aggregation. Empty fields impose no constraint.
// Gender, Building and RoomType compare case-insensitively for equality;
// Search is a case-insensitive substring match over building and room type.
type Filter struct {
	Gender   string
	Building string
	RoomType string
	Search   string
}

// Matches reports whether a row passes the filter.
func (f Filter) Matches(row domain.Row) bool {
	if f.Gender != "" && !strings.EqualFold(f.Gender, row.Gender) {
		return false
	}
	if f.Building != "" && !strings.EqualFold(f.Building, row.Building) {
		return false
	}
	if f.RoomType != "" && !strings.EqualFold(f.RoomType, row.RoomType) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(row.Building), needle) &&
			!strings.Contains(strings.ToLower(row.RoomType), needle) {
			return false
		}
	}
	return true
}

// GenderOnly strips everything but the gender constraint. The baseline
// respects the active gender filter but ignores building, room type and
// search, since it represents how full each building was originally.
func (f Filter) GenderOnly() Filter {
	return Filter{Gender: f.Gender}
}

// SortField names a caller-selectable sort column for the grouped view.
type SortField string

// Supported sort fields.
const (
	SortBuilding  SortField = "building"
	SortRoomType  SortField = "roomType"
	SortTotalBeds SortField = "totalBeds"
	SortChange    SortField = "change"
)

// SortSpec pairs a sort field with a direction.
type SortSpec struct {
	Field SortField
	Desc  bool
}

// Aggregator derives grouped totals, per-gender breakdowns, change from the
// previous snapshot and baseline fill ratios from a housing history. All
// methods are pure functions of their inputs and safe to call concurrently.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregation engine.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With(slog.String("component", "aggregator"))}
}

// GroupedView applies the filter to the latest snapshot, partitions by
// (building, roomType), and annotates each group with its change against
// the previous snapshot and its baseline fill ratio. Snapshots are re-sorted
// by timestamp before selecting latest, previous and baseline; insertion
// order is expected to be chronological but is never trusted.
func (a *Aggregator) GroupedView(history domain.HousingHistory, filter Filter, spec SortSpec) []domain.GroupedRow {
	snapshots := sortedSnapshots(history)
	if len(snapshots) == 0 {
		return nil
	}

	latest := snapshots[len(snapshots)-1]
	groups := make(map[domain.GroupKey]*domain.GroupedRow)
	for _, row := range latest.Rows {
		if !filter.Matches(row) {
			continue
		}
		key := domain.GroupKey{Building: row.Building, RoomType: row.RoomType}
		g, ok := groups[key]
		if !ok {
			g = &domain.GroupedRow{
				Key:      key,
				Building: row.Building,
				RoomType: row.RoomType,
				ByGender: make(map[string]int),
			}
			groups[key] = g
		}
		g.TotalBeds += row.BedSpaces
		g.ByGender[row.Gender] += row.BedSpaces
	}

	// Previous-period totals under the identical filter. A key missing here
	// leaves Change nil: "no prior data" is not "no change".
	var prevTotals map[domain.GroupKey]int
	if len(snapshots) >= 2 {
		prevTotals = groupTotals(snapshots[len(snapshots)-2].Rows, filter)
	}

	// Baseline totals from the chronologically first snapshot, gender
	// filter only.
	baseTotals := groupTotals(snapshots[0].Rows, filter.GenderOnly())

	rows := make([]domain.GroupedRow, 0, len(groups))
	for key, g := range groups {
		if prevTotals != nil {
			if prev, ok := prevTotals[key]; ok {
				change := g.TotalBeds - prev
				g.Change = &change
			}
		}

		// A group absent from the baseline is its own baseline, i.e. a
		// fill ratio of exactly 1.
		g.InitialBeds = g.TotalBeds
		if initial, ok := baseTotals[key]; ok {
			g.InitialBeds = initial
		}
		g.FillRatio = 1.0
		if g.InitialBeds > 0 {
			g.FillRatio = float64(g.TotalBeds) / float64(g.InitialBeds)
		}

		rows = append(rows, *g)
	}

	sortGroupedRows(rows, spec)
	return rows
}

// TrendSeries produces one chronological data point per snapshot for a
// fixed (building, roomType) key under an optional gender filter. The
// series is recomputed from the history on every call, never cached, so it
// stays correct whenever the underlying history or filter changes. Per-
// gender subtotals are included only when no gender filter is active.
func (a *Aggregator) TrendSeries(history domain.HousingHistory, key domain.GroupKey, gender string) []domain.TrendPoint {
	snapshots := sortedSnapshots(history)
	if len(snapshots) == 0 {
		return nil
	}

	points := make([]domain.TrendPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		point := domain.TrendPoint{Timestamp: snap.Timestamp}
		var byGender map[string]int
		if gender == "" {
			byGender = make(map[string]int)
		}
		for _, row := range snap.Rows {
			if !strings.EqualFold(row.Building, key.Building) ||
				!strings.EqualFold(row.RoomType, key.RoomType) {
				continue
			}
			if gender != "" && !strings.EqualFold(gender, row.Gender) {
				continue
			}
			point.TotalBeds += row.BedSpaces
			if byGender != nil {
				byGender[row.Gender] += row.BedSpaces
			}
		}
		if len(byGender) > 0 {
			point.ByGender = byGender
		}
		points = append(points, point)
	}
	return points
}

// sortedSnapshots returns a copy of the history's snapshots ordered by
// timestamp. The store appends chronologically for a well-behaved feed,
// but the read side guards against any future out-of-order write path.
func sortedSnapshots(history domain.HousingHistory) []domain.Snapshot {
	snapshots := make([]domain.Snapshot, len(history.Snapshots))
	copy(snapshots, history.Snapshots)
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
	return snapshots
}

// groupTotals sums bed spaces per group key for the rows passing the filter.
func groupTotals(rows []domain.Row, filter Filter) map[domain.GroupKey]int {
	totals := make(map[domain.GroupKey]int)
	for _, row := range rows {
		if !filter.Matches(row) {
			continue
		}
		totals[domain.GroupKey{Building: row.Building, RoomType: row.RoomType}] += row.BedSpaces
	}
	return totals
}

// sortGroupedRows orders rows by the requested field and direction. Rows
// are first ordered by (building, roomType) so that ties and the map
// iteration order resolve deterministically; a nil change sorts as zero.
func sortGroupedRows(rows []domain.GroupedRow, spec SortSpec) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Building != rows[j].Building {
			return rows[i].Building < rows[j].Building
		}
		return rows[i].RoomType < rows[j].RoomType
	})

	var less func(i, j int) bool
	switch spec.Field {
	case SortRoomType:
		less = func(i, j int) bool { return rows[i].RoomType < rows[j].RoomType }
	case SortTotalBeds:
		less = func(i, j int) bool { return rows[i].TotalBeds < rows[j].TotalBeds }
	case SortChange:
		less = func(i, j int) bool { return changeOrZero(rows[i]) < changeOrZero(rows[j]) }
	case SortBuilding:
		less = func(i, j int) bool { return rows[i].Building < rows[j].Building }
	default:
		return // already in canonical (building, roomType) order
	}
	if spec.Desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(rows, less)
}

func changeOrZero(row domain.GroupedRow) int {
	if row.Change == nil {
		return 0
	}
	return *row.Change
}
