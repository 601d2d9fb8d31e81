package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPoolExhausted BookmarkType = "pool_exhausted"
	BookmarkScatter       BookmarkType = "scatter"
	BookmarkCrowding      BookmarkType = "crowding"
	BookmarkStableFlock   BookmarkType = "stable_flock"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `json:"type" csv:"type"`
	Tick        int32        `json:"tick" csv:"tick"`
	Description string       `json:"description" csv:"description"`
}

// LogValue implements slog.LogValuer for structured logging.
func (b Bookmark) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(b.Type)),
		slog.Int("tick", int(b.Tick)),
		slog.String("description", b.Description),
	)
}

// Detection thresholds.
const (
	scatterFactor     = 1.5  // cells_mean over rolling average
	crowdingFactor    = 2.0  // max_occupancy over rolling average
	crowdingMinAgents = 16   // ignore crowding in tiny cells
	stableCV2         = 0.01 // squared coefficient of variation of cells_mean
	stableWindows     = 5
)

// BookmarkDetector detects interesting moments in the flock.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	wasExhausted       bool // previous window dropped cells
	stableWindowsCount int  // consecutive windows with a steady cell count
	scratch            []float64
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for stable flock detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
		scratch:     make([]float64, 0, historySize),
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	// Pool exhaustion is edge-triggered so a starved run bookmarks once.
	if b := bd.checkPoolExhausted(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkScatter(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkCrowding(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkStableFlock(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkPoolExhausted(stats WindowStats) *Bookmark {
	exhausted := stats.ExhaustedCells > 0
	defer func() { bd.wasExhausted = exhausted }()
	if !exhausted || bd.wasExhausted {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPoolExhausted,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Bucket pool ran dry: %d cells and %d agents skipped (capacity %d)", stats.ExhaustedCells, stats.SkippedAgents, stats.PoolCapacity),
	}
}

func (bd *BookmarkDetector) checkScatter(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.CellsMean
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.CellsMean > avg*scatterFactor {
		return &Bookmark{
			Type:        BookmarkScatter,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Occupied cells %.1f is %.1fx average (%.1f)", stats.CellsMean, stats.CellsMean/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCrowding(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.MaxOccupancy < crowdingMinAgents {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.MaxOccupancy
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.MaxOccupancy) > avg*crowdingFactor {
		return &Bookmark{
			Type:        BookmarkCrowding,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Densest cell holds %d agents, %.1fx average (%.1f)", stats.MaxOccupancy, float64(stats.MaxOccupancy)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkStableFlock(stats WindowStats) *Bookmark {
	if stats.Agents == 0 || stats.ExhaustedCells > 0 {
		bd.stableWindowsCount = 0
		return nil
	}

	if len(bd.getHistory()) < 3 {
		return nil
	}

	// The last three windows plus this one.
	cells := bd.scratch[:0]
	for k := 1; k <= 3; k++ {
		h := bd.history[(bd.historyIdx-k+bd.historySize)%bd.historySize]
		cells = append(cells, h.CellsMean)
	}
	cells = append(cells, stats.CellsMean)
	bd.scratch = cells

	mean, variance := stat.PopMeanVariance(cells, nil)
	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}

	if cv2 < stableCV2 {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == stableWindows { // trigger exactly once
		return &Bookmark{
			Type:        BookmarkStableFlock,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Flock steady at %.1f cells over %d+ windows", stats.CellsMean, stableWindows),
		}
	}
	return nil
}
