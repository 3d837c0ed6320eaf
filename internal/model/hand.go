// Package model holds the shared row types for PrimaryStore and
// AnalyticStore, passed between the ingestion driver and every pipeline
// stage.
package model

import "time"

// RawHand is a row of PrimaryStore's Hand table: the untouched upstream
// JSON payload plus its identity columns. Immutable once inserted.
type RawHand struct {
	ID        string
	HandDate  string // YYYY-MM-DD
	Seq       int
	RawJSON   []byte
	ChipValue *float64
}

// HandMeta is PrimaryStore's HandMeta sidecar, derived at ingest time.
type HandMeta struct {
	ID                string
	HandDate          string
	IsCash            bool
	IsMTT             bool
	BlindsBB          float64
	PotType           string
	EffStackBB        float64
	ChipBB            float64
	HasPartialScores  bool
}

// PartialScores is PrimaryStore's solver-supplied per-node score sidecar.
type PartialScores struct {
	ID   string
	JSON []byte
}

// HandInfo is AnalyticStore's per-hand summary row.
type HandInfo struct {
	HandID     string
	HandDate   string
	Seq        int
	IsMTT      bool
	IsCash     bool
	BigBlind   float64
	SmallBlind float64
	Ante       float64
	PlayersCnt int
	PotType    string
}

// Street identifies one of the four betting rounds.
type Street string

const (
	Preflop Street = "preflop"
	Flop    Street = "flop"
	Turn    Street = "turn"
	River   Street = "river"
)

// StreetRow is AnalyticStore's Streets table row.
type StreetRow struct {
	HandID string
	Street Street
	Board  string
}

// PlayerRow is AnalyticStore's Players table row.
type PlayerRow struct {
	HandID    string
	Position  string
	Nickname  string
	Stack0    int
	HoleCards string
	MoneyWon  float64
}

// ActionKind is the single-character action type stored on Actions.action.
type ActionKind string

const (
	ActionRaise ActionKind = "r"
	ActionCall  ActionKind = "c"
	ActionFold  ActionKind = "f"
	ActionCheck ActionKind = "x"
	ActionBet   ActionKind = "b"
)

// IPStatus is the in-position/out-of-position tag for an action.
type IPStatus string

const (
	IP  IPStatus = "IP"
	OOP IPStatus = "OOP"
)

// ActionRow is AnalyticStore's central Actions table row. Nullable columns
// are pointers; they are written once by Stage 1 and filled in later by
// stages 2-7, each of which only touches rows where its own columns are
// still nil.
type ActionRow struct {
	HandID              string
	ActionOrder         int
	Street              Street
	StreetIndex         int
	Position            string
	PlayerID            string
	Nickname            string
	Action              ActionKind
	AmountTo            int
	StackBefore         int
	StackAfter          int
	InvestedThisAction  int
	PotBefore           int
	PotAfter            int
	PlayersLeft         int
	IsAllin             bool
	StatePrefix         string
	BoardCards          string
	HoleCards           string

	ActionScore        *float64
	DecisionDifficulty *float64
	SizeFrac           *float64
	SizeCat            *string
	ActionLabel        *string
	IPStatus           *IPStatus
	JScore             *float64
	Intention          *string
	PreflopScore       *float64
	PostflopScore      *float64
	SolverBest         *string // "y" | "n"
}

// PostflopScoreRow is AnalyticStore's PostflopScores table row, keyed by
// the solver's node string.
type PostflopScoreRow struct {
	HandID             string
	NodeString         string
	ActionScore        float64
	DecisionDifficulty float64
}

// PreflopScoreRow is AnalyticStore's PreflopScores table row.
type PreflopScoreRow struct {
	HandID   string
	Position string
	Player   string
	Combo    string
	Seq      string
	Freq     *float64
	Best     *string // "y" | "n"
}

// DashboardSummary is the single-row dashboard_summary materialized table.
type DashboardSummary struct {
	TotalHands      int
	TotalActions    int
	AvgJScore       float64
	AvgPreflop      float64
	AvgPostflop     float64
	BuiltAt         time.Time
}

// TopPlayerRow is one row of top25_players.
type TopPlayerRow struct {
	PlayerID         string
	Nickname         string
	HandsPlayed      int
	VPIP             float64
	PFR              float64
	AvgJScore        float64
	AvgPreflopScore  float64
	AvgPostflopScore float64
	WinrateBB100     float64
	BetDeviance      float64
	TiltFactor       float64
	CalldownAccuracy float64
}

// PlayerSummaryRow is one row of player_summary.
type PlayerSummaryRow struct {
	PlayerID        string
	HandsPlayed     int
	VPIP            float64
	PFR             float64
	AvgJScore       float64
	AvgPreflopScore float64
	AvgPostflopScore float64
	RiverCalls      int
}
